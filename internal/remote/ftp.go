package remote

import (
	"crypto/tls"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
)

var _ Adapter = (*FTPAdapter)(nil)

// FTPAdapter speaks the stateful-cursor family: the server keeps an implicit
// current directory that every relative operation depends on, so
// cursor-mutating operations must be serialized by the caller (the session
// manager holds the cursor lock).
type FTPAdapter struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	timeout  time.Duration

	conn *ftp.ServerConn
}

// NewFTP builds an adapter for plain FTP or, with useTLS, FTP over explicit
// TLS. Port 0 selects the default control port.
func NewFTP(host string, port int, username, password string, useTLS bool) *FTPAdapter {
	return &FTPAdapter{
		host:     host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		timeout:  DefaultConnectTimeout,
	}
}

// SetTimeout overrides the dial timeout. Must be called before Connect.
func (a *FTPAdapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.timeout = d
	}
}

func (a *FTPAdapter) Connect() error {
	if err := ValidateEndpoint(a.host, a.port); err != nil {
		return err
	}
	port := a.port
	if port == 0 {
		port = 21
	}

	opts := []ftp.DialOption{ftp.DialWithTimeout(a.timeout)}
	if a.useTLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: a.host}))
	}

	conn, err := ftp.Dial(fmt.Sprintf("%s:%d", a.host, port), opts...)
	if err != nil {
		return fmt.Errorf("dial %s:%d: %w", a.host, port, err)
	}
	if err := conn.Login(a.username, a.password); err != nil {
		_ = conn.Quit()
		return fmt.Errorf("login: %w", err)
	}
	a.conn = conn
	return nil
}

// Disconnect is idempotent: closing an already-closed adapter is a no-op.
func (a *FTPAdapter) Disconnect() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Quit()
	a.conn = nil
	return err
}

// List returns the directory contents as Unix long-format lines. The client
// library pre-parses LIST responses, so entries are re-rendered into the
// ownerless long shape shared with the SFTP family. An empty path lists the
// current directory.
func (a *FTPAdapter) List(dirPath string) ([]string, error) {
	if a.conn == nil {
		return nil, ErrNotConnected
	}
	entries, err := a.conn.List(dirPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dirPath, err)
	}
	return renderLongLines(entries), nil
}

// renderLongLines re-renders the client library's pre-parsed entries into the
// ownerless long shape shared with the SFTP family.
func renderLongLines(entries []*ftp.Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		mode := ""
		if e.Type == ftp.EntryTypeLink {
			mode = "lrwxrwxrwx"
		}
		lines = append(lines, FormatLong(e.Name, e.Type == ftp.EntryTypeFolder, int64(e.Size), mode, "", "", e.Time))
	}
	return lines
}

func (a *FTPAdapter) CurrentDir() string {
	if a.conn == nil {
		return "/"
	}
	dir, err := a.conn.CurrentDir()
	if err != nil {
		return "/"
	}
	return dir
}

func (a *FTPAdapter) ChangeDir(dirPath string) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	if err := a.conn.ChangeDir(dirPath); err != nil {
		return fmt.Errorf("change dir %s: %w", dirPath, err)
	}
	return nil
}

func (a *FTPAdapter) Upload(localPath, remotePath string, progress Progress) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if err := a.conn.Stor(remotePath, &progressReader{r: f, progress: progress}); err != nil {
		return fmt.Errorf("upload %s: %w", remotePath, err)
	}
	return nil
}

func (a *FTPAdapter) Download(remotePath, localPath string, progress Progress) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	resp, err := a.conn.Retr(remotePath)
	if err != nil {
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	defer resp.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local directory: %w", err)
	}
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer out.Close()

	if _, err := copyWithProgress(out, resp, progress); err != nil {
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	return nil
}

func (a *FTPAdapter) DeleteFile(remotePath string) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	if err := a.conn.Delete(remotePath); err != nil {
		return fmt.Errorf("delete %s: %w", remotePath, err)
	}
	return nil
}

func (a *FTPAdapter) CreateDir(remotePath string) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	if err := a.conn.MakeDir(remotePath); err != nil {
		return fmt.Errorf("mkdir %s: %w", remotePath, err)
	}
	return nil
}

func (a *FTPAdapter) Rename(oldPath, newPath string) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	if err := a.conn.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}
	return nil
}

// DeleteDirRecursive removes a directory tree; see deleteTreeStateful for
// the walk the stateful-cursor family requires.
func (a *FTPAdapter) DeleteDirRecursive(remotePath string) error {
	if a.conn == nil {
		return ErrNotConnected
	}
	return deleteTreeStateful(ftpCursor{conn: a.conn}, remotePath)
}

// ftpCursor adapts the control connection to the recursive-delete walk.
type ftpCursor struct {
	conn *ftp.ServerConn
}

func (c ftpCursor) currentDir() (string, error) { return c.conn.CurrentDir() }
func (c ftpCursor) changeDir(p string) error    { return c.conn.ChangeDir(p) }
func (c ftpCursor) deleteFile(p string) error   { return c.conn.Delete(p) }
func (c ftpCursor) removeDir(p string) error    { return c.conn.RemoveDir(p) }

func (c ftpCursor) listLines(p string) ([]string, error) {
	entries, err := c.conn.List(p)
	if err != nil {
		return nil, err
	}
	return renderLongLines(entries), nil
}

// FileInfo gathers what the protocol can tell about a single path: SIZE and
// MDTM when the server supports them, kind and size from the parent listing
// otherwise. Permissions and ownership are not recoverable through this
// client library.
func (a *FTPAdapter) FileInfo(remotePath string) (*FileInfo, error) {
	if a.conn == nil {
		return nil, ErrNotConnected
	}
	info := &FileInfo{Path: remotePath}

	if size, err := a.conn.FileSize(remotePath); err == nil {
		info.Size = size
	}
	if t, err := a.conn.GetTime(remotePath); err == nil {
		info.ModTime = t
	}

	base := path.Base(cleanDirPath(remotePath))
	entries, err := a.conn.List(parentDir(remotePath))
	if err != nil {
		return info, nil
	}
	for _, e := range entries {
		if e.Name != base {
			continue
		}
		info.IsDir = e.Type == ftp.EntryTypeFolder
		if info.Size == 0 {
			info.Size = int64(e.Size)
		}
		if info.ModTime.IsZero() {
			info.ModTime = e.Time
		}
		break
	}
	return info, nil
}
