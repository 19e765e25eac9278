package remote

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var (
	_ Adapter          = (*SFTPAdapter)(nil)
	_ PermissionSetter = (*SFTPAdapter)(nil)
	_ TimeSetter       = (*SFTPAdapter)(nil)
)

// SFTPAdapter speaks the stateless-path family: every call addresses the
// server by path and no cursor lives server-side. The current directory the
// contract requires is emulated client-side, the way SFTP clients
// conventionally do.
type SFTPAdapter struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration

	sshClient *ssh.Client
	client    *sftp.Client
	cwd       string
}

// NewSFTP builds an adapter for file transfer over SSH. Port 0 selects 22.
func NewSFTP(host string, port int, username, password string) *SFTPAdapter {
	return &SFTPAdapter{
		host:     host,
		port:     port,
		username: username,
		password: password,
		timeout:  DefaultConnectTimeout,
	}
}

// SetTimeout overrides the dial timeout. Must be called before Connect.
func (a *SFTPAdapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.timeout = d
	}
}

func (a *SFTPAdapter) Connect() error {
	if err := ValidateEndpoint(a.host, a.port); err != nil {
		return err
	}
	port := a.port
	if port == 0 {
		port = 22
	}

	config := &ssh.ClientConfig{
		User: a.username,
		Auth: []ssh.AuthMethod{ssh.Password(a.password)},
		// Host key pinning is delegated to the secure-channel layer by the
		// callers that need it.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         a.timeout,
	}

	sshClient, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", a.host, port), config)
	if err != nil {
		return fmt.Errorf("dial %s:%d: %w", a.host, port, err)
	}

	// The file-transfer subsystem runs on a dedicated channel over the
	// established SSH connection.
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return fmt.Errorf("open sftp channel: %w", err)
	}

	a.sshClient = sshClient
	a.client = client
	if wd, err := client.Getwd(); err == nil && wd != "" {
		a.cwd = wd
	} else {
		a.cwd = "/"
	}
	return nil
}

func (a *SFTPAdapter) Disconnect() error {
	var errs *multierror.Error
	if a.client != nil {
		errs = multierror.Append(errs, a.client.Close())
		a.client = nil
	}
	if a.sshClient != nil {
		errs = multierror.Append(errs, a.sshClient.Close())
		a.sshClient = nil
	}
	return errs.ErrorOrNil()
}

// abs resolves p against the emulated current directory.
func (a *SFTPAdapter) abs(p string) string {
	if p == "" {
		return a.cwd
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Clean(joinRemote(a.cwd, p))
}

// List returns directory contents rendered into the same long-format lines
// the stateful family's consumers expect.
func (a *SFTPAdapter) List(dirPath string) ([]string, error) {
	if a.client == nil {
		return nil, ErrNotConnected
	}
	target := a.abs(dirPath)
	infos, err := a.client.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", target, err)
	}
	lines := make([]string, 0, len(infos))
	for _, fi := range infos {
		owner, group := ownership(fi)
		lines = append(lines, FormatLong(fi.Name(), fi.IsDir(), fi.Size(), fi.Mode().String(), owner, group, fi.ModTime()))
	}
	return lines, nil
}

func (a *SFTPAdapter) CurrentDir() string {
	if a.client == nil || a.cwd == "" {
		return "/"
	}
	return a.cwd
}

func (a *SFTPAdapter) ChangeDir(dirPath string) error {
	if a.client == nil {
		return ErrNotConnected
	}
	target := a.abs(dirPath)
	fi, err := a.client.Stat(target)
	if err != nil {
		return fmt.Errorf("change dir %s: %w", target, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("change dir %s: not a directory", target)
	}
	a.cwd = target
	return nil
}

func (a *SFTPAdapter) Upload(localPath, remotePath string, progress Progress) error {
	if a.client == nil {
		return ErrNotConnected
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	target := a.abs(remotePath)
	dst, err := a.client.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := copyWithProgress(dst, src, progress); err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	return nil
}

func (a *SFTPAdapter) Download(remotePath, localPath string, progress Progress) error {
	if a.client == nil {
		return ErrNotConnected
	}
	target := a.abs(remotePath)
	src, err := a.client.Open(target)
	if err != nil {
		return fmt.Errorf("download %s: %w", target, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local directory: %w", err)
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := copyWithProgress(dst, src, progress); err != nil {
		return fmt.Errorf("download %s: %w", target, err)
	}
	return nil
}

func (a *SFTPAdapter) DeleteFile(remotePath string) error {
	if a.client == nil {
		return ErrNotConnected
	}
	target := a.abs(remotePath)
	if err := a.client.Remove(target); err != nil {
		return fmt.Errorf("delete %s: %w", target, err)
	}
	return nil
}

func (a *SFTPAdapter) CreateDir(remotePath string) error {
	if a.client == nil {
		return ErrNotConnected
	}
	target := a.abs(remotePath)
	if err := a.client.Mkdir(target); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}
	return nil
}

func (a *SFTPAdapter) Rename(oldPath, newPath string) error {
	if a.client == nil {
		return ErrNotConnected
	}
	if err := a.client.Rename(a.abs(oldPath), a.abs(newPath)); err != nil {
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}
	return nil
}

// DeleteDirRecursive removes a directory tree; see deleteTreeStateless for
// the bottom-up walk the stateless-path family uses.
func (a *SFTPAdapter) DeleteDirRecursive(remotePath string) error {
	if a.client == nil {
		return ErrNotConnected
	}
	return deleteTreeStateless(sftpPaths{client: a.client}, a.abs(remotePath))
}

// sftpPaths adapts the SFTP client to the recursive-delete walk.
type sftpPaths struct {
	client *sftp.Client
}

func (c sftpPaths) stat(p string) (os.FileInfo, error)      { return c.client.Stat(p) }
func (c sftpPaths) readDir(p string) ([]os.FileInfo, error) { return c.client.ReadDir(p) }
func (c sftpPaths) remove(p string) error                   { return c.client.Remove(p) }
func (c sftpPaths) removeDirectory(p string) error          { return c.client.RemoveDirectory(p) }

func (a *SFTPAdapter) FileInfo(remotePath string) (*FileInfo, error) {
	if a.client == nil {
		return nil, ErrNotConnected
	}
	target := a.abs(remotePath)
	fi, err := a.client.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", target, err)
	}
	owner, group := ownership(fi)
	return &FileInfo{
		Path:        target,
		Size:        fi.Size(),
		ModTime:     fi.ModTime(),
		Permissions: fi.Mode().String(),
		Owner:       owner,
		Group:       group,
		IsDir:       fi.IsDir(),
	}, nil
}

// SetPermissions implements the optional PermissionSetter capability.
func (a *SFTPAdapter) SetPermissions(remotePath string, mode os.FileMode) error {
	if a.client == nil {
		return ErrNotConnected
	}
	target := a.abs(remotePath)
	if err := a.client.Chmod(target, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", target, err)
	}
	return nil
}

// SetModTime implements the optional TimeSetter capability.
func (a *SFTPAdapter) SetModTime(remotePath string, t time.Time) error {
	if a.client == nil {
		return ErrNotConnected
	}
	target := a.abs(remotePath)
	if err := a.client.Chtimes(target, t, t); err != nil {
		return fmt.Errorf("set mtime %s: %w", target, err)
	}
	return nil
}

// ownership extracts numeric uid/gid from the SFTP attributes when present.
func ownership(fi os.FileInfo) (string, string) {
	if st, ok := fi.Sys().(*sftp.FileStat); ok {
		return strconv.FormatUint(uint64(st.UID), 10), strconv.FormatUint(uint64(st.GID), 10)
	}
	return "", ""
}
