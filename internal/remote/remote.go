// Package remote defines the capability contract shared by both protocol
// families and provides the FTP (stateful-cursor) and SFTP (stateless-path)
// adapters behind it.
package remote

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Protocol identifies an adapter family.
type Protocol string

const (
	ProtocolFTP  Protocol = "ftp"  // plain FTP
	ProtocolFTPS Protocol = "ftps" // FTP over explicit TLS
	ProtocolSFTP Protocol = "sftp" // file transfer over SSH
)

// DefaultConnectTimeout bounds the initial dial of both families.
const DefaultConnectTimeout = 10 * time.Second

// ErrNotConnected is returned by operations issued before Connect succeeded
// or after Disconnect.
var ErrNotConnected = errors.New("not connected")

// ErrCancelled aborts an in-flight transfer when the progress callback asks
// the copy loop to stop.
var ErrCancelled = errors.New("transfer cancelled")

// Progress is invoked from the transfer copy loop after every chunk with the
// cumulative byte count. It runs on the transfer's goroutine and must be
// cheap. Returning a non-nil error aborts the transfer; return ErrCancelled
// for cooperative cancellation.
type Progress func(transferred int64) error

// FileInfo carries the per-entry detail an adapter can recover for a single
// remote path. Optional fields are zero when the protocol does not yield
// them.
type FileInfo struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Permissions string
	Owner       string
	Group       string
	IsDir       bool
}

// Adapter is the uniform remote-filesystem contract. Exactly one adapter is
// live at a time (single-connection model); the session manager owns it.
//
// List returns Unix long-format lines for display-compatibility across both
// families; ParseLines turns them into structured entries. All operations
// report failure through error values only.
type Adapter interface {
	Connect() error
	Disconnect() error
	List(path string) ([]string, error)
	CurrentDir() string
	ChangeDir(path string) error
	Upload(localPath, remotePath string, progress Progress) error
	Download(remotePath, localPath string, progress Progress) error
	DeleteFile(path string) error
	CreateDir(path string) error
	Rename(oldPath, newPath string) error
	DeleteDirRecursive(path string) error
	FileInfo(path string) (*FileInfo, error)
}

// PermissionSetter is an optional capability: callers must probe for it
// before use. The FTP family does not advertise it because the client
// library exposes no SITE command hook.
type PermissionSetter interface {
	SetPermissions(path string, mode os.FileMode) error
}

// TimeSetter is an optional capability for adjusting remote modification
// times. Only the SFTP family implements it.
type TimeSetter interface {
	SetModTime(path string, t time.Time) error
}

// transferChunk is the copy-loop granularity; progress and cancellation are
// observed between chunks.
const transferChunk = 32 * 1024

// ValidateEndpoint rejects unusable connection parameters before any socket
// is opened. Port 0 means "use the protocol default".
func ValidateEndpoint(host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return &ValidationError{Field: "host", Reason: "host cannot be empty"}
	}
	if port != 0 && (port < 1 || port > 65535) {
		return &ValidationError{Field: "port", Reason: fmt.Sprintf("port %d outside range 1-65535", port)}
	}
	return nil
}

// ValidationError marks input rejected before any network attempt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// cleanDirPath strips a trailing slash from p without ever reducing the root
// to an empty string.
func cleanDirPath(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// joinRemote concatenates a directory and a child name using forward slashes
// regardless of the local OS.
func joinRemote(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return cleanDirPath(dir) + "/" + name
}

// parentDir returns the parent of p; the root is its own parent.
func parentDir(p string) string {
	p = cleanDirPath(p)
	if p == "/" {
		return "/"
	}
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}
