// Package session owns the single live protocol adapter and the connection
// lifecycle around it.
package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykushch/ferryman/internal/logging"
	"github.com/ykushch/ferryman/internal/metrics"
	"github.com/ykushch/ferryman/internal/remote"
)

// Profile is a saved connection: which protocol to speak and where.
// Immutable once handed to Connect.
type Profile struct {
	Name     string
	Protocol remote.Protocol
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Favorite bool
	LastUsed time.Time
}

// ProfileStore is the slice of the persistence layer the manager needs:
// upsert-by-name on successful connect.
type ProfileStore interface {
	Save(ctx context.Context, p Profile) error
}

// ConnectError carries the classified category alongside the user-facing
// message.
type ConnectError struct {
	Category remote.Category
	Message  string
}

func (e *ConnectError) Error() string { return e.Message }

// Manager maintains at most one live session system-wide. Cursor-mutating
// operations on the stateful family (change-directory, recursive delete)
// serialize on an internal lock; absolute-path transfers run concurrently.
type Manager struct {
	mu       sync.RWMutex
	adapter  remote.Adapter
	profile  Profile
	connName string

	// cursorMu guards the shared server-side current-directory pointer.
	cursorMu sync.Mutex

	store   ProfileStore
	factory func(Profile) (remote.Adapter, error)
}

// NewManager builds a manager. store may be nil to disable profile
// persistence.
func NewManager(store ProfileStore) *Manager {
	return &Manager{store: store, factory: NewAdapter}
}

// NewManagerWithFactory injects an adapter factory; used by tests.
func NewManagerWithFactory(store ProfileStore, factory func(Profile) (remote.Adapter, error)) *Manager {
	return &Manager{store: store, factory: factory}
}

// Connect validates the profile, opens the matching adapter and records the
// session. An existing session is torn down first, which keeps the
// single-connection invariant and makes repeated connects safe. On success
// the profile is upserted into the store for reuse.
func (m *Manager) Connect(ctx context.Context, p Profile) error {
	if err := validateProfile(p); err != nil {
		return &ConnectError{Category: remote.CategoryValidation, Message: err.Error()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.adapter != nil {
		_ = m.adapter.Disconnect()
		m.adapter = nil
	}

	adapter, err := m.factory(p)
	if err != nil {
		return &ConnectError{Category: remote.CategoryValidation, Message: err.Error()}
	}
	if err := adapter.Connect(); err != nil {
		metrics.RecordConnect(string(p.Protocol), false)
		cat, msg := remote.Describe(err, p.Host, p.Port)
		logging.L().Warn("connect failed",
			zap.String("host", p.Host),
			zap.String("protocol", string(p.Protocol)),
			zap.String("category", cat.String()),
			zap.Error(err))
		return &ConnectError{Category: cat, Message: msg}
	}

	m.adapter = adapter
	m.profile = p
	m.connName = fmt.Sprintf("%s@%s:%d", p.Username, p.Host, p.Port)
	metrics.RecordConnect(string(p.Protocol), true)
	logging.L().Info("connected",
		zap.String("connection", m.connName),
		zap.String("protocol", string(p.Protocol)))

	if m.store != nil {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("%s@%s", p.Username, p.Host)
		}
		saved := p
		saved.Name = name
		saved.LastUsed = time.Now()
		if err := m.store.Save(ctx, saved); err != nil {
			logging.L().Warn("profile save failed", zap.String("name", name), zap.Error(err))
		}
	}
	return nil
}

// Disconnect tears down the session. Calling it while disconnected is a
// successful no-op.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adapter == nil {
		return nil
	}
	err := m.adapter.Disconnect()
	m.adapter = nil
	m.connName = ""
	logging.L().Info("disconnected")
	return err
}

// Connected reports whether a session is live.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adapter != nil
}

// ConnectionName returns "user@host:port" for the live session, or "".
func (m *Manager) ConnectionName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connName
}

// Profile returns the profile of the live session.
func (m *Manager) Profile() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// current returns the live adapter or fails fast.
func (m *Manager) current() (remote.Adapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.adapter == nil {
		return nil, remote.ErrNotConnected
	}
	return m.adapter, nil
}

// finish inspects an operation error: a fatal transport error means the
// session is gone, so the manager tears down and requires a fresh connect.
func (m *Manager) finish(err error) error {
	if err == nil || !remote.IsFatal(err) {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adapter != nil {
		logging.L().Warn("session lost", zap.String("connection", m.connName), zap.Error(err))
		_ = m.adapter.Disconnect()
		m.adapter = nil
		m.connName = ""
	}
	return err
}

// List lists a remote directory as long-format lines.
func (m *Manager) List(path string) ([]string, error) {
	a, err := m.current()
	if err != nil {
		return nil, err
	}
	lines, err := a.List(path)
	return lines, m.finish(err)
}

// CurrentDir returns the session's working directory ("/" fallback).
func (m *Manager) CurrentDir() string {
	a, err := m.current()
	if err != nil {
		return "/"
	}
	return a.CurrentDir()
}

// ChangeDir moves the shared cursor; serialized against other cursor users.
func (m *Manager) ChangeDir(path string) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	m.cursorMu.Lock()
	defer m.cursorMu.Unlock()
	return m.finish(a.ChangeDir(path))
}

// Upload transfers a local file to the remote side.
func (m *Manager) Upload(localPath, remotePath string, progress remote.Progress) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	return m.finish(a.Upload(localPath, remotePath, progress))
}

// Download transfers a remote file to the local side.
func (m *Manager) Download(remotePath, localPath string, progress remote.Progress) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	return m.finish(a.Download(remotePath, localPath, progress))
}

// DeleteFile removes a single remote file.
func (m *Manager) DeleteFile(path string) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	return m.finish(a.DeleteFile(path))
}

// CreateDir creates a remote directory.
func (m *Manager) CreateDir(path string) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	return m.finish(a.CreateDir(path))
}

// Rename renames a remote file or directory.
func (m *Manager) Rename(oldPath, newPath string) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	return m.finish(a.Rename(oldPath, newPath))
}

// DeleteDirRecursive removes a directory tree. The stateful family's
// save/restore cursor dance makes this a cursor-mutating operation.
func (m *Manager) DeleteDirRecursive(path string) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	m.cursorMu.Lock()
	defer m.cursorMu.Unlock()
	return m.finish(a.DeleteDirRecursive(path))
}

// FileInfo fetches per-entry detail for one path.
func (m *Manager) FileInfo(path string) (*remote.FileInfo, error) {
	a, err := m.current()
	if err != nil {
		return nil, err
	}
	info, err := a.FileInfo(path)
	return info, m.finish(err)
}

// SetPermissions probes the optional capability and applies the mode.
func (m *Manager) SetPermissions(path string, mode os.FileMode) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	setter, ok := a.(remote.PermissionSetter)
	if !ok {
		return fmt.Errorf("permission editing not supported by %s", m.profile.Protocol)
	}
	return m.finish(setter.SetPermissions(path, mode))
}

// SetModTime probes the optional capability and applies the time.
func (m *Manager) SetModTime(path string, t time.Time) error {
	a, err := m.current()
	if err != nil {
		return err
	}
	setter, ok := a.(remote.TimeSetter)
	if !ok {
		return fmt.Errorf("modification-time editing not supported by %s", m.profile.Protocol)
	}
	return m.finish(setter.SetModTime(path, t))
}

func validateProfile(p Profile) error {
	if err := remote.ValidateEndpoint(p.Host, p.Port); err != nil {
		return err
	}
	if strings.TrimSpace(p.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	return nil
}
