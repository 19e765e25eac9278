// Package refresh serializes directory listing refreshes. Any number of
// requests arriving while a refresh is in flight coalesce into exactly one
// follow-up pass.
package refresh

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykushch/ferryman/internal/logging"
	"github.com/ykushch/ferryman/internal/metrics"
	"github.com/ykushch/ferryman/internal/remote"
)

// Lister is the slice of the session surface a refresh needs. The session
// manager satisfies it.
type Lister interface {
	CurrentDir() string
	List(path string) ([]string, error)
}

// Result carries one successful refresh: the resolved directory and its
// parsed entries.
type Result struct {
	Path    string
	Entries []remote.Entry
}

// Coordinator runs at most one refresh at a time. Callbacks fire on the
// worker goroutine; a failed refresh reports the error and leaves whatever
// the consumer displayed from the previous pass untouched.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	pending  bool

	lister   Lister
	onResult func(Result)
	onError  func(error)
}

// New builds a coordinator. Either callback may be nil.
func New(lister Lister, onResult func(Result), onError func(error)) *Coordinator {
	return &Coordinator{lister: lister, onResult: onResult, onError: onError}
}

// Request asks for a refresh. If one is already running the request is
// remembered; all requests observed before the running pass finishes fold
// into a single follow-up.
func (c *Coordinator) Request() {
	c.mu.Lock()
	if c.inFlight {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()
	go c.run()
}

func (c *Coordinator) run() {
	for {
		c.refreshOnce()

		c.mu.Lock()
		if c.pending {
			c.pending = false
			c.mu.Unlock()
			continue
		}
		c.inFlight = false
		c.mu.Unlock()
		return
	}
}

func (c *Coordinator) refreshOnce() {
	start := time.Now()
	path := c.lister.CurrentDir()
	lines, err := c.lister.List("")
	if err != nil {
		logging.L().Warn("refresh failed",
			zap.String("path", path),
			zap.Error(err))
		if c.onError != nil {
			c.onError(err)
		}
		return
	}

	entries := remote.ParseLines(lines)
	metrics.ObserveRefresh(time.Since(start))
	logging.L().Debug("refresh complete",
		zap.String("path", path),
		zap.Int("entries", len(entries)))
	if c.onResult != nil {
		c.onResult(Result{Path: path, Entries: entries})
	}
}
