package queue

import (
	"sync/atomic"
	"time"
)

// Direction of a transfer.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// Status is a transfer's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Item is one unit of transfer work. Mutable fields are guarded by the
// queue's lock; the cancellation flag is the only state the executing
// goroutine reads without it.
type Item struct {
	ID         int64
	Direction  Direction
	LocalPath  string
	RemotePath string
	Size       int64

	status Status
	// parked is true when no executor goroutine owns the item; a resume
	// that arrives before the paused executor unwinds is deferred via
	// resumeRequested instead of double-starting the transfer.
	parked          bool
	resumeRequested bool

	progress    float64
	speed       int64
	eta         time.Duration
	transferred int64
	errMsg      string
	startedAt   time.Time

	stop atomic.Bool
}

func (it *Item) stopped() bool { return it.stop.Load() }

// Snapshot is the read-only copy of an item handed to callers; the queue
// never exposes its internal collections or live items.
type Snapshot struct {
	ID          int64
	Direction   Direction
	LocalPath   string
	RemotePath  string
	Size        int64
	Status      Status
	Progress    float64
	Speed       int64
	ETA         time.Duration
	Transferred int64
	Error       string
}

func (it *Item) snapshot() Snapshot {
	return Snapshot{
		ID:          it.ID,
		Direction:   it.Direction,
		LocalPath:   it.LocalPath,
		RemotePath:  it.RemotePath,
		Size:        it.Size,
		Status:      it.status,
		Progress:    it.progress,
		Speed:       it.speed,
		ETA:         it.eta,
		Transferred: it.transferred,
		Error:       it.errMsg,
	}
}
