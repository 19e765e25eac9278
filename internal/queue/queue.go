// Package queue schedules uploads and downloads through a FIFO pending
// queue and a bounded active set, with cooperative pause/resume/cancel.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykushch/ferryman/internal/logging"
	"github.com/ykushch/ferryman/internal/metrics"
	"github.com/ykushch/ferryman/internal/remote"
)

// DefaultCapacity bounds concurrent transfers unless configured otherwise.
const DefaultCapacity = 3

// ErrNoSuchTransfer is returned when an id matches no tracked item.
var ErrNoSuchTransfer = errors.New("no such transfer")

// Runner executes the actual adapter calls. The session manager satisfies
// it.
type Runner interface {
	Upload(localPath, remotePath string, progress remote.Progress) error
	Download(remotePath, localPath string, progress remote.Progress) error
}

// HistorySink receives terminal transfer outcomes; nil disables recording.
type HistorySink interface {
	RecordTransfer(direction, localPath, remotePath, status, errMsg string, size int64, duration time.Duration)
}

// Queue is the transfer scheduler. Promotion is strictly FIFO by enqueue
// order; the scheduler owns execution and starts a goroutine per promoted
// item. All state transitions happen under one lock so promotions never
// interleave.
type Queue struct {
	mu      sync.Mutex
	pending []*Item
	active  []*Item

	capacity   int
	nextID     int64
	speedLimit int64

	runner  Runner
	history HistorySink
	wg      sync.WaitGroup
}

// New builds a queue bound to the runner. Capacity is fixed at
// construction; values < 1 fall back to the default.
func New(runner Runner, capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{runner: runner, capacity: capacity}
}

// SetHistorySink wires terminal-state recording.
func (q *Queue) SetHistorySink(sink HistorySink) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.history = sink
}

// SetSpeedLimit caps aggregate transfer speed per item in bytes/sec;
// 0 means unlimited.
func (q *Queue) SetSpeedLimit(bytesPerSec int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.speedLimit = bytesPerSec
}

// Add enqueues a transfer and immediately attempts promotion. It returns
// the new item's id.
func (q *Queue) Add(direction Direction, localPath, remotePath string, size int64) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	item := &Item{
		ID:         q.nextID,
		Direction:  direction,
		LocalPath:  localPath,
		RemotePath: remotePath,
		Size:       size,
		status:     StatusPending,
		parked:     true,
	}
	q.pending = append(q.pending, item)
	logging.L().Debug("transfer queued",
		zap.Int64("id", item.ID),
		zap.String("direction", string(direction)),
		zap.String("remote", remotePath))
	q.promoteLocked()
	return item.ID
}

// promoteLocked starts pending items while transfer slots remain. Terminal
// items stay in the active list for display until ClearCompleted; only
// running and paused items occupy slots. Callers hold q.mu.
func (q *Queue) promoteLocked() {
	occupied := 0
	for _, it := range q.active {
		if it.status == StatusRunning || it.status == StatusPaused {
			occupied++
		}
	}

	for occupied < q.capacity && len(q.pending) > 0 {
		item := q.pending[0]
		q.pending = q.pending[1:]
		if item.status != StatusPending {
			continue
		}
		item.status = StatusRunning
		item.stop.Store(false)
		item.startedAt = time.Now()
		q.active = append(q.active, item)
		occupied++
		if q.runner != nil {
			item.parked = false
			q.wg.Add(1)
			go q.execute(item)
		}
	}

	q.updateGaugesLocked()
}

func (q *Queue) updateGaugesLocked() {
	running := 0
	for _, it := range q.active {
		if it.status == StatusRunning {
			running++
		}
	}
	metrics.SetActiveTransfers(running)
	metrics.SetQueuedTransfers(len(q.pending))
}

// execute runs one promoted transfer on its own goroutine and feeds the
// terminal outcome back into the queue.
func (q *Queue) execute(item *Item) {
	defer q.wg.Done()

	start := time.Now()
	progress := func(n int64) error {
		if item.stopped() {
			return remote.ErrCancelled
		}
		q.mu.Lock()
		delta := n - item.transferred
		item.transferred = n
		if item.Size > 0 {
			pct := float64(n) / float64(item.Size) * 100
			if pct > 100 {
				pct = 100
			}
			item.progress = pct
		}
		elapsed := time.Since(start)
		if elapsed > 0 {
			item.speed = int64(float64(n) / elapsed.Seconds())
		}
		if item.speed > 0 && item.Size > n {
			item.eta = time.Duration(float64(item.Size-n)/float64(item.speed)) * time.Second
		}
		limit := q.speedLimit
		q.mu.Unlock()

		metrics.AddTransferBytes(string(item.Direction), delta)
		if limit > 0 {
			throttle(n, start, limit)
		}
		return nil
	}

	var err error
	if item.Direction == DirectionUpload {
		err = q.runner.Upload(item.LocalPath, item.RemotePath, progress)
	} else {
		err = q.runner.Download(item.RemotePath, item.LocalPath, progress)
	}
	q.finish(item, err, start)
}

// finish applies the executor's outcome. A pause observed mid-transfer is
// not terminal: the item keeps its slot and its accumulated progress until
// resumed or cancelled.
func (q *Queue) finish(item *Item, err error, start time.Time) {
	q.mu.Lock()
	item.parked = true
	switch {
	case item.status == StatusPaused:
		if item.resumeRequested {
			item.resumeRequested = false
			q.requeueLocked(item)
		}
		q.mu.Unlock()
		return
	case item.status == StatusCancelled:
		// Removed from the collections by Cancel; just record it.
	case err == nil:
		item.status = StatusCompleted
		item.progress = 100
	case errors.Is(err, remote.ErrCancelled):
		item.status = StatusCancelled
	default:
		item.status = StatusFailed
		item.errMsg = err.Error()
	}
	status := item.status
	snap := item.snapshot()
	q.promoteLocked()
	history := q.history
	q.mu.Unlock()

	metrics.RecordTransfer(string(item.Direction), string(status))
	if status == StatusFailed {
		logging.L().Warn("transfer failed",
			zap.Int64("id", item.ID),
			zap.String("remote", item.RemotePath),
			zap.String("error", snap.Error))
	} else {
		logging.L().Info("transfer finished",
			zap.Int64("id", item.ID),
			zap.String("status", string(status)))
	}
	if history != nil {
		history.RecordTransfer(string(item.Direction), item.LocalPath, item.RemotePath,
			string(status), snap.Error, snap.Transferred, time.Since(start))
	}
}

// Pause sets the cancellation signal on a running item; the executing task
// observes it at the next chunk boundary. The item keeps its slot and
// progress.
func (q *Queue) Pause(id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.active {
		if it.ID == id && it.status == StatusRunning {
			it.status = StatusPaused
			it.stop.Store(true)
			q.updateGaugesLocked()
			return nil
		}
	}
	return fmt.Errorf("pause %d: %w", id, ErrNoSuchTransfer)
}

// Resume re-enqueues a paused item as pending with a cleared signal and
// untouched progress, then attempts promotion. If the paused executor has
// not unwound yet, the resume is applied as soon as it does.
func (q *Queue) Resume(id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.active {
		if it.ID == id && it.status == StatusPaused {
			if !it.parked {
				it.resumeRequested = true
				return nil
			}
			q.requeueLocked(it)
			return nil
		}
	}
	return fmt.Errorf("resume %d: %w", id, ErrNoSuchTransfer)
}

// requeueLocked moves a paused, parked item back to the pending queue with
// its signal cleared and its progress untouched. Callers hold q.mu.
func (q *Queue) requeueLocked(item *Item) {
	item.status = StatusPending
	item.stop.Store(false)
	for i, it := range q.active {
		if it == item {
			q.active = append(q.active[:i], q.active[i+1:]...)
			break
		}
	}
	q.pending = append(q.pending, item)
	q.promoteLocked()
}

// Cancel removes an item from whichever collection holds it. A running
// item's task stops cooperatively at the next chunk.
func (q *Queue) Cancel(id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.active {
		if it.ID == id {
			it.status = StatusCancelled
			it.stop.Store(true)
			q.active = append(q.active[:i], q.active[i+1:]...)
			q.promoteLocked()
			return nil
		}
	}
	for i, it := range q.pending {
		if it.ID == id {
			it.status = StatusCancelled
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.updateGaugesLocked()
			return nil
		}
	}
	return fmt.Errorf("cancel %d: %w", id, ErrNoSuchTransfer)
}

// ClearCompleted drops every item in a terminal state from both
// collections. Calling it again is a no-op.
func (q *Queue) ClearCompleted() {
	q.mu.Lock()
	defer q.mu.Unlock()
	keepActive := q.active[:0]
	for _, it := range q.active {
		if !it.status.Terminal() {
			keepActive = append(keepActive, it)
		}
	}
	q.active = keepActive
	keepPending := q.pending[:0]
	for _, it := range q.pending {
		if !it.status.Terminal() {
			keepPending = append(keepPending, it)
		}
	}
	q.pending = keepPending
	q.updateGaugesLocked()
}

// GetAll returns a display snapshot: active items first, then pending, each
// copied so callers never touch internal state.
func (q *Queue) GetAll() []Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Snapshot, 0, len(q.active)+len(q.pending))
	for _, it := range q.active {
		out = append(out, it.snapshot())
	}
	for _, it := range q.pending {
		out = append(out, it.snapshot())
	}
	return out
}

// Get returns a single item's snapshot.
func (q *Queue) Get(id int64) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.active {
		if it.ID == id {
			return it.snapshot(), nil
		}
	}
	for _, it := range q.pending {
		if it.ID == id {
			return it.snapshot(), nil
		}
	}
	return Snapshot{}, ErrNoSuchTransfer
}

// ActiveCount reports items currently occupying transfer slots (running or
// paused).
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.active {
		if it.status == StatusRunning || it.status == StatusPaused {
			n++
		}
	}
	return n
}

// Wait blocks until every started transfer goroutine has returned. Used at
// shutdown.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// throttle sleeps long enough to keep the observed rate at or under the
// limit.
func throttle(transferred int64, start time.Time, limit int64) {
	expected := time.Duration(float64(transferred) / float64(limit) * float64(time.Second))
	if elapsed := time.Since(start); expected > elapsed {
		time.Sleep(expected - elapsed)
	}
}
