package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ykushch/ferryman/internal/remote"
)

// fakeRunner simulates adapter transfers. Each call announces itself on
// started, then either waits for its gate (plain mode) or consumes ticks as
// progress callbacks until gated out (tick mode).
type fakeRunner struct {
	mu      sync.Mutex
	started chan string
	gates   map[string]chan error
	ticks   map[string]chan int64
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		started: make(chan string, 16),
		gates:   make(map[string]chan error),
		ticks:   make(map[string]chan int64),
	}
}

func (r *fakeRunner) gate(path string) chan error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gates[path]; !ok {
		r.gates[path] = make(chan error, 1)
	}
	return r.gates[path]
}

func (r *fakeRunner) tick(path string) chan int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ticks[path]; !ok {
		r.ticks[path] = make(chan int64, 16)
	}
	return r.ticks[path]
}

func (r *fakeRunner) run(path string, progress remote.Progress) error {
	r.started <- path
	gate := r.gate(path)
	ticks := r.tick(path)
	for {
		select {
		case err := <-gate:
			return err
		case n := <-ticks:
			if err := progress(n); err != nil {
				return err
			}
		}
	}
}

func (r *fakeRunner) Upload(localPath, remotePath string, progress remote.Progress) error {
	return r.run(remotePath, progress)
}

func (r *fakeRunner) Download(remotePath, localPath string, progress remote.Progress) error {
	return r.run(remotePath, progress)
}

func waitStarted(t *testing.T, r *fakeRunner, want string) {
	t.Helper()
	select {
	case got := <-r.started:
		if got != want {
			t.Fatalf("started %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q to start", want)
	}
}

func waitStatus(t *testing.T, q *Queue, id int64, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := q.Get(id)
		if err == nil && snap.Status == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	snap, _ := q.Get(id)
	t.Fatalf("transfer %d never reached %s (last: %+v)", id, want, snap)
	return Snapshot{}
}

func TestAddPromotesUpToCapacity(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 2)

	a := q.Add(DirectionDownload, "/tmp/a", "/a", 100)
	b := q.Add(DirectionDownload, "/tmp/b", "/b", 100)
	c := q.Add(DirectionDownload, "/tmp/c", "/c", 100)

	waitStarted(t, r, "/a")
	waitStarted(t, r, "/b")

	if got := q.ActiveCount(); got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}
	snapA, _ := q.Get(a)
	snapB, _ := q.Get(b)
	snapC, _ := q.Get(c)
	if snapA.Status != StatusRunning || snapB.Status != StatusRunning {
		t.Errorf("A/B = %s/%s, want running/running", snapA.Status, snapB.Status)
	}
	if snapC.Status != StatusPending {
		t.Errorf("C = %s, want pending", snapC.Status)
	}

	// A finishing frees the slot and promotes C.
	r.gate("/a") <- nil
	waitStatus(t, q, a, StatusCompleted)
	waitStarted(t, r, "/c")
	waitStatus(t, q, c, StatusRunning)

	all := q.GetAll()
	for _, s := range all {
		if s.ID == b && s.Status != StatusRunning {
			t.Errorf("B = %s, want running", s.Status)
		}
	}

	r.gate("/b") <- nil
	r.gate("/c") <- nil
	q.Wait()
}

func TestCapacityInvariantHolds(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 2)

	paths := []string{"/1", "/2", "/3", "/4", "/5"}
	for _, p := range paths {
		q.Add(DirectionUpload, "/tmp"+p, p, 10)
		if got := q.ActiveCount(); got > 2 {
			t.Fatalf("active = %d after add, capacity 2 exceeded", got)
		}
	}
	waitStarted(t, r, "/1")
	waitStarted(t, r, "/2")

	for _, p := range paths {
		r.gate(p) <- nil
	}
	q.Wait()
	if got := q.ActiveCount(); got > 2 {
		t.Fatalf("active = %d after drain, capacity 2 exceeded", got)
	}
}

func TestPauseResumeKeepsProgress(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 1)

	id := q.Add(DirectionDownload, "/tmp/big", "/big", 10000)
	waitStarted(t, r, "/big")

	r.tick("/big") <- 1000
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, _ := q.Get(id)
		if snap.Transferred == 1000 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("progress callback never applied")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := q.Pause(id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	// The executing task observes the signal at the next chunk boundary;
	// the rejected chunk must not advance progress.
	r.tick("/big") <- 2000
	snap := waitStatus(t, q, id, StatusPaused)
	if snap.Transferred != 1000 {
		t.Errorf("transferred = %d, want 1000 (paused chunk must not count)", snap.Transferred)
	}
	if snap.Progress != 10 {
		t.Errorf("progress = %.0f%%, want 10%%", snap.Progress)
	}

	if err := q.Resume(id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitStarted(t, r, "/big")
	got := waitStatus(t, q, id, StatusRunning)
	if got.Transferred != 1000 {
		t.Errorf("resume changed accumulated progress: %d", got.Transferred)
	}

	r.gate("/big") <- nil
	waitStatus(t, q, id, StatusCompleted)
	q.Wait()
}

func TestCancelPendingAndRunning(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 1)

	running := q.Add(DirectionDownload, "/tmp/x", "/x", 10)
	queued := q.Add(DirectionDownload, "/tmp/y", "/y", 10)
	waitStarted(t, r, "/x")

	if err := q.Cancel(queued); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	for _, s := range q.GetAll() {
		if s.ID == queued {
			t.Error("cancelled pending item still listed")
		}
	}

	if err := q.Cancel(running); err != nil {
		t.Fatalf("cancel running: %v", err)
	}
	// Cooperative: the task stops at its next chunk.
	r.tick("/x") <- 5
	q.Wait()
	if got := q.ActiveCount(); got != 0 {
		t.Errorf("active = %d after cancels, want 0", got)
	}

	if err := q.Cancel(999); !errors.Is(err, ErrNoSuchTransfer) {
		t.Errorf("cancel unknown id: %v, want ErrNoSuchTransfer", err)
	}
}

func TestFailureDoesNotAbortQueue(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 1)

	bad := q.Add(DirectionUpload, "/tmp/bad", "/bad", 10)
	good := q.Add(DirectionUpload, "/tmp/good", "/good", 10)
	waitStarted(t, r, "/bad")

	r.gate("/bad") <- errors.New("550 permission denied")
	snap := waitStatus(t, q, bad, StatusFailed)
	if snap.Error == "" {
		t.Error("failed item should carry its error detail")
	}

	waitStarted(t, r, "/good")
	r.gate("/good") <- nil
	waitStatus(t, q, good, StatusCompleted)
	q.Wait()
}

func TestClearCompletedIsIdempotent(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 2)

	a := q.Add(DirectionDownload, "/tmp/a", "/ca", 10)
	waitStarted(t, r, "/ca")
	r.gate("/ca") <- nil
	waitStatus(t, q, a, StatusCompleted)

	b := q.Add(DirectionDownload, "/tmp/b", "/cb", 10)
	waitStarted(t, r, "/cb")

	q.ClearCompleted()
	first := q.GetAll()
	q.ClearCompleted()
	second := q.GetAll()

	if len(first) != 1 || first[0].ID != b {
		t.Fatalf("after clear: %+v, want only the running item", first)
	}
	if len(second) != len(first) {
		t.Errorf("second clear changed state: %d vs %d items", len(second), len(first))
	}

	r.gate("/cb") <- nil
	q.Wait()
}

type recordingSink struct {
	mu      sync.Mutex
	entries []string
}

func (s *recordingSink) RecordTransfer(direction, localPath, remotePath, status, errMsg string, size int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, remotePath+":"+status)
}

func (s *recordingSink) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

func TestTerminalStatesReachHistorySink(t *testing.T) {
	r := newFakeRunner()
	q := New(r, 2)
	sink := &recordingSink{}
	q.SetHistorySink(sink)

	ok := q.Add(DirectionUpload, "/tmp/ok", "/ok", 10)
	bad := q.Add(DirectionUpload, "/tmp/bad", "/hbad", 10)
	waitStarted(t, r, "/ok")
	waitStarted(t, r, "/hbad")

	r.gate("/ok") <- nil
	r.gate("/hbad") <- errors.New("boom")
	waitStatus(t, q, ok, StatusCompleted)
	waitStatus(t, q, bad, StatusFailed)
	q.Wait()

	got := sink.get()
	if len(got) != 2 {
		t.Fatalf("recorded %d entries, want 2: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, e := range got {
		seen[e] = true
	}
	if !seen["/ok:completed"] || !seen["/hbad:failed"] {
		t.Errorf("history entries = %v", got)
	}
}
