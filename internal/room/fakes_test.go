package room

import (
	"math/rand"
	"sync"
	"time"

	"dobble-room-server/internal/protocol"
)

// fakeClock is a manually-advanced Clock for deterministic timer tests.
// Advance fires any callback whose deadline has passed, in deadline
// order, synchronously in the calling goroutine — unlike production
// AfterFunc, which runs each callback on a goroutine of its own.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimerEntry
}

type fakeTimerEntry struct {
	due     time.Time
	fn      func()
	stopped bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &fakeTimerEntry{due: c.now.Add(d), fn: f}
	c.pending = append(c.pending, e)
	return e
}

// Advance moves the clock forward and synchronously fires every timer
// whose deadline is now due, in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	var due []*fakeTimerEntry
	var rest []*fakeTimerEntry
	for _, e := range c.pending {
		if !e.stopped && !e.due.After(target) {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	for i := 0; i < len(due); i++ {
		for j := i + 1; j < len(due); j++ {
			if due[j].due.Before(due[i].due) {
				due[i], due[j] = due[j], due[i]
			}
		}
	}
	for _, e := range due {
		e.fn()
	}
}

func (e *fakeTimerEntry) Stop() bool {
	already := e.stopped
	e.stopped = true
	return !already
}

// seededRand wraps math/rand with a fixed seed for reproducible
// shuffles and tie-break draws.
type seededRand struct {
	r *rand.Rand
}

func newSeededRand(seed int64) *seededRand {
	return &seededRand{r: rand.New(rand.NewSource(seed))}
}

func (s *seededRand) Shuffle(n int, swap func(i, j int)) { s.r.Shuffle(n, swap) }
func (s *seededRand) Intn(n int) int                     { return s.r.Intn(n) }

// fakeSender records every envelope sent to it, for assertions.
type fakeSender struct {
	mu     sync.Mutex
	sent   []protocol.Envelope
	closed bool
}

func newFakeSender() *fakeSender { return &fakeSender{} }

func (f *fakeSender) Send(env protocol.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, e := range f.sent {
		out[i] = e.Type
	}
	return out
}

func (f *fakeSender) last(msgType string) (protocol.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Type == msgType {
			return f.sent[i], true
		}
	}
	return protocol.Envelope{}, false
}

func (f *fakeSender) count(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.sent {
		if e.Type == msgType {
			n++
		}
	}
	return n
}
