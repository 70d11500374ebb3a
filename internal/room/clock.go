package room

import (
	"math/rand"
	"time"
)

// Timer is the minimal handle a scheduled callback returns; time.Timer
// already satisfies it.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall-clock reads and deferred-callback scheduling so
// the Room's timer discipline (spec.md §4.3/§5) can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// NewRealClock returns the production Clock backed by time.Now/time.AfterFunc.
func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RandSource abstracts randomness so shuffling and arbitration tie-breaks
// stay deterministic under test, per spec.md §8's "shuffling is the only
// source of game-start entropy."
type RandSource interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
}

type realRand struct {
	r *rand.Rand
}

// NewRealRand returns a RandSource seeded from the current time.
func NewRealRand() RandSource {
	return &realRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *realRand) Shuffle(n int, swap func(i, j int)) { r.r.Shuffle(n, swap) }
func (r *realRand) Intn(n int) int                     { return r.r.Intn(n) }
