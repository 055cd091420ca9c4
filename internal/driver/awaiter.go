package driver

import (
	"sync"
	"time"

	"github.com/zwavelink/zwave-driver/internal/cc"
)

// ErrAwaitTimeout is delivered to an awaiter's reply channel when its
// deadline elapses before a matching CC arrives.
type ErrAwaitTimeout struct{}

func (ErrAwaitTimeout) Error() string { return "driver: timed out waiting for a matching command class" }

// awaitResult is what an awaiter's one-shot reply channel carries.
type awaitResult struct {
	cc  cc.WithAddress[cc.CC]
	err error
}

type awaiter struct {
	predicate func(cc.WithAddress[cc.CC]) bool
	reply     chan awaitResult
	timer     *time.Timer
}

// awaiterRegistry is the FIFO-ordered set of pending AwaitCC
// registrations. A runtime timer per awaiter stands
// in for the original's single-threaded min-deadline sleep loop: Go's
// scheduler already wakes the right goroutine at the right time, so a
// hand-rolled "sleep until the soonest deadline" loop would just be
// reimplementing time.AfterFunc.
type awaiterRegistry struct {
	mu       sync.Mutex
	awaiters []*awaiter
}

func newAwaiterRegistry() *awaiterRegistry {
	return &awaiterRegistry{}
}

// Register adds an awaiter and returns a channel that receives exactly
// once: either the first matching CC, or ErrAwaitTimeout if timeout
// elapses first. A zero timeout means "wait forever".
func (r *awaiterRegistry) Register(predicate func(cc.WithAddress[cc.CC]) bool, timeout time.Duration) <-chan awaitResult {
	reply := make(chan awaitResult, 1)
	a := &awaiter{predicate: predicate, reply: reply}

	r.mu.Lock()
	r.awaiters = append(r.awaiters, a)
	r.mu.Unlock()

	if timeout > 0 {
		a.timer = time.AfterFunc(timeout, func() {
			if r.remove(a) {
				reply <- awaitResult{err: ErrAwaitTimeout{}}
			}
		})
	}
	return reply
}

// Dispatch offers addressed to every pending awaiter in FIFO order,
// removing and fulfilling the first one whose predicate matches. Returns
// true if an awaiter consumed it.
func (r *awaiterRegistry) Dispatch(addressed cc.WithAddress[cc.CC]) bool {
	r.mu.Lock()
	var match *awaiter
	for i, a := range r.awaiters {
		if a.predicate(addressed) {
			match = a
			r.awaiters = append(r.awaiters[:i:i], r.awaiters[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if match == nil {
		return false
	}
	if match.timer != nil {
		match.timer.Stop()
	}
	match.reply <- awaitResult{cc: addressed}
	return true
}

// remove deletes a from the registry if still present, returning whether
// it was found (i.e. had not already been matched by Dispatch).
func (r *awaiterRegistry) remove(a *awaiter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.awaiters {
		if existing == a {
			r.awaiters = append(r.awaiters[:i:i], r.awaiters[i+1:]...)
			return true
		}
	}
	return false
}
