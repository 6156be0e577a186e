package pipefs

import (
	"context"
	"sync"
)

// token is the cancellation token of one pipe incarnation. Removal
// cancels it; every waiter checks its own token right after waking, so a
// pipe re-created in the same slot never satisfies a stale waiter.
// Guarded by the pipe lock.
type token struct {
	cancelled bool
}

func (t *token) cancel() { t.cancelled = true }

// signal is one side of the rendezvous: readers park on the
// data-available signal, writers on the space-available one. It is a
// condition variable on the pipe lock; notify wakes every waiter and each
// re-evaluates the protocol state for itself.
type signal struct {
	cond    *sync.Cond
	waiters int
}

func newSignal(l sync.Locker) *signal {
	return &signal{cond: sync.NewCond(l)}
}

func (s *signal) notify() {
	s.cond.Broadcast()
}

// park blocks once. The caller holds the pipe lock. Context cancellation
// wakes the waiter and is reported after the token check.
func (s *signal) park(ctx context.Context, tok *token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			s.cond.L.Lock()
			s.cond.Broadcast()
			s.cond.L.Unlock()
		})
		defer stop()
	}

	s.waiters++
	s.cond.Wait()
	s.waiters--

	if tok.cancelled {
		return ErrRemoved
	}
	return ctx.Err()
}

// await blocks until ready holds or tok is cancelled. It is used inside a
// transfer, where only removal may interrupt the caller.
func (s *signal) await(tok *token, ready func() bool) error {
	for {
		if tok.cancelled {
			return ErrRemoved
		}
		if ready() {
			return nil
		}
		s.waiters++
		s.cond.Wait()
		s.waiters--
	}
}
