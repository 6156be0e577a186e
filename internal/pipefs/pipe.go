package pipefs

import (
	"sync"

	"go.uber.org/zap"
)

// pipe is one slot of the table.
type pipe struct {
	slot int

	// name, size and used are written with both the table lock and mu
	// held, so either lock is enough to read them.
	name string
	size int
	used bool

	mu       sync.Mutex
	state    State
	total    int // bytes of the current write transaction not yet read
	offset   int // read cursor into buf for the current chunk
	filled   bool
	buf      []byte
	tok      *token
	readable *signal
	writable *signal

	log *zap.Logger
}

func newPipe(slot, bufSize int, log *zap.Logger) *pipe {
	p := &pipe{
		slot: slot,
		buf:  make([]byte, bufSize),
		tok:  &token{cancelled: true},
		log:  log,
	}
	p.readable = newSignal(&p.mu)
	p.writable = newSignal(&p.mu)
	return p
}

// apply runs ev through Transition and carries out the resulting step.
// Caller holds mu.
func (p *pipe) apply(ev Event) Step {
	step := Transition(p.state, ev)
	if step.Outcome == OutcomeFail {
		p.log.Debug("Rejected pipe event",
			zap.String("pipe", p.name),
			zap.Stringer("state", p.state),
			zap.Stringer("event", ev.Kind),
		)
		return step
	}

	prev := p.state
	p.state = step.Next
	a := step.Actions

	if a.Has(ActionReset) {
		p.total = 0
		p.offset = 0
		p.filled = false
		p.tok = &token{}
		p.readable = newSignal(&p.mu)
		p.writable = newSignal(&p.mu)
	}
	if a.Has(ActionSetTotal) {
		p.total = ev.Size
	}
	if a.Has(ActionCancel) {
		p.tok.cancel()
	}
	if a.Has(ActionPublishChunk) {
		p.filled = true
		p.readable.notify()
	}
	if a.Has(ActionReleaseChunk) {
		p.filled = false
		p.writable.notify()
	}
	if a.Has(ActionWakeReaders) {
		p.readable.notify()
	}
	if a.Has(ActionWakeWriters) {
		p.writable.notify()
	}

	if prev != step.Next {
		p.log.Debug("Pipe transition",
			zap.String("pipe", p.name),
			zap.Int("slot", p.slot),
			zap.Stringer("from", prev),
			zap.Stringer("to", step.Next),
			zap.Stringer("event", ev.Kind),
			zap.Stringer("actions", a),
		)
	}
	return step
}

// buffered is the number of unread bytes in the current chunk.
func (p *pipe) buffered() int {
	if !p.filled {
		return 0
	}
	return min(len(p.buf)-p.offset, p.total)
}

func (p *pipe) info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Info{
		Handle:         Handle(p.slot),
		Name:           p.name,
		State:          p.state,
		Size:           p.size,
		Pending:        p.total,
		Buffered:       p.buffered(),
		ReadersWaiting: p.readable.waiters,
		WritersWaiting: p.writable.waiters,
	}
}
