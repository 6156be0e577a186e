package pipefs

import "context"

// read fills buf from the pipe. The caller joins the rendezvous once the
// pipe is streaming and then stays until buf is full or the pipe is
// removed, soliciting further writes if one transaction is not enough.
func (p *pipe) read(ctx context.Context, buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok := p.tok
	if tok.cancelled {
		return 0, ErrRemoved
	}
	if len(buf) == 0 {
		return 0, nil
	}

	for {
		if tok.cancelled {
			return 0, ErrRemoved
		}
		if p.apply(Event{Kind: EventReaderArrive}).Outcome == OutcomeJoin {
			break
		}
		if err := p.readable.park(ctx, tok); err != nil {
			if !tok.cancelled {
				p.apply(Event{Kind: EventReaderDepart, Waiting: p.readable.waiters > 0})
			}
			return 0, err
		}
	}

	got := 0
	for {
		if err := p.readable.await(tok, func() bool { return p.filled }); err != nil {
			return got, err
		}

		n := min(len(buf)-got, len(p.buf)-p.offset, p.total)
		copy(buf[got:got+n], p.buf[p.offset:p.offset+n])
		got += n
		p.offset += n
		p.total -= n
		exhausted := p.offset == len(p.buf) || p.total == 0

		switch {
		case got == len(buf):
			p.apply(Event{Kind: EventReadSatisfied, Drained: p.total == 0, Exhausted: exhausted})
			return got, nil
		case p.total == 0:
			p.apply(Event{Kind: EventTransactionDrained})
		default:
			p.apply(Event{Kind: EventChunkConsumed})
		}
	}
}

// write delivers data as one transaction, one buffer-sized chunk at a
// time. It returns once the last chunk is in the buffer; the reader may
// still be consuming it.
func (p *pipe) write(ctx context.Context, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok := p.tok
	if tok.cancelled {
		return 0, ErrRemoved
	}
	if len(data) == 0 {
		return 0, nil
	}

	for {
		if tok.cancelled {
			return 0, ErrRemoved
		}
		if p.apply(Event{Kind: EventWriterArrive, Size: len(data)}).Outcome == OutcomeJoin {
			break
		}
		if err := p.writable.park(ctx, tok); err != nil {
			return 0, err
		}
	}

	written := 0
	for {
		n := min(len(p.buf), len(data)-written)
		copy(p.buf[:n], data[written:written+n])
		p.offset = 0
		written += n
		p.apply(Event{Kind: EventChunkPublished})

		if written == len(data) {
			return written, nil
		}
		if err := p.writable.await(tok, func() bool { return !p.filled }); err != nil {
			return written, err
		}
	}
}
