package pipefs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// table is the fixed pool of pipe slots.
type table struct {
	mu      sync.Mutex
	slots   []*pipe
	free    int
	maxName int
}

func newTable(cfg Config, log *zap.Logger) *table {
	t := &table{
		slots:   make([]*pipe, cfg.MaxPipes),
		free:    cfg.MaxPipes,
		maxName: cfg.MaxNameLength,
	}
	for i := range t.slots {
		t.slots[i] = newPipe(i, cfg.BufferSize, log)
	}
	return t
}

func (t *table) validName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty pipe name", ErrInvalid)
	}
	if len(name) > t.maxName {
		return fmt.Errorf("%w: pipe name longer than %d bytes", ErrInvalid, t.maxName)
	}
	return nil
}

// create allocates the first free slot for name and returns its index.
func (t *table) create(name string, size int) (int, error) {
	if err := t.validName(name); err != nil {
		return -1, err
	}
	if size < 0 {
		return -1, fmt.Errorf("%w: negative size %d", ErrInvalid, size)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	slot := -1
	for i, p := range t.slots {
		if p.used && p.name == name {
			return -1, fmt.Errorf("%w: %s", ErrExists, name)
		}
		if slot < 0 && !p.used {
			slot = i
		}
	}
	if slot < 0 {
		return -1, ErrNoSpace
	}

	p := t.slots[slot]
	p.mu.Lock()
	p.name = name
	p.size = size
	p.used = true
	p.apply(Event{Kind: EventCreate})
	p.mu.Unlock()

	t.free--
	return slot, nil
}

func (t *table) lookup(name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, p := range t.slots {
		if p.used && p.name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// remove frees the slot holding name. Everyone blocked on the pipe is
// woken and observes the cancelled token.
func (t *table) remove(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.slots {
		if !p.used || p.name != name {
			continue
		}
		p.mu.Lock()
		p.apply(Event{Kind: EventRemove})
		p.used = false
		p.name = ""
		p.size = 0
		p.mu.Unlock()

		t.free++
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoSuchPipe, name)
}

func (t *table) freeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.free
}

func (t *table) usedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots) - t.free
}

// usage reads free and used from one snapshot.
func (t *table) usage() (free, used int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.free, len(t.slots) - t.free
}

func (t *table) describe(idx int) (string, error) {
	if idx < 0 || idx >= len(t.slots) {
		return "", fmt.Errorf("%w: %d", ErrRange, idx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.slots[idx]
	if !p.used {
		return "", fmt.Errorf("%w: slot %d is free", ErrPipe, idx)
	}
	return p.name, nil
}

// pipe returns the slot behind h. Slots never move, so no lock is needed.
func (t *table) pipe(h Handle) (*pipe, error) {
	if int(h) < 0 || int(h) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %d", ErrBadHandle, h)
	}
	return t.slots[h], nil
}

// snapshot returns the info of every used slot in slot order.
func (t *table) snapshot() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	infos := make([]Info, 0, len(t.slots)-t.free)
	for _, p := range t.slots {
		if p.used {
			infos = append(infos, p.info())
		}
	}
	return infos
}
