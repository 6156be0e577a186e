package pipefs

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// VolumeName is the volume under which the filesystem is mounted.
const VolumeName = "pipe"

// Handle identifies an open pipe. It is the slot index and stays valid
// until the pipe is removed.
type Handle int

// Config fixes the capacity of the filesystem at construction.
type Config struct {
	MaxPipes      int
	MaxNameLength int
	BufferSize    int
}

// DefaultConfig returns the capacity used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxPipes:      16,
		MaxNameLength: 64,
		BufferSize:    256,
	}
}

func (c Config) validate() error {
	if c.MaxPipes <= 0 {
		return fmt.Errorf("%w: max pipes must be positive, got %d", ErrInvalid, c.MaxPipes)
	}
	if c.MaxNameLength <= 0 {
		return fmt.Errorf("%w: max name length must be positive, got %d", ErrInvalid, c.MaxNameLength)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive, got %d", ErrInvalid, c.BufferSize)
	}
	return nil
}

// Info describes one pipe.
type Info struct {
	Handle         Handle `json:"handle"`
	Name           string `json:"name"`
	State          State  `json:"state"`
	Size           int    `json:"size"`
	Pending        int    `json:"pending"`
	Buffered       int    `json:"buffered"`
	ReadersWaiting int    `json:"readers_waiting"`
	WritersWaiting int    `json:"writers_waiting"`
}

// Observer receives pipe lifecycle and transfer events.
type Observer interface {
	PipeCreated(name string)
	PipeRemoved(name string)
	Transferred(op string, n int, err error)
}

type nopObserver struct{}

func (nopObserver) PipeCreated(string)             {}
func (nopObserver) PipeRemoved(string)             {}
func (nopObserver) Transferred(string, int, error) {}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(f *FS) {
		if l != nil {
			f.log = l
		}
	}
}

// WithObserver registers an observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(f *FS) {
		if o != nil {
			f.obs = o
		}
	}
}

// FS is the named-pipe filesystem.
type FS struct {
	cfg   Config
	table *table
	log   *zap.Logger
	obs   Observer
}

// New creates a filesystem with cfg.MaxPipes free slots.
func New(cfg Config, opts ...Option) (*FS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	f := &FS{
		cfg: cfg,
		log: zap.NewNop(),
		obs: nopObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.table = newTable(cfg, f.log)

	f.log.Info("Pipe filesystem mounted",
		zap.Int("max_pipes", cfg.MaxPipes),
		zap.Int("max_name", cfg.MaxNameLength),
		zap.Int("buffer_size", cfg.BufferSize),
	)
	return f, nil
}

// Create makes a new, idle pipe. size is recorded but does not bound
// the amount of data the pipe can carry.
func (f *FS) Create(name string, size int) error {
	slot, err := f.table.create(name, size)
	if err != nil {
		return err
	}
	f.log.Info("Pipe created", zap.String("pipe", name), zap.Int("slot", slot))
	f.obs.PipeCreated(name)
	return nil
}

// Open resolves name to a handle.
func (f *FS) Open(name string) (Handle, error) {
	slot, err := f.table.lookup(name)
	if err != nil {
		return -1, err
	}
	return Handle(slot), nil
}

// Close has nothing to release: pipes keep no per-open state.
func (f *FS) Close(Handle) error {
	return nil
}

// Remove frees the pipe. Readers and writers blocked on it fail with
// ErrRemoved.
func (f *FS) Remove(name string) error {
	if err := f.table.remove(name); err != nil {
		return err
	}
	f.log.Info("Pipe removed", zap.String("pipe", name))
	f.obs.PipeRemoved(name)
	return nil
}

// Read blocks until buf is full or the pipe is removed. ctx is honoured
// only until the reader joins a transfer.
func (f *FS) Read(ctx context.Context, h Handle, buf []byte) (int, error) {
	p, err := f.table.pipe(h)
	if err != nil {
		return 0, err
	}
	n, err := p.read(ctx, buf)
	f.obs.Transferred("read", n, err)
	return n, err
}

// Write delivers data as one transaction. ctx is honoured only until the
// writer joins a transfer.
func (f *FS) Write(ctx context.Context, h Handle, data []byte) (int, error) {
	p, err := f.table.pipe(h)
	if err != nil {
		return 0, err
	}
	n, err := p.write(ctx, data)
	f.obs.Transferred("write", n, err)
	return n, err
}

// GetFree returns the number of free slots.
func (f *FS) GetFree() int {
	return f.table.freeCount()
}

// FileCount returns the number of pipes. The namespace is flat, so dir
// is ignored.
func (f *FS) FileCount(dir string) int {
	return f.table.usedCount()
}

// Usage returns the free and used slot counts taken together, so they
// always sum to Capacity.
func (f *FS) Usage() (free, used int) {
	return f.table.usage()
}

// Enumerate returns the name of the pipe in slot idx. dir is ignored.
func (f *FS) Enumerate(dir string, idx int) (string, error) {
	return f.table.describe(idx)
}

// Unmount does nothing; the table lives as long as the process.
func (f *FS) Unmount() error {
	return nil
}

// Stat describes the pipe behind h.
func (f *FS) Stat(h Handle) (Info, error) {
	p, err := f.table.pipe(h)
	if err != nil {
		return Info{}, err
	}
	info := p.info()
	if info.State == StateFree {
		return Info{}, fmt.Errorf("%w: slot %d", ErrNotFound, h)
	}
	return info, nil
}

// List describes every pipe in slot order.
func (f *FS) List() []Info {
	return f.table.snapshot()
}

// Glob describes the pipes whose names match pattern. An empty pattern
// matches everything.
func (f *FS) Glob(pattern string) ([]Info, error) {
	infos := f.table.snapshot()
	if pattern == "" {
		return infos, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", ErrInvalid, pattern)
	}

	matched := infos[:0]
	for _, info := range infos {
		if ok, _ := doublestar.Match(pattern, info.Name); ok {
			matched = append(matched, info)
		}
	}
	return matched, nil
}

// Waiting returns how many readers and writers are blocked across all pipes.
func (f *FS) Waiting() (readers, writers int) {
	for _, info := range f.table.snapshot() {
		readers += info.ReadersWaiting
		writers += info.WritersWaiting
	}
	return readers, writers
}

// Capacity returns the number of slots.
func (f *FS) Capacity() int {
	return f.cfg.MaxPipes
}

// BufferSize returns the size of each pipe's chunk buffer.
func (f *FS) BufferSize() int {
	return f.cfg.BufferSize
}
