package vfs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Config bounds the open-file table.
type Config struct {
	MaxOpenFiles int
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxOpenFiles: 128}
}

type openFile struct {
	volume string
	fs     FileSystem
	handle int
}

// VFS is the mount table plus the open-file table.
type VFS struct {
	mu      sync.RWMutex
	volumes map[string]FileSystem
	files   []*openFile // indexed by descriptor, nil when free
	log     *zap.Logger
}

// New creates an empty VFS.
func New(cfg Config, log *zap.Logger) *VFS {
	if cfg.MaxOpenFiles <= 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VFS{
		volumes: make(map[string]FileSystem),
		files:   make([]*openFile, cfg.MaxOpenFiles),
		log:     log,
	}
}

// Mount attaches fs under volume.
func (v *VFS) Mount(volume string, fs FileSystem) error {
	if volume == "" {
		return fmt.Errorf("%w: empty volume name", ErrBadPath)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.volumes[volume]; ok {
		return fmt.Errorf("%w: %s", ErrMounted, volume)
	}
	v.volumes[volume] = fs
	v.log.Info("Volume mounted", zap.String("volume", volume))
	return nil
}

// Unmount detaches volume. It fails while descriptors on it are open.
func (v *VFS) Unmount(volume string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	fs, ok := v.volumes[volume]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchFS, volume)
	}
	for _, f := range v.files {
		if f != nil && f.volume == volume {
			return fmt.Errorf("%w: %s", ErrBusy, volume)
		}
	}
	if err := fs.Unmount(); err != nil {
		return err
	}
	delete(v.volumes, volume)
	v.log.Info("Volume unmounted", zap.String("volume", volume))
	return nil
}

// Volumes returns the mounted volume names in order.
func (v *VFS) Volumes() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	names := make([]string, 0, len(v.volumes))
	for name := range v.volumes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v *VFS) resolve(path string) (FileSystem, string, string, error) {
	volume, name, err := ParsePath(path)
	if err != nil {
		return nil, "", "", err
	}

	v.mu.RLock()
	fs, ok := v.volumes[volume]
	v.mu.RUnlock()
	if !ok {
		return nil, "", "", fmt.Errorf("%w: %s", ErrNoSuchFS, volume)
	}
	return fs, volume, name, nil
}

// Create makes a file at path.
func (v *VFS) Create(path string, size int) error {
	fs, _, name, err := v.resolve(path)
	if err != nil {
		return err
	}
	return fs.Create(name, size)
}

// Remove deletes the file at path.
func (v *VFS) Remove(path string) error {
	fs, _, name, err := v.resolve(path)
	if err != nil {
		return err
	}
	return fs.Remove(name)
}

// Open returns a descriptor for the file at path.
func (v *VFS) Open(path string) (int, error) {
	fs, volume, name, err := v.resolve(path)
	if err != nil {
		return -1, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fd := -1
	for i, f := range v.files {
		if f == nil {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, ErrLimit
	}

	handle, err := fs.Open(name)
	if err != nil {
		return -1, err
	}
	v.files[fd] = &openFile{volume: volume, fs: fs, handle: handle}
	return fd, nil
}

func (v *VFS) file(fd int) (*openFile, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if fd < 0 || fd >= len(v.files) || v.files[fd] == nil {
		return nil, fmt.Errorf("%w: %d", ErrBadFD, fd)
	}
	return v.files[fd], nil
}

// Close releases fd.
func (v *VFS) Close(fd int) error {
	v.mu.Lock()
	if fd < 0 || fd >= len(v.files) || v.files[fd] == nil {
		v.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrBadFD, fd)
	}
	f := v.files[fd]
	v.files[fd] = nil
	v.mu.Unlock()

	return f.fs.Close(f.handle)
}

// Read reads into buf from fd, blocking as the underlying file requires.
func (v *VFS) Read(ctx context.Context, fd int, buf []byte) (int, error) {
	f, err := v.file(fd)
	if err != nil {
		return 0, err
	}
	return f.fs.Read(ctx, f.handle, buf)
}

// Write writes data to fd.
func (v *VFS) Write(ctx context.Context, fd int, data []byte) (int, error) {
	f, err := v.file(fd)
	if err != nil {
		return 0, err
	}
	return f.fs.Write(ctx, f.handle, data)
}

// OpenCount returns the number of open descriptors.
func (v *VFS) OpenCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	n := 0
	for _, f := range v.files {
		if f != nil {
			n++
		}
	}
	return n
}

// GetFree returns the free capacity reported by volume.
func (v *VFS) GetFree(volume string) (int, error) {
	v.mu.RLock()
	fs, ok := v.volumes[volume]
	v.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchFS, volume)
	}
	return fs.GetFree(), nil
}

// FileCount returns the number of files under the directory at path.
func (v *VFS) FileCount(path string) (int, error) {
	fs, _, dir, err := v.resolve(path)
	if err != nil {
		return 0, err
	}
	return fs.FileCount(dir), nil
}

// File returns the name of entry idx of the directory at path.
func (v *VFS) File(path string, idx int) (string, error) {
	fs, _, dir, err := v.resolve(path)
	if err != nil {
		return "", err
	}
	return fs.File(dir, idx)
}
