package vfs

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
)

// FileSystem is what a volume must implement to be mounted.
type FileSystem interface {
	Create(name string, size int) error
	Open(name string) (int, error)
	Close(handle int) error
	Remove(name string) error
	Read(ctx context.Context, handle int, buf []byte) (int, error)
	Write(ctx context.Context, handle int, data []byte) (int, error)
	GetFree() int
	FileCount(dir string) int
	File(dir string, idx int) (string, error)
	Unmount() error
}

type pipeVolume struct {
	fs *pipefs.FS
}

// PipeVolume adapts a pipe filesystem for mounting.
func PipeVolume(fs *pipefs.FS) FileSystem {
	return pipeVolume{fs: fs}
}

func (v pipeVolume) Create(name string, size int) error { return v.fs.Create(name, size) }
func (v pipeVolume) Remove(name string) error           { return v.fs.Remove(name) }
func (v pipeVolume) Close(handle int) error             { return v.fs.Close(pipefs.Handle(handle)) }
func (v pipeVolume) GetFree() int                       { return v.fs.GetFree() }
func (v pipeVolume) FileCount(dir string) int           { return v.fs.FileCount(dir) }
func (v pipeVolume) Unmount() error                     { return v.fs.Unmount() }

func (v pipeVolume) Open(name string) (int, error) {
	h, err := v.fs.Open(name)
	return int(h), err
}

func (v pipeVolume) Read(ctx context.Context, handle int, buf []byte) (int, error) {
	return v.fs.Read(ctx, pipefs.Handle(handle), buf)
}

func (v pipeVolume) Write(ctx context.Context, handle int, data []byte) (int, error) {
	return v.fs.Write(ctx, pipefs.Handle(handle), data)
}

func (v pipeVolume) File(dir string, idx int) (string, error) {
	return v.fs.Enumerate(dir, idx)
}
