// Package vfs routes volume-qualified paths to mounted filesystems.
//
// Paths take the form "[volume]name". The volume selects a mounted
// FileSystem and the remainder is handed to it verbatim; the pipe
// filesystem has a flat namespace, so no separators are interpreted.
//
// Open returns a file descriptor from a bounded open-file table. Reads
// and writes go through the descriptor to the filesystem that produced
// it.
//
// # Usage
//
//	v := vfs.New(vfs.Config{MaxOpenFiles: 128}, log)
//	v.Mount(pipefs.VolumeName, vfs.PipeVolume(fs))
//
//	v.Create("[pipe]jobs", 0)
//	fd, _ := v.Open("[pipe]jobs")
//	n, err := v.Write(ctx, fd, []byte("hello"))
//
// ResultCode converts errors into the numeric results returned across
// the system-call boundary.
package vfs
