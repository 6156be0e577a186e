/*
Package pipefs implements an in-memory named-pipe filesystem.

# Overview

A fixed table of slots holds named pipes. Each pipe owns one small buffer
and moves a message of any length from one writer to one reader in
buffer-sized chunks, so nothing is lost, duplicated or read before it is
written.

# Protocol

Every slot runs the state machine defined by Transition:

	free ──create──▶ occupied ──reader──▶ listening ──writer──▶ streaming
	                    ▲                                          │
	                    │                              reader joins ▼
	                    └──────── drained & satisfied ──────── inuse ◀─┐
	                                                              │    │
	                                        drained, wants more   ▼    │
	                                                        write-open ┘
	                                                         (writer)

Readers park on the data-available signal and writers on the
space-available signal. Removing a pipe cancels its token and wakes both
sides; every waiter fails with ErrRemoved instead of blocking forever.

# Usage

	fs, _ := pipefs.New(pipefs.DefaultConfig())
	_ = fs.Create("jobs", 0)
	h, _ := fs.Open("jobs")

	go fs.Write(ctx, h, []byte("hello, pipe"))

	buf := make([]byte, 11)
	n, err := fs.Read(ctx, h, buf)
*/
package pipefs
