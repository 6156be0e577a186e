package pipefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no pipe carries the requested name.
	ErrNotFound = errors.New("pipe not found")

	// ErrExists is returned when creating a pipe whose name is taken.
	ErrExists = errors.New("pipe already exists")

	// ErrNoSpace is returned when every slot of the table is in use.
	ErrNoSpace = errors.New("pipe table full")

	// ErrPipe is the generic pipe failure. Every error below wraps it.
	ErrPipe = errors.New("pipe error")

	// ErrRemoved is returned to readers and writers whose pipe was
	// removed before or while they were blocked on it.
	ErrRemoved = fmt.Errorf("%w: pipe removed", ErrPipe)

	// ErrInvalid is returned for malformed arguments.
	ErrInvalid = fmt.Errorf("%w: invalid argument", ErrPipe)

	// ErrBadHandle is returned for handles outside the table.
	ErrBadHandle = fmt.Errorf("%w: bad handle", ErrPipe)

	// ErrNoSuchPipe is returned by Remove when no pipe carries the name.
	// Unlike a failed Open it is a generic failure.
	ErrNoSuchPipe = fmt.Errorf("%w: no such pipe", ErrPipe)

	// ErrRange is returned by Enumerate for an index outside the table.
	ErrRange = fmt.Errorf("%w: index out of range", ErrPipe)
)
