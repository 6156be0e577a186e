package vfs

import (
	"errors"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
)

var (
	ErrBadPath  = errors.New("malformed path")
	ErrNoSuchFS = errors.New("no such volume")
	ErrMounted  = errors.New("volume already mounted")
	ErrBusy     = errors.New("volume has open files")
	ErrLimit    = errors.New("open file limit reached")
	ErrBadFD    = errors.New("bad file descriptor")
)

// Result codes returned across the system-call boundary.
const (
	OK            = 0
	Error         = -1
	NotFound      = -2
	AlreadyExists = -3
	NoSpace       = -4
	Invalid       = -5
	Limit         = -6
	NoSuchFS      = -7
)

// ResultCode maps err to its numeric result.
func ResultCode(err error) int {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, pipefs.ErrNotFound):
		return NotFound
	case errors.Is(err, pipefs.ErrExists):
		return AlreadyExists
	case errors.Is(err, pipefs.ErrNoSpace):
		return NoSpace
	case errors.Is(err, pipefs.ErrInvalid),
		errors.Is(err, pipefs.ErrBadHandle),
		errors.Is(err, ErrBadPath),
		errors.Is(err, ErrBadFD):
		return Invalid
	case errors.Is(err, ErrLimit):
		return Limit
	case errors.Is(err, ErrNoSuchFS):
		return NoSuchFS
	default:
		return Error
	}
}
