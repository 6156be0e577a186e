package pipefs

// State is the lifecycle and transfer phase of one pipe slot.
type State int

const (
	// StateFree marks an unallocated slot.
	StateFree State = iota
	// StateOccupied is a created pipe with no reader or writer active.
	StateOccupied
	// StateListening means a reader is waiting for a writer to appear.
	StateListening
	// StateWriteOpen means a reader drained the current write and is
	// soliciting another write to satisfy the rest of its request.
	StateWriteOpen
	// StateStreaming means a write transaction is in progress and the
	// buffer holds data awaiting a reader.
	StateStreaming
	// StateInUse means one reader and one writer are handing off chunks.
	StateInUse
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateOccupied:
		return "occupied"
	case StateListening:
		return "listening"
	case StateWriteOpen:
		return "write-open"
	case StateStreaming:
		return "streaming"
	case StateInUse:
		return "inuse"
	default:
		return "unknown"
	}
}

// transferring reports whether a write transaction is underway.
func (s State) transferring() bool {
	return s == StateStreaming || s == StateInUse || s == StateWriteOpen
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
