package pipefs

import "strings"

// EventKind names something that happened to a pipe.
type EventKind int

const (
	EventCreate EventKind = iota
	EventRemove
	EventReaderArrive
	EventWriterArrive
	// EventChunkPublished: a writer filled the buffer with a new chunk.
	EventChunkPublished
	// EventChunkConsumed: the reader emptied the chunk, wants more, and
	// the write transaction still has bytes to deliver.
	EventChunkConsumed
	// EventReadSatisfied: the reader got every byte it asked for.
	EventReadSatisfied
	// EventTransactionDrained: the write transaction is exhausted but the
	// reader still wants more bytes.
	EventTransactionDrained
	// EventReaderDepart: a reader gave up before joining a transfer.
	EventReaderDepart
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventRemove:
		return "remove"
	case EventReaderArrive:
		return "reader-arrive"
	case EventWriterArrive:
		return "writer-arrive"
	case EventChunkPublished:
		return "chunk-published"
	case EventChunkConsumed:
		return "chunk-consumed"
	case EventReadSatisfied:
		return "read-satisfied"
	case EventTransactionDrained:
		return "transaction-drained"
	case EventReaderDepart:
		return "reader-depart"
	default:
		return "unknown"
	}
}

// Event is the input of Transition.
type Event struct {
	Kind EventKind
	// Size is the message length captured on EventWriterArrive.
	Size int
	// Drained and Exhausted qualify EventReadSatisfied: the transaction
	// has no bytes left, and the buffered chunk has been fully consumed.
	Drained   bool
	Exhausted bool
	// Waiting qualifies EventReaderDepart: other readers are still parked.
	Waiting bool
}

// Outcome tells the caller what to do after a step.
type Outcome int

const (
	// OutcomeProceed: keep going on the current path.
	OutcomeProceed Outcome = iota
	// OutcomeWait: park on the caller's signal, then retry.
	OutcomeWait
	// OutcomeJoin: enter the copy loop.
	OutcomeJoin
	// OutcomeFail: the event is not valid in this state.
	OutcomeFail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeWait:
		return "wait"
	case OutcomeJoin:
		return "join"
	case OutcomeFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Action is a set of side effects the engine applies with a step.
type Action uint8

const (
	// ActionReset clears transfer bookkeeping and mints a fresh
	// cancellation token and fresh signals.
	ActionReset Action = 1 << iota
	// ActionSetTotal loads the captured message size into total.
	ActionSetTotal
	// ActionCancel cancels the incarnation token.
	ActionCancel
	// ActionPublishChunk marks the buffer full and wakes readers.
	ActionPublishChunk
	// ActionReleaseChunk marks the buffer empty and wakes writers.
	ActionReleaseChunk
	ActionWakeReaders
	ActionWakeWriters
)

var actionNames = []string{"reset", "set-total", "cancel", "publish", "release", "wake-readers", "wake-writers"}

// Has reports whether every action in b is part of a.
func (a Action) Has(b Action) bool {
	return a&b == b
}

func (a Action) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for i, name := range actionNames {
		if a&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Step is the result of Transition.
type Step struct {
	Next    State
	Actions Action
	Outcome Outcome
}

// Transition is the pipe protocol. It is pure: the engine feeds it the
// current state under the pipe lock and applies the returned step.
func Transition(s State, ev Event) Step {
	if s == StateFree && ev.Kind != EventCreate {
		return Step{Next: s, Outcome: OutcomeFail}
	}

	switch ev.Kind {
	case EventCreate:
		if s != StateFree {
			return Step{Next: s, Outcome: OutcomeFail}
		}
		return Step{Next: StateOccupied, Actions: ActionReset}

	case EventRemove:
		return Step{Next: StateFree, Actions: ActionCancel | ActionWakeReaders | ActionWakeWriters}

	case EventReaderArrive:
		switch s {
		case StateOccupied:
			return Step{Next: StateListening, Actions: ActionWakeWriters, Outcome: OutcomeWait}
		case StateStreaming:
			return Step{Next: StateInUse, Outcome: OutcomeJoin}
		default:
			// listening, inuse, write-open: another reader owns the pipe
			return Step{Next: s, Outcome: OutcomeWait}
		}

	case EventWriterArrive:
		switch s {
		case StateListening:
			return Step{Next: StateStreaming, Actions: ActionSetTotal | ActionWakeReaders, Outcome: OutcomeJoin}
		case StateWriteOpen:
			return Step{Next: StateInUse, Actions: ActionSetTotal, Outcome: OutcomeJoin}
		case StateOccupied:
			return Step{Next: s, Actions: ActionWakeReaders, Outcome: OutcomeWait}
		default:
			return Step{Next: s, Outcome: OutcomeWait}
		}

	case EventChunkPublished:
		if !s.transferring() {
			return Step{Next: s, Outcome: OutcomeFail}
		}
		return Step{Next: s, Actions: ActionPublishChunk}

	case EventChunkConsumed:
		if s != StateInUse {
			return Step{Next: s, Outcome: OutcomeFail}
		}
		return Step{Next: s, Actions: ActionReleaseChunk}

	case EventReadSatisfied:
		if s != StateInUse {
			return Step{Next: s, Outcome: OutcomeFail}
		}
		if ev.Drained {
			return Step{Next: StateOccupied, Actions: ActionReleaseChunk | ActionWakeWriters}
		}
		actions := ActionWakeReaders
		if ev.Exhausted {
			actions |= ActionReleaseChunk
		}
		return Step{Next: StateStreaming, Actions: actions}

	case EventTransactionDrained:
		if s != StateInUse {
			return Step{Next: s, Outcome: OutcomeFail}
		}
		return Step{Next: StateWriteOpen, Actions: ActionReleaseChunk | ActionWakeWriters}

	case EventReaderDepart:
		if s == StateListening && !ev.Waiting {
			return Step{Next: StateOccupied}
		}
		return Step{Next: s}
	}

	return Step{Next: s, Outcome: OutcomeFail}
}
