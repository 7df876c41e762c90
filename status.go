package jobgraph

import "fmt"

// State of a job in its lifecycle.
type State int32

const (
	StatePending State = iota
	StateQueued
	StateRunning
	StateSuspended
	StateDone
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateQueued:
		return "Queued"
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Ownership tells who is responsible for a job object.
// The states are mutually exclusive and only move forward:
// OwnedByCaller -> OwnedBySystem -> Released.
type Ownership int32

const (
	// OwnedByCaller is the default, the code that
	// created the job keeps using and discarding it.
	OwnedByCaller Ownership = iota
	// OwnedBySystem means the job will be handed to
	// its Allocator once it is Done.
	OwnedBySystem
	// Released jobs have been handed to their Allocator
	// and must not be touched anymore.
	Released
)

// String implements the fmt.Stringer interface.
func (o Ownership) String() string {
	switch o {
	case OwnedByCaller:
		return "OwnedByCaller"
	case OwnedBySystem:
		return "OwnedBySystem"
	case Released:
		return "Released"
	}
	return fmt.Sprintf("Ownership(%d)", int32(o))
}

// Priority determines which ready queue a job is put into.
// The high priority queue is always exhausted before
// the regular one, which is exhausted before the low one and so on.
type Priority uint8

const (
	PriorityHigh Priority = iota
	PriorityRegular
	PriorityLow
	PriorityStream

	NumPriorities = int(PriorityStream) + 1
)

// String implements the fmt.Stringer interface.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityRegular:
		return "Regular"
	case PriorityLow:
		return "Low"
	case PriorityStream:
		return "Stream"
	}
	return fmt.Sprintf("Priority(%d)", uint8(p))
}
