package schedule

import "errors"

// State is the lifecycle state of a schedule.
type State string

const (
	StateActive    State = "active"
	StateExhausted State = "exhausted"
	StateCancelled State = "cancelled"
)

// Event drives a state transition.
type Event string

const (
	// EventTrigger issues an occurrence that leaves at least one remaining.
	EventTrigger Event = "trigger"
	// EventTriggerLast issues the final occurrence.
	EventTriggerLast Event = "trigger_last"
	EventCancel      Event = "cancel"
)

// ErrInvalidTransition is returned for transitions out of a terminal state or
// for unknown events.
var ErrInvalidTransition = errors.New("schedule: invalid transition")

// IsTerminal reports whether no further transitions are possible from s.
func (s State) IsTerminal() bool {
	return s == StateExhausted || s == StateCancelled
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	switch from {
	case StateActive:
		return to == StateActive || to == StateExhausted || to == StateCancelled
	default:
		return false
	}
}

// Transition moves from -> to or returns ErrInvalidTransition.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, ErrInvalidTransition
	}
	return to, nil
}

// Next applies event to state.
func Next(state State, event Event) (State, error) {
	switch event {
	case EventTrigger:
		return Transition(state, StateActive)
	case EventTriggerLast:
		return Transition(state, StateExhausted)
	case EventCancel:
		return Transition(state, StateCancelled)
	default:
		return state, ErrInvalidTransition
	}
}

// DecrementEvent maps a store decrement result to its trigger event. remains
// is false when the decrement consumed the last occurrence.
func DecrementEvent(remains bool) Event {
	if remains {
		return EventTrigger
	}
	return EventTriggerLast
}
