package review

import "fmt"

// State is the review workflow state of one document
type State int

const (
	Viewing State = iota
	Editing
	Submitting
	Submitted
)

var stateNames = map[State]string{
	Viewing:    "viewing",
	Editing:    "editing",
	Submitting: "submitting",
	Submitted:  "submitted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event drives a state change
type Event int

const (
	EventStartEdit Event = iota
	EventCancel
	EventSubmit
	EventSucceeded
	EventFailed
	// EventServerFeedback marks feedback observed on a re-fetched document
	EventServerFeedback
)

var eventNames = map[Event]string{
	EventStartEdit:      "start_edit",
	EventCancel:         "cancel",
	EventSubmit:         "submit",
	EventSucceeded:      "succeeded",
	EventFailed:         "failed",
	EventServerFeedback: "server_feedback",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// machine holds the current state and the state a running submission came
// from, so a failure can return there.
type machine struct {
	state  State
	origin State
}

// fire applies e and returns the previous state.
func (m *machine) fire(e Event) (State, error) {
	from := m.state

	switch from {
	case Submitted:
		return from, ErrAlreadySubmitted
	case Submitting:
		switch e {
		case EventSucceeded:
			m.state = Submitted
		case EventFailed:
			m.state = m.origin
		default:
			return from, ErrSubmissionInFlight
		}
		return from, nil
	}

	switch {
	case e == EventStartEdit && from == Viewing:
		m.state = Editing
	case e == EventCancel && from == Editing:
		m.state = Viewing
	case e == EventSubmit:
		m.origin = from
		m.state = Submitting
	case e == EventServerFeedback && (from == Viewing || from == Editing):
		m.state = Submitted
	default:
		return from, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e, from)
	}
	return from, nil
}
