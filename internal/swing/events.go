package swing

import "time"

type EventKind string

const (
	EventWeightDetected EventKind = "WEIGHT_DETECTED"
	EventStartSwing     EventKind = "START_SWING"
	EventTopBeep        EventKind = "TOP_BEEP"
	EventImpactBeep     EventKind = "IMPACT_BEEP"
	EventSteppedOff     EventKind = "STEPPED_OFF"
	EventData           EventKind = "DATA"
)

// Event is one outbound message produced by the state machine.
type Event struct {
	Kind      EventKind
	Payload   string // rendered series, DATA only
	At        time.Time
	SessionID string
}

// Message is the text pushed to the companion: the cue word, or the
// rendered series for DATA.
func (e Event) Message() string {
	if e.Kind == EventData {
		return e.Payload
	}
	return string(e.Kind)
}

// NotifyChannel pushes outbound messages to the companion app.
type NotifyChannel interface {
	Notify(message string) error
}

type LinkEvent int

const (
	LinkConnected LinkEvent = iota
	LinkDisconnected
)

func (l LinkEvent) String() string {
	if l == LinkConnected {
		return "connected"
	}
	return "disconnected"
}
