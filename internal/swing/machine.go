package swing

import (
	"time"

	"github.com/google/uuid"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWeightDetected
	PhaseArmedRecording
	PhaseSwingTriggered
	PhaseFaulted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseWeightDetected:
		return "WEIGHT_DETECTED"
	case PhaseArmedRecording:
		return "ARMED_RECORDING"
	case PhaseSwingTriggered:
		return "SWING_TRIGGERED"
	case PhaseFaulted:
		return "FAULTED"
	}
	return "UNKNOWN"
}

// SessionState is everything the machine knows about the current session.
// The zero value is a disconnected, idle machine.
type SessionState struct {
	Phase          Phase
	Connected      bool
	SessionID      string
	CountdownStart time.Time
	Recording      bool

	// deadlines of the triggered swing
	SwingStart time.Time
	RecordEnd  time.Time
	TopAt      time.Time
	ImpactAt   time.Time
	TopSent    bool
	ImpactSent bool

	Fault error
}

// TempoSource is read once per swing to compute cue delays.
type TempoSource interface {
	Get() TempoConfig
}

// Machine fuses the two weight streams into presence decisions and drives
// the countdown, recording and cue sequence. It is not safe for concurrent
// use: a single loop owns it and feeds it ticks and link changes.
type Machine struct {
	opts     Options
	tempo    TempoSource
	recorder Recorder
	state    SessionState

	newSessionID func() string
}

func NewMachine(opts Options, tempo TempoSource) *Machine {
	return &Machine{
		opts:         opts.withDefaults(),
		tempo:        tempo,
		newSessionID: uuid.NewString,
	}
}

// State returns a copy of the session state.
func (m *Machine) State() SessionState {
	return m.state
}

func (m *Machine) Phase() Phase {
	return m.state.Phase
}

// Recorded is the number of samples in the current recording.
func (m *Machine) Recorded() int {
	return m.recorder.Len()
}

func (m *Machine) Options() Options {
	return m.opts
}

// Connect starts a fresh session in IDLE with an empty recorder.
func (m *Machine) Connect() {
	m.state.Connected = true
	if m.state.Phase == PhaseFaulted {
		return
	}
	m.resetSession()
}

// Disconnect aborts whatever is in progress and forces IDLE. It reports
// whether a countdown or swing was aborted.
func (m *Machine) Disconnect() bool {
	aborted := m.state.Phase != PhaseIdle && m.state.Phase != PhaseFaulted
	m.state.Connected = false
	if m.state.Phase == PhaseFaulted {
		m.recorder.Reset()
		return false
	}
	m.resetSession()
	return aborted
}

// Fault halts phase progression for good. No further events are emitted.
func (m *Machine) Fault(err error) {
	m.recorder.Reset()
	m.state = SessionState{
		Phase:     PhaseFaulted,
		Connected: m.state.Connected,
		SessionID: m.state.SessionID,
		Fault:     err,
	}
}

func (m *Machine) Err() error {
	return m.state.Fault
}

// Step consumes one sample taken at now and returns the events to push,
// in order.
func (m *Machine) Step(now time.Time, sample WeightSample) []Event {
	if !m.state.Connected || m.state.Phase == PhaseFaulted {
		return nil
	}

	// the triggered swing runs to completion; presence is not consulted
	if m.state.Phase == PhaseSwingTriggered {
		return m.stepSwing(now, sample, nil)
	}

	present := sample.Presence(m.opts.WeightThreshold)

	if m.state.Phase == PhaseIdle {
		if !present {
			return nil
		}
		m.state.Phase = PhaseWeightDetected
		m.state.CountdownStart = now
		m.state.SessionID = m.newSessionID()
		return []Event{m.event(EventWeightDetected, now)}
	}

	// presence wins over any boundary crossed on the same tick
	if !present {
		ev := m.event(EventSteppedOff, now)
		m.resetSession()
		return []Event{ev}
	}

	elapsed := now.Sub(m.state.CountdownStart)
	if elapsed >= SwingMark {
		return m.triggerSwing(now, sample)
	}

	if elapsed >= RecordMark && !m.state.Recording {
		m.recorder.Start(m.state.CountdownStart.Add(RecordMark))
		m.state.Recording = true
		m.state.Phase = PhaseArmedRecording
	}
	if m.state.Phase == PhaseArmedRecording {
		m.record(now, sample)
	}

	return nil
}

func (m *Machine) triggerSwing(now time.Time, sample WeightSample) []Event {
	// the 5000 ms mark does not depend on the 4000 ms mark having fired
	if !m.state.Recording {
		m.recorder.Start(m.state.CountdownStart.Add(RecordMark))
		m.state.Recording = true
	}

	back, down := m.tempo.Get().Delays(m.opts.FrameTime)

	m.state.Phase = PhaseSwingTriggered
	m.state.SwingStart = now
	m.state.RecordEnd = now.Add(back + down + FollowThrough)

	cueBase := now
	if m.opts.CueTiming == CueSequential {
		cueBase = m.state.RecordEnd
	}
	m.state.TopAt = cueBase.Add(back)
	m.state.ImpactAt = m.state.TopAt.Add(down)

	events := []Event{m.event(EventStartSwing, now)}
	return m.stepSwing(now, sample, events)
}

func (m *Machine) stepSwing(now time.Time, sample WeightSample, events []Event) []Event {
	if now.Before(m.state.RecordEnd) {
		m.record(now, sample)
	}

	if !m.state.TopSent && !now.Before(m.state.TopAt) {
		m.state.TopSent = true
		events = append(events, m.event(EventTopBeep, now))
	}
	if m.state.TopSent && !m.state.ImpactSent && !now.Before(m.state.ImpactAt) {
		m.state.ImpactSent = true
		events = append(events, m.event(EventImpactBeep, now))
	}

	if m.state.ImpactSent && !now.Before(m.state.RecordEnd) {
		data := m.event(EventData, now)
		data.Payload = Render(m.recorder.Stop())
		events = append(events, data)
		m.resetSession()
	}

	return events
}

func (m *Machine) record(now time.Time, sample WeightSample) {
	m.recorder.Append(m.recorder.Since(now), sample.LeadGrams, sample.TrailGrams)
}

func (m *Machine) event(kind EventKind, now time.Time) Event {
	return Event{Kind: kind, At: now, SessionID: m.state.SessionID}
}

func (m *Machine) resetSession() {
	m.recorder.Reset()
	m.state = SessionState{Connected: m.state.Connected}
}
