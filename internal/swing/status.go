package swing

// Status is a point-in-time view of the machine for external consumers.
type Status struct {
	Phase     string      `json:"phase"`
	Connected bool        `json:"connected"`
	Presence  *bool       `json:"presence,omitempty"` // withheld while disconnected
	SessionID string      `json:"session_id,omitempty"`
	Tempo     TempoConfig `json:"tempo"`
	Recorded  int         `json:"recorded"`
	Fault     string      `json:"fault,omitempty"`
}

// Status builds a view of the machine, using last as the most recent
// sample for the presence flag.
func (m *Machine) Status(last WeightSample) Status {
	st := Status{
		Phase:     m.state.Phase.String(),
		Connected: m.state.Connected,
		SessionID: m.state.SessionID,
		Tempo:     m.tempo.Get(),
		Recorded:  m.recorder.Len(),
	}
	if m.state.Connected {
		present := last.Presence(m.opts.WeightThreshold)
		st.Presence = &present
	}
	if m.state.Fault != nil {
		st.Fault = m.state.Fault.Error()
	}
	return st
}
