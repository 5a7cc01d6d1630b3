package swing

import "time"

// RecordedSeries holds parallel sequences of equal length.
type RecordedSeries struct {
	Times        []float64 // seconds since the recording origin
	LeadWeights  []float64
	TrailWeights []float64
}

func (s RecordedSeries) Len() int {
	return len(s.Times)
}

// Recorder accumulates samples while started. It is not safe for
// concurrent use; the state machine owns it.
type Recorder struct {
	series  RecordedSeries
	origin  time.Time
	started bool
}

// Start begins accepting samples. Calling Start on a started recorder
// keeps the existing origin and data.
func (r *Recorder) Start(origin time.Time) {
	if r.started {
		return
	}
	r.origin = origin
	r.started = true
}

func (r *Recorder) Started() bool {
	return r.started
}

// Since returns the relative time of now against the origin, in seconds.
func (r *Recorder) Since(now time.Time) float64 {
	return now.Sub(r.origin).Seconds()
}

// Append records one sample. It is a no-op unless the recorder is started.
func (r *Recorder) Append(relativeTime, lead, trail float64) {
	if !r.started {
		return
	}
	r.series.Times = append(r.series.Times, relativeTime)
	r.series.LeadWeights = append(r.series.LeadWeights, lead)
	r.series.TrailWeights = append(r.series.TrailWeights, trail)
}

// Stop ends the recording window and returns a copy of what was recorded.
// The data stays in the recorder until Reset.
func (r *Recorder) Stop() RecordedSeries {
	r.started = false
	return RecordedSeries{
		Times:        append([]float64(nil), r.series.Times...),
		LeadWeights:  append([]float64(nil), r.series.LeadWeights...),
		TrailWeights: append([]float64(nil), r.series.TrailWeights...),
	}
}

func (r *Recorder) Len() int {
	return r.series.Len()
}

func (r *Recorder) Reset() {
	r.series = RecordedSeries{}
	r.origin = time.Time{}
	r.started = false
}
