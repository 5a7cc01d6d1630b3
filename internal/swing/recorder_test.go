package swing

import (
	"testing"
	"time"
)

func TestRecorder_AppendRequiresStart(t *testing.T) {
	var r Recorder
	r.Append(0.1, 1200, 1100)
	if r.Len() != 0 {
		t.Fatalf("append before start recorded %d samples", r.Len())
	}

	r.Start(t0)
	r.Append(0.0125, 1200, 1100)
	r.Append(0.025, 1205.5, 1102.3)
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	series := r.Stop()
	if series.Len() != 2 || len(series.LeadWeights) != 2 || len(series.TrailWeights) != 2 {
		t.Errorf("series lengths %d/%d/%d", len(series.Times), len(series.LeadWeights), len(series.TrailWeights))
	}

	r.Append(0.05, 1, 1)
	if r.Len() != 2 {
		t.Errorf("append after stop changed length to %d", r.Len())
	}
}

func TestRecorder_StopReturnsCopy(t *testing.T) {
	var r Recorder
	r.Start(t0)
	r.Append(0.0125, 1200, 1100)

	series := r.Stop()
	r.Reset()
	if series.Len() != 1 || series.LeadWeights[0] != 1200 {
		t.Errorf("stopped series was mutated by Reset: %+v", series)
	}
}

func TestRecorder_Since(t *testing.T) {
	var r Recorder
	r.Start(t0)
	if got := r.Since(t0.Add(12500 * time.Microsecond)); got != 0.0125 {
		t.Errorf("Since = %v, want 0.0125", got)
	}

	// a second Start keeps the first origin
	r.Start(t0.Add(time.Second))
	if got := r.Since(t0.Add(time.Second)); got != 1 {
		t.Errorf("Since after restart = %v, want 1", got)
	}
}

func TestRecorder_ResetIdempotent(t *testing.T) {
	var r Recorder
	r.Start(t0)
	r.Append(0.1, 1, 2)

	r.Reset()
	once := r
	r.Reset()

	if r.Len() != 0 || r.Started() {
		t.Errorf("after reset Len=%d started=%v", r.Len(), r.Started())
	}
	if r.Started() != once.Started() || r.Len() != once.Len() || !r.origin.Equal(once.origin) {
		t.Error("second Reset changed state")
	}
}
