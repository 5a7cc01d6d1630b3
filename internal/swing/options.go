package swing

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultWeightThreshold = 1000.0
	DefaultFrameTime       = 33 * time.Millisecond
	DefaultSampleInterval  = 12500 * time.Microsecond // 80 SPS

	// countdown marks, measured from the first tick with presence
	RecordMark = 4000 * time.Millisecond
	SwingMark  = 5000 * time.Millisecond

	// recording keeps going this long past back + down swing
	FollowThrough = 1000 * time.Millisecond
)

// CueTiming selects where TOP_BEEP and IMPACT_BEEP land relative to the
// post-trigger record window.
type CueTiming int

const (
	// CueConcurrent schedules the cues from START_SWING, while recording.
	CueConcurrent CueTiming = iota
	// CueSequential schedules the cues after the record window has closed.
	CueSequential
)

func (c CueTiming) String() string {
	switch c {
	case CueSequential:
		return "sequential"
	default:
		return "concurrent"
	}
}

func ParseCueTiming(s string) (CueTiming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "concurrent":
		return CueConcurrent, nil
	case "sequential":
		return CueSequential, nil
	}
	return CueConcurrent, fmt.Errorf("unknown cue timing %q", s)
}

// Options are the compiled-in knobs of the platform.
type Options struct {
	WeightThreshold float64
	FrameTime       time.Duration
	SampleInterval  time.Duration
	CueTiming       CueTiming
}

func DefaultOptions() Options {
	return Options{
		WeightThreshold: DefaultWeightThreshold,
		FrameTime:       DefaultFrameTime,
		SampleInterval:  DefaultSampleInterval,
		CueTiming:       CueConcurrent,
	}
}

// withDefaults fills zero fields so a partially built Options is usable.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WeightThreshold == 0 {
		o.WeightThreshold = d.WeightThreshold
	}
	if o.FrameTime <= 0 {
		o.FrameTime = d.FrameTime
	}
	if o.SampleInterval <= 0 {
		o.SampleInterval = d.SampleInterval
	}
	return o
}
