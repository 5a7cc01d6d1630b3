package processing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sleepywoodpecker/swing-platform/internal/metrics"
	"sleepywoodpecker/swing-platform/internal/swing"

	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakePair struct {
	sample swing.WeightSample
	err    error
}

func (f *fakePair) Sample() (swing.WeightSample, error) {
	return f.sample, f.err
}

type recordingChannel struct {
	messages []string
	err      error
}

func (c *recordingChannel) Notify(message string) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, message)
	return nil
}

func newTestSampler(pair *fakePair, channel swing.NotifyChannel) *sampler {
	machine := swing.NewMachine(swing.DefaultOptions(), swing.NewTempoStore())
	return NewSampler(pair, machine, channel, nil, nil, metrics.New(), zap.NewNop())
}

func tickRange(t *testing.T, s *sampler, from, to, step time.Duration) {
	t.Helper()
	for at := from; at <= to; at += step {
		if err := s.Tick(t0.Add(at)); err != nil {
			t.Fatalf("Tick at %v: %v", at, err)
		}
	}
}

func TestSampler_deliversSwing(t *testing.T) {
	pair := &fakePair{sample: swing.WeightSample{LeadGrams: 1300, TrailGrams: 1250}}
	channel := &recordingChannel{}
	s := newTestSampler(pair, channel)

	// nothing is pushed before a companion connects
	tickRange(t, s, 0, 100*time.Millisecond, 10*time.Millisecond)
	if len(channel.messages) != 0 {
		t.Fatalf("messages before connect: %v", channel.messages)
	}
	if s.Status().Presence != nil {
		t.Error("presence advertised while disconnected")
	}

	s.HandleLink(swing.LinkConnected)
	tickRange(t, s, time.Second, 7*time.Second, 10*time.Millisecond)

	if len(channel.messages) < 5 {
		t.Fatalf("messages = %v", channel.messages)
	}
	want := []string{"WEIGHT_DETECTED", "START_SWING", "TOP_BEEP", "IMPACT_BEEP"}
	for i, w := range want {
		if channel.messages[i] != w {
			t.Errorf("message %d = %q, want %q", i, channel.messages[i], w)
		}
	}
	if !strings.HasPrefix(channel.messages[4], "(0.0000,") {
		t.Errorf("data payload = %.40q", channel.messages[4])
	}

	st := s.Status()
	if !st.Connected || st.Presence == nil || !*st.Presence {
		t.Errorf("status = %+v", st)
	}
}

func TestSampler_lostChannelForcesIdle(t *testing.T) {
	pair := &fakePair{sample: swing.WeightSample{LeadGrams: 1300, TrailGrams: 1250}}
	channel := &recordingChannel{}
	s := newTestSampler(pair, channel)
	s.HandleLink(swing.LinkConnected)

	tickRange(t, s, 0, 4500*time.Millisecond, 10*time.Millisecond)
	if got := s.Status().Phase; got != "ARMED_RECORDING" {
		t.Fatalf("phase = %s", got)
	}

	channel.err = swing.ErrChannelDisconnected
	tickRange(t, s, 4510*time.Millisecond, 5000*time.Millisecond, 10*time.Millisecond)

	st := s.Status()
	if st.Connected || st.Phase != "IDLE" || st.Recorded != 0 {
		t.Errorf("status after lost channel = %+v", st)
	}
}

func TestSampler_sensorFaultIsTerminal(t *testing.T) {
	pair := &fakePair{sample: swing.WeightSample{LeadGrams: 1300, TrailGrams: 1250}}
	channel := &recordingChannel{}
	s := newTestSampler(pair, channel)
	s.HandleLink(swing.LinkConnected)
	tickRange(t, s, 0, time.Second, 10*time.Millisecond)

	pair.err = errors.Join(swing.ErrSensorFault, errors.New("lead: signal timeout"))
	if err := s.Tick(t0.Add(2 * time.Second)); !errors.Is(err, swing.ErrSensorFault) {
		t.Fatalf("Tick error = %v, want ErrSensorFault", err)
	}

	pair.err = nil
	if err := s.Tick(t0.Add(3 * time.Second)); err == nil {
		t.Error("fault should persist after the sensor recovers")
	}
	st := s.Status()
	if st.Phase != "FAULTED" || st.Fault == "" {
		t.Errorf("status = %+v", st)
	}
	if len(channel.messages) != 1 {
		t.Errorf("messages = %v, want only WEIGHT_DETECTED", channel.messages)
	}
}

func TestSampler_telemetry(t *testing.T) {
	var telemetry bytes.Buffer
	s := newTestSampler(&fakePair{sample: swing.WeightSample{LeadGrams: 12.5, TrailGrams: 8}}, &recordingChannel{})
	s.telemetry = &telemetry

	if err := s.Tick(t0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	want := "swingweights,phase=IDLE lead=12.50,trail=8.00 "
	if !strings.HasPrefix(telemetry.String(), want) {
		t.Errorf("telemetry = %q, want prefix %q", telemetry.String(), want)
	}
}

func TestSampler_Run(t *testing.T) {
	links := make(chan swing.LinkEvent, 1)
	tempo := swing.NewTempoStore()
	opts := swing.DefaultOptions()
	opts.SampleInterval = time.Millisecond
	machine := swing.NewMachine(opts, tempo)
	s := NewSampler(&fakePair{}, machine, &recordingChannel{}, links, nil, metrics.New(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	links <- swing.LinkConnected
	deadline := time.After(2 * time.Second)
	for !s.Status().Connected {
		select {
		case <-deadline:
			t.Fatal("link event not applied")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}
