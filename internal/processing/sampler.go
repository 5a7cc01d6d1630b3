package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"sleepywoodpecker/swing-platform/internal/metrics"
	"sleepywoodpecker/swing-platform/internal/swing"

	"go.uber.org/zap"
)

const SamplingChannelName = "swingweights"

type samplePair interface {
	Sample() (swing.WeightSample, error)
}

// sampler owns the state machine: every tick it samples both scales, steps
// the machine and pushes the resulting events to the companion.
type sampler struct {
	samplingFrequency time.Duration
	pair              samplePair
	machine           *swing.Machine
	channel           swing.NotifyChannel
	links             <-chan swing.LinkEvent
	telemetry         io.Writer
	metrics           *metrics.Metrics
	logger            *zap.Logger

	lastSample swing.WeightSample
	statusMu   sync.Mutex
	status     swing.Status
}

// NewSampler builds the tick loop. telemetry may be nil to disable the
// influx line output.
func NewSampler(
	pair samplePair,
	machine *swing.Machine,
	channel swing.NotifyChannel,
	links <-chan swing.LinkEvent,
	telemetry io.Writer,
	met *metrics.Metrics,
	logger *zap.Logger,
) *sampler {
	s := &sampler{
		samplingFrequency: machine.Options().SampleInterval,
		pair:              pair,
		machine:           machine,
		channel:           channel,
		links:             links,
		telemetry:         telemetry,
		metrics:           met,
		logger:            logger,
	}
	s.publish()
	return s
}

// Run drives the machine until ctx is cancelled or a sensor fault halts it.
// A fault is returned and is not recoverable.
func (s *sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.samplingFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("[sampler] received shutdown signal")
			return nil
		case link := <-s.links:
			s.HandleLink(link)
		case now := <-ticker.C:
			if err := s.Tick(now); err != nil {
				return err
			}
		}
	}
}

// Tick runs one sampling step at now.
func (s *sampler) Tick(now time.Time) error {
	if err := s.machine.Err(); err != nil {
		return err
	}

	sample, err := s.pair.Sample()
	if err != nil {
		s.machine.Fault(err)
		s.metrics.SetSensorFault(true)
		s.publish()
		s.logger.Error("[sampler] sensor fault, halting", zap.Error(err))
		return err
	}
	s.metrics.IncSamples()
	s.lastSample = sample

	for _, ev := range s.machine.Step(now, sample) {
		if !s.machine.State().Connected {
			// the companion went away mid-batch, drop the rest
			break
		}
		s.deliver(ev)
	}

	s.sendTelemetry(now, sample)
	s.publish()
	return nil
}

// HandleLink applies a companion connect or disconnect.
func (s *sampler) HandleLink(link swing.LinkEvent) {
	switch link {
	case swing.LinkConnected:
		s.machine.Connect()
		s.logger.Info("[sampler] companion connected")
	case swing.LinkDisconnected:
		if s.machine.Disconnect() {
			s.logger.Warn("[sampler] companion disconnected, session aborted")
		} else {
			s.logger.Info("[sampler] companion disconnected")
		}
	}
	s.metrics.SetCompanionConnected(s.machine.State().Connected)
	s.publish()
}

// Status returns the last published view of the machine. Safe to call from
// any goroutine.
func (s *sampler) Status() swing.Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	return s.status
}

func (s *sampler) deliver(ev swing.Event) {
	s.metrics.ObserveEvent(ev.Kind)
	s.logger.Info("[sampler] event",
		zap.String("kind", string(ev.Kind)),
		zap.String("session", ev.SessionID),
		zap.Int("payloadBytes", len(ev.Payload)),
	)

	err := s.channel.Notify(ev.Message())
	if err == nil {
		return
	}

	s.metrics.IncNotifyErrors()
	if errors.Is(err, swing.ErrChannelDisconnected) {
		s.logger.Warn("[sampler] notify channel lost", zap.String("kind", string(ev.Kind)))
		s.HandleLink(swing.LinkDisconnected)
		return
	}
	s.logger.Warn("[sampler] error notifying companion", zap.Error(err), zap.String("kind", string(ev.Kind)))
}

func (s *sampler) sendTelemetry(now time.Time, sample swing.WeightSample) {
	if s.telemetry == nil {
		return
	}

	// influx line protocol for telegraf
	line := fmt.Sprintf("%s,phase=%s lead=%.2f,trail=%.2f %d\n",
		SamplingChannelName,
		s.machine.Phase(),
		sample.LeadGrams,
		sample.TrailGrams,
		now.UnixNano(),
	)
	if _, err := io.WriteString(s.telemetry, line); err != nil {
		s.logger.Debug("[sampler] error writing telemetry", zap.Error(err))
	}
}

func (s *sampler) publish() {
	st := s.machine.Status(s.lastSample)
	s.metrics.SetPhase(s.machine.Phase())

	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = st
}
