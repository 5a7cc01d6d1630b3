package swing

import "fmt"

// WeightSample is one synchronized reading of both scales, in grams.
type WeightSample struct {
	LeadGrams  float64
	TrailGrams float64
}

// Presence reports whether both sides carry more than threshold.
func (s WeightSample) Presence(threshold float64) bool {
	return s.LeadGrams > threshold && s.TrailGrams > threshold
}

// WeightSensor yields the latest calibrated reading of a single scale.
// Read must not block waiting for a fresh conversion; it returns the last
// known value instead.
type WeightSensor interface {
	Read() (float64, error)
}

// SensorPair samples the lead and trail scales together.
type SensorPair struct {
	lead  WeightSensor
	trail WeightSensor
}

func NewSensorPair(lead, trail WeightSensor) *SensorPair {
	return &SensorPair{lead: lead, trail: trail}
}

// Sample reads both scales. Any error from either side is reported as a
// sensor fault.
func (p *SensorPair) Sample() (WeightSample, error) {
	lead, err := p.lead.Read()
	if err != nil {
		return WeightSample{}, fmt.Errorf("%w: lead: %w", ErrSensorFault, err)
	}
	trail, err := p.trail.Read()
	if err != nil {
		return WeightSample{}, fmt.Errorf("%w: trail: %w", ErrSensorFault, err)
	}

	return WeightSample{LeadGrams: lead, TrailGrams: trail}, nil
}
