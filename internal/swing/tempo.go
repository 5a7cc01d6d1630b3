package swing

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TempoConfig is the back-swing and down-swing length in frames.
type TempoConfig struct {
	BackFrames int `json:"back_frames"`
	DownFrames int `json:"down_frames"`
}

func (t TempoConfig) String() string {
	return fmt.Sprintf("%d/%d", t.BackFrames, t.DownFrames)
}

// Delays converts the frame counts to durations. Negative counts are
// treated as zero.
func (t TempoConfig) Delays(frameTime time.Duration) (back, down time.Duration) {
	return time.Duration(max(t.BackFrames, 0)) * frameTime,
		time.Duration(max(t.DownFrames, 0)) * frameTime
}

// ParseTempo parses a "<back>/<down>" command, e.g. "6/3".
func ParseTempo(raw string) (TempoConfig, error) {
	backStr, downStr, found := strings.Cut(strings.TrimSpace(raw), "/")
	if !found {
		return TempoConfig{}, &CommandParseError{Raw: raw, Err: ErrMissingDelimiter}
	}

	back, err := strconv.Atoi(strings.TrimSpace(backStr))
	if err != nil {
		return TempoConfig{}, &CommandParseError{Raw: raw, Err: fmt.Errorf("back frames: %w", err)}
	}
	down, err := strconv.Atoi(strings.TrimSpace(downStr))
	if err != nil {
		return TempoConfig{}, &CommandParseError{Raw: raw, Err: fmt.Errorf("down frames: %w", err)}
	}

	return TempoConfig{BackFrames: back, DownFrames: down}, nil
}

// TempoStore holds the tempo shared between the command listener and the
// tick loop.
type TempoStore struct {
	current TempoConfig
	mu      sync.Mutex
}

func NewTempoStore() *TempoStore {
	return &TempoStore{}
}

// SetFromCommand replaces the tempo with the parsed command. On error the
// previous tempo is kept.
func (s *TempoStore) SetFromCommand(raw string) (TempoConfig, error) {
	tempo, err := ParseTempo(raw)
	if err != nil {
		return s.Get(), err
	}

	s.Set(tempo)
	return tempo, nil
}

func (s *TempoStore) Set(tempo TempoConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = tempo
}

func (s *TempoStore) Get() TempoConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}
