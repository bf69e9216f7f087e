package avatar

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"
)

// ErrInvalidBlink is returned for blink settings that violate
// 0 <= min <= max and duration >= 0.
var ErrInvalidBlink = errors.New("invalid blink settings")

// BlinkConfig controls random blinking.
type BlinkConfig struct {
	Enabled     bool
	MinInterval time.Duration
	MaxInterval time.Duration
	Duration    time.Duration
}

// DefaultBlinkConfig mirrors the defaults written to a fresh config file.
func DefaultBlinkConfig() BlinkConfig {
	return BlinkConfig{
		Enabled:     true,
		MinInterval: 2500 * time.Millisecond,
		MaxInterval: 6000 * time.Millisecond,
		Duration:    120 * time.Millisecond,
	}
}

// Validate checks the interval and duration bounds.
func (c BlinkConfig) Validate() error {
	if c.MinInterval < 0 || c.MaxInterval < c.MinInterval {
		return fmt.Errorf("%w: interval [%v, %v]", ErrInvalidBlink, c.MinInterval, c.MaxInterval)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration %v", ErrInvalidBlink, c.Duration)
	}
	return nil
}

// BlinkScheduler produces wait times between blink attempts, sampled
// uniformly from [min, max] at millisecond granularity.
type BlinkScheduler struct {
	min time.Duration
	max time.Duration
	rng *rand.Rand
}

// NewBlinkScheduler creates a scheduler. A nil source seeds from the runtime.
func NewBlinkScheduler(min, max time.Duration, src rand.Source) *BlinkScheduler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	s := &BlinkScheduler{rng: rand.New(src)}
	s.SetRange(min, max)
	return s
}

// SetRange replaces the sampling range. Inverted bounds are swapped and
// negative bounds clamp to zero.
func (s *BlinkScheduler) SetRange(min, max time.Duration) {
	if min < 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	if max < min {
		min, max = max, min
	}
	s.min, s.max = min, max
}

// Range returns the current sampling bounds.
func (s *BlinkScheduler) Range() (min, max time.Duration) {
	return s.min, s.max
}

// Next samples one wait time.
func (s *BlinkScheduler) Next() time.Duration {
	lo := s.min.Milliseconds()
	hi := s.max.Milliseconds()
	if hi <= lo {
		return s.min
	}
	return time.Duration(lo+s.rng.Int64N(hi-lo+1)) * time.Millisecond
}

// Delays yields wait times until the consumer stops pulling.
func (s *BlinkScheduler) Delays() iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		for {
			if !yield(s.Next()) {
				return
			}
		}
	}
}
