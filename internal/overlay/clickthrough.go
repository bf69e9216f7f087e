package overlay

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrClickThroughUnsupported is returned by setters on platforms without
// pointer pass-through.
var ErrClickThroughUnsupported = errors.New("click-through is not supported on this platform")

// Setter applies the click-through attribute to the native window. It must
// be idempotent.
type Setter interface {
	SetClickThrough(enabled bool) error
}

// SetterFunc adapts a function to Setter.
type SetterFunc func(enabled bool) error

// SetClickThrough calls fn(enabled).
func (fn SetterFunc) SetClickThrough(enabled bool) error { return fn(enabled) }

// ClickThrough owns the click-through flag of one window.
type ClickThrough struct {
	setter  Setter
	enabled bool
	logger  zerolog.Logger
}

// NewClickThrough creates a toggler starting at initial. Nothing is applied
// until Apply or Toggle.
func NewClickThrough(setter Setter, initial bool, logger zerolog.Logger) *ClickThrough {
	return &ClickThrough{
		setter:  setter,
		enabled: initial,
		logger:  logger.With().Str("component", "clickthrough").Logger(),
	}
}

// Enabled reports the current flag.
func (c *ClickThrough) Enabled() bool {
	return c.enabled
}

// Apply pushes the current flag to the window.
func (c *ClickThrough) Apply() error {
	return c.set(c.enabled)
}

// Toggle flips the flag and applies it. The flag flips even if the native
// call fails so the next toggle restores the previous request.
func (c *ClickThrough) Toggle() (bool, error) {
	c.enabled = !c.enabled
	return c.enabled, c.set(c.enabled)
}

func (c *ClickThrough) set(enabled bool) error {
	err := c.setter.SetClickThrough(enabled)
	if err != nil {
		c.logger.Warn().Err(err).Bool("enabled", enabled).Msg("click-through not applied")
		return err
	}
	c.logger.Info().Bool("enabled", enabled).Msg("click-through applied")
	return nil
}
