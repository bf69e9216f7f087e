// Package avatar holds the overlay's animation state machine.
//
// Everything in this package is owned by the UI thread. Nothing here is safe
// for concurrent use; other goroutines reach the machine through the event
// bridge only.
package avatar

// Mode is the base animation mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModeTalking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeTalking:
		return "talking"
	}
	return "unknown"
}

// State is the animation state of one avatar.
type State struct {
	Mode       Mode `json:"mode"`
	FrameIndex int  `json:"frameIndex"`
	Blinking   bool `json:"blinking"`
}

// Display receives frames to show. Implementations resize their surface to
// the frame size on every call.
type Display interface {
	Show(f Frame)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(f Frame)

// Show calls fn(f).
func (fn DisplayFunc) Show(f Frame) { fn(f) }
