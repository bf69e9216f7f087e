package avatar

import (
	"errors"
)

// ErrNoIdleFrames is returned when a frame set has no idle frames. The overlay
// cannot be shown without them.
var ErrNoIdleFrames = errors.New("at least one idle frame is required")

// Frame is an opaque handle to a pre-loaded visual frame.
type Frame interface {
	// Size returns the rendered size in pixels, after scaling.
	Size() (width, height int)
}

// Category names a frame sequence.
type Category string

const (
	CategoryIdle      Category = "idle"
	CategoryTalk      Category = "talk"
	CategoryBlinkIdle Category = "blink_idle"
	CategoryBlinkTalk Category = "blink_talk"
)

// FrameSet is the immutable collection of frame sequences.
type FrameSet struct {
	idle      []Frame
	talk      []Frame
	blinkIdle []Frame
	blinkTalk []Frame
}

// NewFrameSet builds a frame set. Empty talk frames alias the idle frames;
// empty blink sequences disable blinking for that mode.
func NewFrameSet(idle, talk, blinkIdle, blinkTalk []Frame) (*FrameSet, error) {
	if len(idle) == 0 {
		return nil, ErrNoIdleFrames
	}

	fs := &FrameSet{
		idle:      clone(idle),
		blinkIdle: clone(blinkIdle),
		blinkTalk: clone(blinkTalk),
	}
	if len(talk) == 0 {
		fs.talk = fs.idle
	} else {
		fs.talk = clone(talk)
	}
	return fs, nil
}

// Get returns the sequence for a category. Callers must not modify it.
func (fs *FrameSet) Get(c Category) []Frame {
	switch c {
	case CategoryIdle:
		return fs.idle
	case CategoryTalk:
		return fs.talk
	case CategoryBlinkIdle:
		return fs.blinkIdle
	case CategoryBlinkTalk:
		return fs.blinkTalk
	}
	return nil
}

// Sequence returns the base animation for a mode.
func (fs *FrameSet) Sequence(m Mode) []Frame {
	if m == ModeTalking {
		return fs.talk
	}
	return fs.idle
}

// BlinkSequence returns the blink frames for a mode, possibly empty.
func (fs *FrameSet) BlinkSequence(m Mode) []Frame {
	if m == ModeTalking {
		return fs.blinkTalk
	}
	return fs.blinkIdle
}

// CanBlink reports whether any mode has blink frames.
func (fs *FrameSet) CanBlink() bool {
	return len(fs.blinkIdle) > 0 || len(fs.blinkTalk) > 0
}

func clone(in []Frame) []Frame {
	if len(in) == 0 {
		return nil
	}
	out := make([]Frame, len(in))
	copy(out, in)
	return out
}
