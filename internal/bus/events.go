// Package bus carries events from worker goroutines to the UI thread.
package bus

import (
	"github.com/normanking/deskavatar/internal/avatar"
)

// EventType identifies different event types
type EventType string

// Event types for deskavatar
const (
	// Avatar events
	EventTypeSetTalking  EventType = "avatar.set_talking"
	EventTypeReloadBlink EventType = "avatar.reload_blink"

	// Speech events
	EventTypeSayText        EventType = "speech.say"
	EventTypeSetVoiceParams EventType = "speech.set_voice"

	// Inference events
	EventTypeAsk      EventType = "inference.ask"
	EventTypeSetModel EventType = "inference.set_model"

	// Overlay events
	EventTypeToggleClickThrough EventType = "overlay.toggle_click_through"
	EventTypeQuit               EventType = "app.quit"
)

// Event is a message delivered to the UI thread.
type Event interface {
	Type() EventType
}

// SetTalking switches the avatar between idle and talking animation.
type SetTalking struct {
	Talking bool
}

// SayText asks the controller to speak the text.
type SayText struct {
	Text string
}

// Ask asks the controller to run inference on the text and speak the reply.
type Ask struct {
	Text string
}

// SetVoiceParams updates speech parameters. Empty fields are left unchanged.
type SetVoiceParams struct {
	Voice string
	Rate  string
	Pitch string
}

// SetModel selects the language model used by later Ask events.
type SetModel struct {
	Model string
}

// ToggleClickThrough flips the overlay's click-through state.
type ToggleClickThrough struct{}

// Quit stops the UI loop.
type Quit struct{}

// ReloadBlink carries blink settings re-read from the config file.
type ReloadBlink struct {
	Blink avatar.BlinkConfig
}

func (SetTalking) Type() EventType         { return EventTypeSetTalking }
func (SayText) Type() EventType            { return EventTypeSayText }
func (Ask) Type() EventType                { return EventTypeAsk }
func (SetVoiceParams) Type() EventType     { return EventTypeSetVoiceParams }
func (SetModel) Type() EventType           { return EventTypeSetModel }
func (ToggleClickThrough) Type() EventType { return EventTypeToggleClickThrough }
func (Quit) Type() EventType               { return EventTypeQuit }
func (ReloadBlink) Type() EventType        { return EventTypeReloadBlink }
