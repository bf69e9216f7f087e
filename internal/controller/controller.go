// Package controller handles bridge events on the UI thread. It owns the
// voice and model settings and launches workers with a snapshot of them.
package controller

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/normanking/deskavatar/internal/bus"
	"github.com/normanking/deskavatar/internal/tts"
	"github.com/normanking/deskavatar/internal/worker"
	"github.com/rs/zerolog"
)

// Avatar is the state machine surface the controller drives.
type Avatar interface {
	SetTalking(talking bool)
	SetBlinkConfig(cfg avatar.BlinkConfig)
}

// Overlay is the window surface the controller drives.
type Overlay interface {
	ToggleClickThrough() (bool, error)
	Stop()
}

// Speaker speaks text; it blocks its goroutine.
type Speaker interface {
	Speak(ctx context.Context, text string, params tts.VoiceParams) (bool, string)
}

// Responder answers a question; it blocks its goroutine.
type Responder interface {
	Reply(ctx context.Context, text, model string) string
}

// Options wires a Controller.
type Options struct {
	Avatar    Avatar
	Overlay   Overlay
	Speech    Speaker
	Inference Responder
	Sender    worker.Sender
	// Out receives console output such as replies and diagnostics.
	Out    io.Writer
	Voice  tts.VoiceParams
	Model  string
	Logger zerolog.Logger
}

// Controller is created and used on the UI thread. Only Wait may be called
// from elsewhere.
type Controller struct {
	avatar    Avatar
	overlay   Overlay
	speech    Speaker
	inference Responder
	sender    worker.Sender
	logger    zerolog.Logger

	outMu sync.Mutex
	out   io.Writer

	voice tts.VoiceParams
	model string

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a controller. Workers it launches run under ctx.
func New(ctx context.Context, opts Options) *Controller {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Controller{
		avatar:    opts.Avatar,
		overlay:   opts.Overlay,
		speech:    opts.Speech,
		inference: opts.Inference,
		sender:    opts.Sender,
		out:       opts.Out,
		voice:     opts.Voice,
		model:     opts.Model,
		logger:    opts.Logger.With().Str("component", "controller").Logger(),
		ctx:       ctx,
	}
}

// Register subscribes the controller's handlers.
func (c *Controller) Register(r *bus.Router) {
	r.Subscribe(bus.EventTypeSetTalking, c.onSetTalking)
	r.Subscribe(bus.EventTypeSayText, c.onSayText)
	r.Subscribe(bus.EventTypeAsk, c.onAsk)
	r.Subscribe(bus.EventTypeSetVoiceParams, c.onSetVoiceParams)
	r.Subscribe(bus.EventTypeSetModel, c.onSetModel)
	r.Subscribe(bus.EventTypeToggleClickThrough, c.onToggleClickThrough)
	r.Subscribe(bus.EventTypeQuit, c.onQuit)
	r.Subscribe(bus.EventTypeReloadBlink, c.onReloadBlink)
	r.Unhandled(func(ev bus.Event) {
		c.logger.Warn().Str("type", string(ev.Type())).Msg("unhandled event")
	})
}

// Voice returns the current voice settings.
func (c *Controller) Voice() tts.VoiceParams {
	return c.voice
}

// Model returns the current model name.
func (c *Controller) Model() string {
	return c.model
}

// Wait blocks until every launched worker has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) onSetTalking(ev bus.Event) {
	c.avatar.SetTalking(ev.(bus.SetTalking).Talking)
}

func (c *Controller) onSayText(ev bus.Event) {
	text := ev.(bus.SayText).Text
	params := c.voice

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if ok, msg := c.speech.Speak(c.ctx, text, params); !ok && msg != "" {
			c.println("[tts] error: " + msg)
		}
	}()
}

func (c *Controller) onAsk(ev bus.Event) {
	text := ev.(bus.Ask).Text
	model := c.model

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reply := c.inference.Reply(c.ctx, text, model)
		c.println("nya> " + reply)
		c.sender.Send(bus.SayText{Text: worker.SpeakableText(reply)})
	}()
}

func (c *Controller) onSetVoiceParams(ev bus.Event) {
	p := ev.(bus.SetVoiceParams)
	c.voice = c.voice.With(tts.VoiceParams{Voice: p.Voice, Rate: p.Rate, Pitch: p.Pitch})
	c.logger.Info().
		Str("voice", c.voice.Voice).
		Str("rate", c.voice.Rate).
		Str("pitch", c.voice.Pitch).
		Msg("voice updated")
}

func (c *Controller) onSetModel(ev bus.Event) {
	c.model = ev.(bus.SetModel).Model
	c.logger.Info().Str("model", c.model).Msg("model updated")
}

func (c *Controller) onToggleClickThrough(bus.Event) {
	enabled, err := c.overlay.ToggleClickThrough()
	state := "off"
	if enabled {
		state = "on"
	}
	if err != nil {
		c.println(fmt.Sprintf("[overlay] click-through = %s (not applied: %v)", state, err))
		return
	}
	c.println("[overlay] click-through = " + state)
}

func (c *Controller) onQuit(bus.Event) {
	c.logger.Info().Msg("quit requested")
	c.overlay.Stop()
}

func (c *Controller) onReloadBlink(ev bus.Event) {
	c.avatar.SetBlinkConfig(ev.(bus.ReloadBlink).Blink)
}

func (c *Controller) println(line string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, line)
}
