package overlay

import (
	"fmt"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/normanking/deskavatar/internal/renderer"
	"github.com/rs/zerolog"
)

// WindowConfig describes the overlay window.
type WindowConfig struct {
	Title        string
	AlwaysOnTop  bool
	ClickThrough bool
	Position     string
	MarginX      int
	MarginY      int
	Opacity      float32
}

// Window is the glfw overlay. It implements avatar.Display and Pump and must
// be used on the thread that called glfw.Init.
type Window struct {
	win          *glfw.Window
	renderer     *renderer.Renderer
	clickThrough *ClickThrough
	drag         Drag
	config       WindowConfig
	logger       zerolog.Logger

	width, height int
	shown         bool
}

// NewWindow creates the hidden overlay window and its GL renderer. The window
// is placed and shown with the first frame.
func NewWindow(cfg WindowConfig, logger zerolog.Logger) (*Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.FocusOnShow, glfw.False)
	if cfg.AlwaysOnTop {
		glfw.WindowHint(glfw.Floating, glfw.True)
	}

	if cfg.Title == "" {
		cfg.Title = "deskavatar"
	}

	win, err := glfw.CreateWindow(1, 1, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	rcfg := renderer.DefaultConfig()
	if cfg.Opacity > 0 {
		rcfg.Opacity = cfg.Opacity
	}
	r, err := renderer.New(win, rcfg, logger)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	w := &Window{
		win:      win,
		renderer: r,
		config:   cfg,
		logger:   logger.With().Str("component", "overlay").Logger(),
	}
	w.clickThrough = NewClickThrough(nativeSetter(win), cfg.ClickThrough, logger)

	win.SetMouseButtonCallback(w.onMouseButton)
	win.SetCursorPosCallback(w.onCursorPos)

	return w, nil
}

// Show draws f, resizing the window to the frame first. The first call also
// places and reveals the window and applies click-through.
func (w *Window) Show(f avatar.Frame) {
	fw, fh := f.Size()
	if fw != w.width || fh != w.height {
		w.win.SetSize(fw, fh)
		w.width, w.height = fw, fh
	}

	if !w.shown {
		w.place()
		w.win.Show()
		w.clickThrough.Apply()
		w.shown = true
	}

	if err := w.renderer.Draw(f); err != nil {
		w.logger.Error().Err(err).Msg("draw failed")
		return
	}
	w.win.SwapBuffers()
}

func (w *Window) place() {
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		w.logger.Warn().Msg("no primary monitor, leaving window where it is")
		return
	}
	ax, ay, aw, ah := monitor.GetWorkarea()
	x, y := Place(w.config.Position, Rect{X: ax, Y: ay, W: aw, H: ah}, w.width, w.height, w.config.MarginX, w.config.MarginY)
	w.win.SetPos(x, y)

	w.logger.Debug().
		Str("position", w.config.Position).
		Int("x", x).
		Int("y", y).
		Msg("window placed")
}

func (w *Window) onMouseButton(win *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		cx, cy := win.GetCursorPos()
		w.drag.Press(int(cx), int(cy), w.clickThrough.Enabled())
	case glfw.Release:
		w.drag.Release()
	}
}

func (w *Window) onCursorPos(win *glfw.Window, xpos, ypos float64) {
	x, y := win.GetPos()
	if nx, ny, ok := w.drag.Move(x, y, int(xpos), int(ypos)); ok {
		win.SetPos(nx, ny)
	}
}

// ToggleClickThrough flips pointer pass-through.
func (w *Window) ToggleClickThrough() (bool, error) {
	return w.clickThrough.Toggle()
}

// WaitEvents implements Pump.
func (w *Window) WaitEvents(timeout time.Duration) {
	glfw.WaitEventsTimeout(timeout.Seconds())
}

// ShouldClose implements Pump.
func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// Destroy releases GL resources and the window.
func (w *Window) Destroy() {
	w.renderer.Shutdown()
	w.win.Destroy()
}

// Wake interrupts WaitEvents from any goroutine.
func Wake() {
	glfw.PostEmptyEvent()
}
