package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/normanking/deskavatar/internal/assets"
	"github.com/normanking/deskavatar/internal/audio"
	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/normanking/deskavatar/internal/bus"
	"github.com/normanking/deskavatar/internal/config"
	"github.com/normanking/deskavatar/internal/console"
	"github.com/normanking/deskavatar/internal/controller"
	"github.com/normanking/deskavatar/internal/ipc"
	"github.com/normanking/deskavatar/internal/llm"
	"github.com/normanking/deskavatar/internal/logging"
	"github.com/normanking/deskavatar/internal/overlay"
	"github.com/normanking/deskavatar/internal/tts"
	"github.com/normanking/deskavatar/internal/worker"
	"github.com/rs/zerolog"
)

// surface combines the window and its loop for the controller.
type surface struct {
	*overlay.Window
	*overlay.Loop
}

// runOverlay is the UI thread: everything that touches glfw or the avatar
// state machine happens here.
func runOverlay(parent context.Context) error {
	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	loader := config.NewLoader(configPath, bootstrap)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	syslog, err := logging.New(&logging.Config{
		LogDir:  cfg.Log.Dir,
		Level:   logging.ParseLevel(level),
		Console: cfg.Log.Console,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer syslog.Close()

	syslog.Info("main", "DeskAvatar starting", map[string]interface{}{
		"version": version,
		"config":  loader.Path(),
		"logFile": syslog.GetLogPath(),
	})

	frames, err := assets.NewLoader(cfg.Scale, filepath.Dir(loader.Path()), syslog.Component("assets")).FrameSet(cfg.Frames)
	if err != nil {
		syslog.Error("main", "No usable idle frames", err, nil)
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	marginX, marginY := cfg.MarginXY()
	window, err := overlay.NewWindow(overlay.WindowConfig{
		Title:        "DeskAvatar",
		AlwaysOnTop:  cfg.AlwaysOnTop,
		ClickThrough: cfg.ClickThrough,
		Position:     cfg.Position,
		MarginX:      marginX,
		MarginY:      marginY,
		Opacity:      1,
	}, syslog.Component("overlay"))
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	defer window.Destroy()

	machine := avatar.NewMachine(frames, window, avatar.Options{
		TickInterval: cfg.TickInterval(),
		Blink:        cfg.AvatarBlink(),
		Logger:       syslog.Component("avatar"),
	})

	bridge := bus.NewBridge(syslog.Component("bus"))
	bridge.SetWaker(overlay.Wake)
	router := bus.NewRouter()

	ttsProvider, err := tts.NewProvider(cfg.TTS, syslog.Component("tts"))
	if err != nil {
		syslog.Warn("main", "TTS provider unavailable, falling back to edge", map[string]interface{}{
			"provider": cfg.TTS.Provider,
			"error":    err.Error(),
		})
		ttsProvider = tts.NewEdgeProvider(syslog.Component("tts"), nil)
	}

	player, err := audio.NewPlayer(cfg.TTS.Player, syslog.Component("audio"))
	if err != nil {
		syslog.Warn("main", "Unknown audio player, using auto", map[string]interface{}{
			"player": cfg.TTS.Player,
		})
		player, _ = audio.NewPlayer("auto", syslog.Component("audio"))
	}

	llmProvider, err := llm.NewProvider(cfg.LLM, syslog.Component("llm"))
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := overlay.NewLoop(window, machine, bridge, router, overlay.LoopOptions{
		Logger: syslog.Component("loop"),
	})

	ctrl := controller.New(ctx, controller.Options{
		Avatar:    machine,
		Overlay:   surface{window, loop},
		Speech:    worker.NewSpeech(ttsProvider, player, bridge, syslog.Component("speech")),
		Inference: worker.NewInference(llmProvider, cfg.LLM.SystemPrompt, syslog.Component("inference")),
		Sender:    bridge,
		Out:       os.Stdout,
		Voice:     tts.ParamsFromConfig(cfg.TTS),
		Model:     cfg.LLM.Model,
		Logger:    syslog.Component("controller"),
	})
	ctrl.Register(router)

	dispatcher := console.NewDispatcher(bridge, console.Options{
		PullHint: llmProvider.Name() == "ollama",
	})

	if !noConsole {
		con := console.New(dispatcher, bridge, os.Stdin, os.Stdout, syslog.Component("console"))
		go con.Run(ctx)
	}

	if cfg.IPC.Enabled {
		srv, err := ipc.Listen(ipc.SocketPath(cfg.IPC.SocketPath), func(line string) []string {
			var buf bytes.Buffer
			dispatcher.Execute(line, &buf)
			return splitLines(buf.String())
		}, syslog.Component("ipc"))
		if err != nil {
			syslog.Warn("main", "Control socket disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer srv.Close()
			go srv.Serve(ctx)
		}
	}

	loader.Watch(func(c *config.Config, err error) {
		if err != nil {
			syslog.Warn("config", "Ignoring invalid config change", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		bridge.Send(bus.ReloadBlink{Blink: c.AvatarBlink()})
	})

	err = loop.Run(ctx)
	syslog.Info("main", "DeskAvatar shutting down", nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
