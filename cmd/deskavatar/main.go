// DeskAvatar - an animated desktop companion that talks and answers back
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/normanking/deskavatar/internal/config"
	"github.com/normanking/deskavatar/internal/ipc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configPath string
	logLevel   string
	noConsole  bool
)

// glfw requires the window and its event loop on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskavatar",
		Short: "Animated desktop companion overlay",
		Long: `DeskAvatar shows a frameless, always-on-top character on the desktop.
It blinks, lip-flaps while speaking, reads text aloud and answers
questions through a local or hosted language model.

Type commands at the console prompt, or send them to a running
instance with 'deskavatar ctl'.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverlay(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "Do not read commands from stdin")

	rootCmd.AddCommand(ctlCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	loadEnvFiles()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvFiles loads API keys from .env files into the process environment.
// Existing variables win over file values.
func loadEnvFiles() {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".deskavatar", ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", p, err)
		}
	}
}

func ctlCmd() *cobra.Command {
	var socketPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ctl <command...>",
		Short: "Send a console command to the running overlay",
		Long: `Send one console command line to a running DeskAvatar instance
and print its response.

Examples:
  deskavatar ctl say hello there
  deskavatar ctl talk on
  deskavatar ctl quit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if socketPath == "" {
				socketPath = configuredSocketPath()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			lines, err := ipc.SendCommand(ctx, socketPath, strings.Join(args, " "))
			if errors.Is(err, ipc.ErrNotRunning) {
				return fmt.Errorf("no overlay is listening on %s; start one with 'deskavatar'", socketPath)
			}
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "Control socket path (default: ipc.socket_path from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for a reply")
	return cmd
}

// configuredSocketPath reads ipc.socket_path without creating a config file.
func configuredSocketPath() string {
	if _, err := os.Stat(configPath); err != nil {
		return ipc.SocketPath(config.DefaultConfig().IPC.SocketPath)
	}
	cfg, err := config.NewLoader(configPath, zerolog.Nop()).Load()
	if err != nil {
		return ipc.DefaultSocketPath()
	}
	return ipc.SocketPath(cfg.IPC.SocketPath)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Long: `Print the configuration after defaults, the config file and
DESKAVATAR_* environment overrides are merged. API keys are masked.
A default config file is written when none exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(configPath, zerolog.Nop())
			if _, err := loader.Load(); err != nil {
				return err
			}

			settings := loader.AllSettings()
			maskSecrets(settings)

			out, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s\n", loader.Path(), out)
			return nil
		},
	})
	return cmd
}

func maskSecrets(settings map[string]any) {
	for _, section := range []string{"tts", "llm"} {
		m, ok := settings[section].(map[string]any)
		if !ok {
			continue
		}
		if key, ok := m["api_key"].(string); ok && key != "" {
			m["api_key"] = "****"
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("deskavatar %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
