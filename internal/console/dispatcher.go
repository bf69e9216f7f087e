// Package console turns command lines into bridge events.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/normanking/deskavatar/internal/bus"
)

// HelpText lists the commands. It is printed at startup and on help.
const HelpText = `Commands:
  say <text>      | speak the text
  ask <text>      | ask the language model and speak the reply
  model <name>    | switch the model (ex: qwen2.5:3b)
  talk on/off     | toggle the talking animation by hand
  ct              | toggle click-through
  voice <name>    | change voice (ex: ja-JP-NanamiNeural)
  pitch <+25Hz>   | adjust pitch
  rate <+10%>     | adjust rate
  quit            | exit
  help            | this help`

// Result is what one command line produces.
type Result struct {
	Events []bus.Event
	Lines  []string
	Quit   bool
}

// Options tune the confirmations printed by Parse.
type Options struct {
	// PullHint adds the "ollama pull" reminder after a model change.
	PullHint bool
}

// Parse interprets one line. The command word is case-insensitive and the
// rest of the line, trimmed, is its argument. Blank lines produce nothing;
// malformed or unknown commands produce only diagnostic lines.
func Parse(line string, opts Options) Result {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{}
	}

	cmd, arg, _ := strings.Cut(line, " ")
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "help":
		return lines(HelpText)

	case "quit", "exit":
		return Result{Events: []bus.Event{bus.Quit{}}, Quit: true}

	case "ct":
		return events(bus.ToggleClickThrough{})

	case "talk":
		switch strings.ToLower(arg) {
		case "on", "true", "1":
			return events(bus.SetTalking{Talking: true})
		case "off", "false", "0":
			return events(bus.SetTalking{Talking: false})
		}
		return lines("Use: talk on | talk off")

	case "voice":
		if arg == "" {
			return lines("Use: voice <name> (ex: ja-JP-NanamiNeural)")
		}
		return Result{
			Events: []bus.Event{bus.SetVoiceParams{Voice: arg}},
			Lines:  []string{"[tts] voice = " + arg},
		}

	case "pitch":
		if arg == "" {
			return lines("Use: pitch <+25Hz> (ex: +35Hz)")
		}
		return Result{
			Events: []bus.Event{bus.SetVoiceParams{Pitch: arg}},
			Lines:  []string{"[tts] pitch = " + arg},
		}

	case "rate":
		if arg == "" {
			return lines("Use: rate <+10%> (ex: -10%)")
		}
		return Result{
			Events: []bus.Event{bus.SetVoiceParams{Rate: arg}},
			Lines:  []string{"[tts] rate = " + arg},
		}

	case "model":
		if arg == "" {
			return lines("Use: model <name> (ex: qwen2.5:3b)")
		}
		res := Result{
			Events: []bus.Event{bus.SetModel{Model: arg}},
			Lines:  []string{"[llm] model = " + arg},
		}
		if opts.PullHint {
			res.Lines = append(res.Lines, "Now pull it with: ollama pull "+arg)
		}
		return res

	case "say":
		if arg == "" {
			return lines("Use: say <text>")
		}
		return events(bus.SayText{Text: arg})

	case "ask":
		if arg == "" {
			return lines("Use: ask <question>")
		}
		return events(bus.Ask{Text: arg})
	}

	return lines("Unknown command. Type: help")
}

func events(evs ...bus.Event) Result {
	return Result{Events: evs}
}

func lines(ls ...string) Result {
	return Result{Lines: ls}
}

// Sender accepts events for the UI thread. *bus.Bridge implements it.
type Sender interface {
	Send(ev bus.Event) bool
}

// Dispatcher parses command lines, sends their events and prints their
// output.
type Dispatcher struct {
	sender Sender
	opts   Options
}

// NewDispatcher creates a dispatcher sending to sender.
func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	return &Dispatcher{sender: sender, opts: opts}
}

// Execute runs one line, writing its output to out. It reports whether the
// line asked to quit.
func (d *Dispatcher) Execute(line string, out io.Writer) bool {
	res := Parse(line, d.opts)
	for _, ev := range res.Events {
		d.sender.Send(ev)
	}
	for _, l := range res.Lines {
		fmt.Fprintln(out, l)
	}
	return res.Quit
}
