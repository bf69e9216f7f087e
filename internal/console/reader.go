package console

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/normanking/deskavatar/internal/bus"
	"github.com/rs/zerolog"
)

// Prompt is printed before each line is read.
const Prompt = "> "

// Console reads commands from an input stream.
type Console struct {
	dispatcher *Dispatcher
	sender     Sender
	in         io.Reader
	out        io.Writer
	logger     zerolog.Logger
}

// New creates a console reading in and printing to out.
func New(dispatcher *Dispatcher, sender Sender, in io.Reader, out io.Writer, logger zerolog.Logger) *Console {
	return &Console{
		dispatcher: dispatcher,
		sender:     sender,
		in:         in,
		out:        out,
		logger:     logger.With().Str("component", "console").Logger(),
	}
}

// Run prints the help block and executes lines until quit, end of input or
// ctx is done. End of input and read errors send Quit.
func (c *Console) Run(ctx context.Context) {
	fmt.Fprintf(c.out, "\n%s\n\n", HelpText)

	scanner := bufio.NewScanner(c.in)
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprint(c.out, Prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.logger.Error().Err(err).Msg("console read failed")
			}
			c.sender.Send(bus.Quit{})
			return
		}
		if ctx.Err() != nil {
			return
		}
		if c.dispatcher.Execute(scanner.Text(), c.out) {
			return
		}
	}
}
