// Package ipc is the local control socket. deskavatar ctl sends one command
// line to a running overlay and prints what the overlay answers.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrNotRunning     = errors.New("deskavatar is not running")
	ErrAlreadyRunning = errors.New("another deskavatar is listening on the socket")
)

// DefaultSocketPath is used when the config leaves ipc.socket_path empty.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "deskavatar.sock")
}

// SocketPath returns configured, or DefaultSocketPath when it is blank.
// Server and client must resolve the path the same way.
func SocketPath(configured string) string {
	if strings.TrimSpace(configured) == "" {
		return DefaultSocketPath()
	}
	return configured
}

// ControlMessage is one request on the socket.
type ControlMessage struct {
	Cmd string `json:"cmd"`
}

// ControlReply carries the command's console output back to the client.
type ControlReply struct {
	Lines []string `json:"lines,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Handler runs one command line and returns its output lines.
type Handler func(line string) []string

// Server accepts one JSON request per connection.
type Server struct {
	path    string
	ln      net.Listener
	handler Handler
	logger  zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Listen binds the socket at path. A stale socket file left by a crashed
// process is replaced; a live one is an error.
func Listen(path string, handler Handler, logger zerolog.Logger) (*Server, error) {
	if conn, err := net.DialTimeout("unix", path, 200*time.Millisecond); err == nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return &Server{
		path:    path,
		ln:      ln,
		handler: handler,
		logger:  logger.With().Str("component", "ipc").Str("socket", path).Logger(),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve accepts connections until Close is called or ctx is done.
func (s *Server) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.logger.Info().Msg("control socket listening")
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		s.logger.Warn().Err(err).Msg("bad control message")
		json.NewEncoder(conn).Encode(ControlReply{Error: "bad request: " + err.Error()})
		return
	}

	s.logger.Debug().Str("cmd", msg.Cmd).Msg("control command")
	reply := ControlReply{Lines: s.handler(msg.Cmd)}
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		s.logger.Warn().Err(err).Msg("reply failed")
	}
}

// Close stops accepting, waits for open connections and removes the socket.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()
		s.wg.Wait()
		os.Remove(s.path)
	})
	return err
}

// SendCommand delivers line to the overlay listening at path and returns
// its output.
func SendCommand(ctx context.Context, path, line string) ([]string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: line}); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if reply.Error != "" {
		return reply.Lines, errors.New(reply.Error)
	}
	return reply.Lines, nil
}
