// Package overlay is the spectator event bus: an embedded NATS server the
// stream overlay subscribes to for live stats, narration and lifecycle
// events. Publishing is best-effort; a missing or slow subscriber never
// affects play.
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Subjects the overlay bus carries.
const (
	SubjectStats   = "overlay.stats"
	SubjectThought = "overlay.thought"
	SubjectEvent   = "overlay.event"
)

type Server struct {
	ns   *server.Server
	conn *nats.Conn

	startupTimeout time.Duration
	host           string
	port           int
}

type ServerOpt func(*Server)

// WithStartTimeout sets the startup timeout for the embedded server.
func WithStartTimeout(d time.Duration) ServerOpt {
	return func(s *Server) {
		s.startupTimeout = d
	}
}

// WithHost sets the listen host for the embedded server.
func WithHost(host string) ServerOpt {
	return func(s *Server) {
		s.host = host
	}
}

// WithPort sets the listen port for the embedded server.
func WithPort(port int) ServerOpt {
	return func(s *Server) {
		s.port = port
	}
}

func NewServer(opts ...ServerOpt) (*Server, error) {
	s := &Server{
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
	}

	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true, // Let the application handle signals
	})
	if err != nil {
		return nil, err
	}
	s.ns = ns

	return s, nil
}

// Start runs the embedded server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.ns.Start()

	if !s.ns.ReadyForConnections(s.startupTimeout) {
		return fmt.Errorf("overlay bus not ready for connections")
	}

	conn, err := nats.Connect(s.clientURL())
	if err != nil {
		return fmt.Errorf("creating overlay client connection: %w", err)
	}
	s.conn = conn

	slog.InfoContext(ctx, "overlay bus listening", "addr", s.ns.Addr())

	<-ctx.Done()
	s.conn.Close()
	s.ns.Shutdown()
	s.ns.WaitForShutdown()

	return nil
}

// Subscribe registers a handler for a subject and returns an unsubscribe
// function.
func (s *Server) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	if s.conn == nil {
		return nil, fmt.Errorf("overlay bus not started")
	}
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { sub.Unsubscribe() }, nil
}

// Publish sends a message to the given subject.
func (s *Server) Publish(subject string, data []byte) error {
	if s.conn == nil {
		return fmt.Errorf("overlay bus not started")
	}
	return s.conn.Publish(subject, data)
}

func (s *Server) clientURL() string {
	return fmt.Sprintf("nats://%s:%d", s.host, s.port)
}
