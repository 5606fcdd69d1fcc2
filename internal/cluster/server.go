package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Server is an in-process NATS server for single-host deployments and tests.
type Server struct {
	ns *server.Server

	startupTimeout time.Duration
	host           string
	port           int
}

// ServerOpt configures a Server.
type ServerOpt func(*Server)

// WithHost sets the listen host.
func WithHost(host string) ServerOpt {
	return func(s *Server) { s.host = host }
}

// WithPort sets the listen port. -1 picks a random free port.
func WithPort(port int) ServerOpt {
	return func(s *Server) { s.port = port }
}

// WithStartTimeout bounds how long Start waits for the server to accept clients.
func WithStartTimeout(d time.Duration) ServerOpt {
	return func(s *Server) { s.startupTimeout = d }
}

// NewServer creates an embedded NATS server. It does not listen until Start.
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
		NoSigs: true,
		NoLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	s.ns = ns
	return s, nil
}

// Start launches the server and waits until it accepts connections.
func (s *Server) Start() error {
	go s.ns.Start()
	if !s.ns.ReadyForConnections(s.startupTimeout) {
		return fmt.Errorf("nats server not ready for connections")
	}
	return nil
}

// Run starts the server and keeps it up until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "nats server listening", "addr", s.ns.Addr())

	<-ctx.Done()
	s.Shutdown()
	return nil
}

// Shutdown stops the server and waits for it to exit.
func (s *Server) Shutdown() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}

// ClientURL is the address Bus clients connect to.
func (s *Server) ClientURL() string {
	return s.ns.ClientURL()
}
