// Package server exposes the assistant over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/services"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

const shutdownTimeout = 5 * time.Second

// Server serves the assistant API
type Server struct {
	cfg         config.ServerConfig
	readTimeout time.Duration
	interpreter services.Interpreter
	inbox       services.InboxService
	sessions    *SessionStore
	logger      *zap.Logger
}

// Options carries the collaborators a Server needs
type Options struct {
	Config      config.ServerConfig
	ReadTimeout time.Duration
	Interpreter services.Interpreter
	Inbox       services.InboxService
	// NewSession builds the controller for a fresh chat session
	NewSession SessionFactory
	Logger     *zap.Logger
}

// New creates a Server
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	return &Server{
		cfg:         opts.Config,
		readTimeout: opts.ReadTimeout,
		interpreter: opts.Interpreter,
		inbox:       opts.Inbox,
		sessions:    NewSessionStore(opts.NewSession, defaultSessionTTL),
		logger:      logger,
	}
}

// Handler returns the routed API with request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/assistant/interpret", s.handleInterpret)
	mux.HandleFunc("GET /api/emails/latest", s.handleLatest)
	mux.HandleFunc("POST /api/emails/delete", s.handleDelete)
	mux.HandleFunc("POST /api/emails/reply", s.handleReply)
	mux.HandleFunc("POST /api/emails/refine", s.handleRefine)
	mux.HandleFunc("GET /api/assistant/chat", s.handleChatState)
	mux.HandleFunc("POST /api/assistant/chat", s.handleChatSubmit)
	mux.HandleFunc("POST /api/assistant/chat/select", s.handleChatSelect)
	mux.HandleFunc("POST /api/assistant/chat/reply", s.handleChatReply)
	mux.HandleFunc("POST /api/assistant/chat/refine", s.handleChatRefine)
	return s.recoverer(s.logRequests(mux))
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("API listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		s.logger.Info("API stopped")
		return err
	}
}

// ListenAndServe listens on the configured address
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
