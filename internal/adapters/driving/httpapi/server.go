// Package httpapi exposes an exchange over HTTP.
//
// The server accepts a JSON POST of domain.ExchangeRequest on /exchange,
// validates the records against the allowed types and answers with the
// domain.ExchangeResult produced by the wrapped exchanger.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// ExchangePath is the route of the exchange endpoint.
const ExchangePath = "/exchange"

// maxBodyBytes caps the size of an exchange request.
const maxBodyBytes = 16 << 20

// Options configures a Server.
type Options struct {
	// Types are the record types accepted from clients.
	Types []string

	// Token, when set, is required as a bearer token on every request.
	Token string
}

// Server serves an exchanger over HTTP.
type Server struct {
	exchanger driven.Exchanger
	opts      Options

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a server for exchanger.
func NewServer(exchanger driven.Exchanger, opts Options) *Server {
	return &Server{
		exchanger: exchanger,
		opts:      opts,
		errChan:   make(chan error, 1),
	}
}

// Handler returns the HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ExchangePath, s.handleExchange)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start listens on addr and serves in the background.
// Use port 0 to pick a free port; Addr reports the bound address.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the exchange endpoint URL.
func (s *Server) URL() string {
	return "http://" + s.Addr() + ExchangePath
}

// Errors receives a fatal serve error.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Records    json.RawMessage `json:"records"`
		Namespace  string          `json:"namespace"`
		SyncCursor string          `json:"syncCursor"`
	}
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: malformed request: %v", domain.ErrValidation, err))
		return
	}

	records, err := domain.ValidateUnsyncedRecords(req.Records, s.opts.Types)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.exchanger.Exchange(r.Context(), records, req.Namespace, req.SyncCursor)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrValidation) {
			status = http.StatusBadRequest
		}
		logger.Warn("exchange %q failed: %v", req.Namespace, err)
		writeError(w, status, err.Error())
		return
	}
	if result == nil {
		logger.Warn("exchange %q returned no result", req.Namespace)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%v: empty response", domain.ErrExchange))
		return
	}
	if result.Records == nil {
		result.Records = []domain.SyncedRecord{}
	}

	logger.Debug("exchange %q: received %d, returned %d", req.Namespace, len(records), len(result.Records))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.Token == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
