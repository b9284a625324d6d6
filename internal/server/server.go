package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpalmerr/carestore/appointment"
	"github.com/jpalmerr/carestore/profile"
	"github.com/jpalmerr/carestore/training"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// maxBodySize caps request bodies for the write endpoints.
	maxBodySize = 64 << 10
)

// Stores groups the stores exposed by the [Server].
type Stores struct {
	Appointments *appointment.Store
	Profiles     *profile.Store
	Training     *training.Store
}

// State is the payload of GET /api/state and of every SSE event.
type State struct {
	Appointments []appointment.Appointment `json:"appointments"`
	Profiles     []profile.Profile         `json:"profiles"`
	Training     []training.Progress       `json:"training"`
}

// Server exposes the stores over HTTP for inspection and development.
//
// Routes:
//   - GET /api/state: All stores in one document
//   - GET /api/appointments, /api/profiles, /api/training: One store each
//   - GET /api/profiles/{id}: One profile (404 if unknown)
//   - POST /api/profiles/{id}/approve: Approve a caregiver profile
//   - POST /api/profiles/{id}/reject: Reject with {"reason": "..."}
//   - GET /api/sse: Server-Sent Events stream of [State] on every change
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	stores     Stores
	port       int
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// The server is not started until [Server.Start] is called.
func NewServer(stores Stores, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		stores: stores,
		port:   port,
		logger: logger,
	}
}

// Handler returns the route table. It is what [Server.Start] serves.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/appointments", s.handleAppointments)
	mux.HandleFunc("GET /api/profiles", s.handleProfiles)
	mux.HandleFunc("GET /api/profiles/{id}", s.handleProfile)
	mux.HandleFunc("POST /api/profiles/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/profiles/{id}/reject", s.handleReject)
	mux.HandleFunc("GET /api/training", s.handleTraining)
	mux.HandleFunc("GET /api/sse", s.handleSSE)

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

func (s *Server) state() State {
	return State{
		Appointments: s.stores.Appointments.All(),
		Profiles:     s.stores.Profiles.All(),
		Training:     s.stores.Training.All(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stores.Appointments.All())
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stores.Profiles.All())
}

func (s *Server) handleTraining(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stores.Training.All())
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.stores.Profiles.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.stores.Profiles.Approve(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("profile approved", "user_id", id)
	s.writeJSON(w, http.StatusOK, s.stores.Profiles.Status(id))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req rejectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.stores.Profiles.Reject(id, req.Reason); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("profile rejected", "user_id", id, "reason", req.Reason)
	s.writeJSON(w, http.StatusOK, s.stores.Profiles.Status(id))
}

// writeError maps domain validation errors to 400 and anything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, profile.ErrReasonRequired) || errors.Is(err, profile.ErrInvalidStatus) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error("request failed", "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams a full [State] document after every change.
//
// Changes are coalesced: the subscriber only marks the stream dirty, so a
// burst of mutations while a write is in flight produces one event. The
// handler uses write deadlines so a slow or disconnected client cannot pin
// the goroutine.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	changed := make(chan struct{}, 1)
	mark := func() {
		select {
		case changed <- struct{}{}:
		default:
			// an event is already pending
		}
	}
	for _, unsub := range []func(){
		s.stores.Appointments.Subscribe(mark),
		s.stores.Profiles.Subscribe(mark),
		s.stores.Training.Subscribe(mark),
	} {
		defer unsub()
	}

	send := func() error {
		data, err := json.Marshal(s.state())
		if err != nil {
			s.logger.Error("failed to encode sse state", "error", err)
			return nil
		}
		return writeAndFlush(data)
	}

	// initial state
	if err := send(); err != nil {
		return
	}

	for {
		select {
		case <-changed:
			if err := send(); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
