// Package api exposes the command entry point over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rustyeddy/tradejournal/command"
	"github.com/rustyeddy/tradejournal/pkg/logging"
	"github.com/rustyeddy/tradejournal/stats"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// maxBody caps command request bodies.
const maxBody = 4 << 10

// Server handles the REST API.
type Server struct {
	svc     *command.Service
	engine  *stats.Engine
	router  *mux.Router
	origins []string
	log     *zap.Logger
}

type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logging.OrNop(l) }
}

// NewServer creates a new API server. engine backs the health balance.
func NewServer(svc *command.Service, engine *stats.Engine, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		engine: engine,
		router: mux.NewRouter(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/commands", s.handleListCommands).Methods("GET")
	api.HandleFunc("/sessions/{session}/commands/{command}", s.handleCommand).Methods("POST")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in request ids and CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(s.requestID(s.router))
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("api_listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestID tags every response with an X-Request-ID and logs the request.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.log.Info("http_request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, command.Specs)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req CommandRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, string(command.MalformedArguments), err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, string(command.MalformedArguments), "invalid request body")
			return
		}
	}

	res, err := s.svc.Execute(r.Context(), vars["session"], vars["command"], req.Args)
	if err != nil {
		s.respondCommandError(w, err)
		return
	}
	respondJSON(w, res)
}

func (s *Server) respondCommandError(w http.ResponseWriter, err error) {
	var ce *command.Error
	if !errors.As(err, &ce) {
		s.log.Error("command_failed",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Internal", "storage failure")
		return
	}

	status := http.StatusUnprocessableEntity
	if ce.Kind == command.UnknownCommand {
		status = http.StatusNotFound
	}
	respondError(w, status, string(ce.Kind), ce.Message)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Balance(r.Context())
	if err != nil {
		s.log.Error("health_check_failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "Unavailable", "ledger unavailable")
		return
	}
	respondJSON(w, HealthResponse{Status: "ok", Balance: b.Amount})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
