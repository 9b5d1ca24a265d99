package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/metrics"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/resolver"
	"github.com/ajitpratap0/erschema/internal/store"
)

// defaultMaxBodyBytes is used when Options.MaxBodyBytes is not set.
const defaultMaxBodyBytes = 1 << 20

// Options holds the tunables of a Server.
type Options struct {
	AuthToken    string // empty = no auth required
	MaxBodyBytes int64
	MaxRounds    int
}

// Server is an HTTP API server that exposes schema resolution and storage.
type Server struct {
	store     store.Store
	converter *converter.Converter
	advisor   advisor.Advisor
	logger    *slog.Logger
	opts      Options
}

// NewServer creates a new Server with the given dependencies.
func NewServer(st store.Store, conv *converter.Converter, adv advisor.Advisor, logger *slog.Logger, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 64
	}
	if adv == nil {
		adv = advisor.DefaultAdvisor{}
	}
	return &Server{
		store:     st,
		converter: conv,
		advisor:   adv,
		logger:    logger,
		opts:      opts,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /v1/resolve", s.auth(s.handleResolve))
	mux.HandleFunc("POST /v1/decisions", s.auth(s.handleDecision))
	mux.HandleFunc("POST /v1/schemas", s.auth(s.handleSaveSchema))
	mux.HandleFunc("GET /v1/schemas", s.auth(s.handleListSchemas))
	mux.HandleFunc("GET /v1/schemas/{id}", s.auth(s.handleGetSchema))
	mux.HandleFunc("DELETE /v1/schemas/{id}", s.auth(s.handleDeleteSchema))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))

	return s.requestID(mux)
}

// --- middleware ---

// requestID tags every request with an X-Request-ID, reusing the caller's when present.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}

// auth wraps a handler with Bearer token authentication when a token is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveRequest is the body accepted by POST /v1/resolve.
type resolveRequest struct {
	Document string `json:"document"`
	Auto     bool   `json:"auto"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Document == "" {
		s.writeError(w, http.StatusBadRequest, "document is required")
		return
	}

	var (
		res *converter.Result
		err error
	)
	if req.Auto {
		res, err = s.converter.Run(r.Context(), []byte(req.Document), s.advisor, s.opts.MaxRounds)
	} else {
		res, err = s.converter.Resolve([]byte(req.Document))
	}
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// decisionRequest is the body accepted by POST /v1/decisions.
type decisionRequest struct {
	Document string          `json:"document"`
	Decision models.Decision `json:"decision"`
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Document == "" {
		s.writeError(w, http.StatusBadRequest, "document is required")
		return
	}
	res, err := s.converter.Decide([]byte(req.Document), req.Decision)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// saveSchemaRequest is the body accepted by POST /v1/schemas.
type saveSchemaRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

func (s *Server) handleSaveSchema(w http.ResponseWriter, r *http.Request) {
	var req saveSchemaRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.Document == "" {
		s.writeError(w, http.StatusBadRequest, "name and document are required")
		return
	}

	res, err := s.converter.Resolve([]byte(req.Document))
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	if res.Status != resolver.StatusDone {
		// The caller has to answer the pending decision before the schema can be stored.
		s.writeJSON(w, http.StatusConflict, res)
		return
	}

	rec, err := models.NewSchemaRecord(uuid.NewString(), req.Name, res.Schema, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to encode schema", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to encode schema")
		return
	}
	if err := s.store.SaveSchema(r.Context(), rec, res.Schema); err != nil {
		s.logger.Error("failed to save schema", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save schema")
		return
	}
	metrics.Inc(metrics.SchemasSaved)
	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := s.store.ListSchemas(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list schemas", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list schemas")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"schemas": list})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	rec, err := s.store.GetSchema(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "schema not found")
			return
		}
		s.logger.Error("failed to get schema", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get schema")
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSchema(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.store.DeleteSchema(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "schema not found")
			return
		}
		s.logger.Error("failed to delete schema", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete schema")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// decode reads a size-limited JSON body into v. It writes a 400 and returns
// false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeResolveError maps resolution failures to 422 and everything else to 500.
func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	kind := models.ErrorKind(err)
	if kind == "" {
		if errors.Is(err, converter.ErrTooManyRounds) {
			kind = "too_many_rounds"
		} else {
			s.logger.Error("resolution failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "resolution failed")
			return
		}
	}
	s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
		"error": err.Error(),
		"kind":  kind,
		"node":  models.ErrorNode(err),
	})
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
