// Package server exposes the recommendation engine over a small JSON
// API for the intake tooling.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/pipeline"
	"github.com/sells-group/referral-cli/internal/scorer"
	"github.com/sells-group/referral-cli/internal/status"
)

// RecommendRequest is the JSON body of POST /api/recommend.
type RecommendRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	MaxRadiusMiles *float64 `json:"max_radius_miles,omitempty"`
	MinReferrals   *int     `json:"min_referrals,omitempty"`
	Specialties    []string `json:"specialties,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Cache   any             `json:"cache"`
	Sources status.Snapshot `json:"sources"`
}

// Deps wires the server to the application. Handlers stay thin: every
// operation is a function the app layer provides.
type Deps struct {
	Recommend func(ctx context.Context, req RecommendRequest) (*scorer.Result, error)
	Refresh   func(ctx context.Context) (*pipeline.Result, error)
	Status    func(ctx context.Context) StatusResponse
}

// Server is the HTTP API server.
type Server struct {
	deps Deps
	port int
}

// New creates a Server.
func New(deps Deps, port int) *Server {
	return &Server{deps: deps, port: port}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/recommend", s.handleRecommend)
	})
	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", s.port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Status(r.Context()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Refresh(r.Context())
	if err != nil {
		zap.L().Error("server: refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers":         len(res.Providers),
		"inbound_events":    res.InboundEvents,
		"outbound_events":   res.OutboundEvents,
		"preferred_entries": res.PreferredEntries,
		"warnings":          res.Warnings,
		"built_at":          res.BuiltAt,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(w, http.StatusBadRequest, "latitude and longitude must be provided together")
		return
	}

	res, err := s.deps.Recommend(r.Context(), req)
	if err != nil {
		zap.L().Error("server: recommend failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
