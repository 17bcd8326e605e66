// Package server exposes the query surface over HTTP for presentation
// layers (chat bots, CLIs) to consume.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flat_watcher/internal/domain"
	"flat_watcher/internal/service"
)

type Server struct {
	queries   *service.QueryService
	refresher *service.RefreshService
	router    chi.Router
	logger    *slog.Logger
}

func New(queries *service.QueryService, refresher *service.RefreshService, logger *slog.Logger) *Server {
	s := &Server{
		queries:   queries,
		refresher: refresher,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/listings", s.handleListings)
		r.Get("/districts", s.handleDistricts)
		r.Get("/price-range", s.handlePriceRange)
		r.Get("/count", s.handleCount)
		r.Get("/status", s.handleStatus)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/prune", s.handlePrune)
	})

	s.router = r
}

// Handler returns the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// handleListings serves filtered listings. All filters are optional
// query parameters and are ANDed: min_price, max_price, district,
// keyword. Without any filter every stored listing is returned, most
// recently scraped first.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.Filter{
		MinPrice: intParam(q.Get("min_price")),
		MaxPrice: intParam(q.Get("max_price")),
		District: q.Get("district"),
		Keyword:  q.Get("keyword"),
	}

	listings, err := s.queries.Search(r.Context(), filter)
	if err != nil {
		s.serverError(w, "search listings", err)
		return
	}
	if listings == nil {
		listings = []domain.Listing{}
	}

	s.writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := s.queries.Districts(r.Context())
	if err != nil {
		s.serverError(w, "list districts", err)
		return
	}
	if districts == nil {
		districts = []string{}
	}

	s.writeJSON(w, http.StatusOK, districts)
}

func (s *Server) handlePriceRange(w http.ResponseWriter, r *http.Request) {
	minPrice, maxPrice, err := s.queries.PriceBounds(r.Context())
	if err != nil {
		s.serverError(w, "price bounds", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{
		"min": minPrice,
		"max": maxPrice,
	})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.queries.Count(r.Context())
	if err != nil {
		s.serverError(w, "count listings", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// handleStatus reports store size and the outcome of the most recent
// scrape run; last_run is null before the first refresh.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.queries.Count(r.Context())
	if err != nil {
		s.serverError(w, "count listings", err)
		return
	}

	lastRun, err := s.queries.LastRun(r.Context())
	if err != nil {
		s.serverError(w, "last parse run", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    count,
		"last_run": lastRun,
	})
}

// handleRefresh triggers a scrape run and reports its ParseRun. A
// failed scrape is a normal response with status "error", not an HTTP
// failure.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	run, err := s.refresher.Refresh(r.Context())
	if err != nil {
		s.serverError(w, "refresh", err)
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.refresher.Prune(r.Context())
	if err != nil {
		s.serverError(w, "prune", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, "error", err)
	http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
