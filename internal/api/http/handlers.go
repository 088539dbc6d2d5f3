// Package http exposes the operational surface: health, registry
// introspection, stored ratings, and an authenticated single-beatmap
// recalculation trigger.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/osukit/difficulty-processor/internal/auth"
	"github.com/osukit/difficulty-processor/internal/processor"
	"github.com/osukit/difficulty-processor/internal/rulesets"
	"github.com/osukit/difficulty-processor/internal/store"
)

type Server struct {
	Store     *store.Store
	Processor *processor.Processor
	Registry  *rulesets.Registry
	Auth      *auth.Service
	Log       *slog.Logger
}

func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/rulesets", s.handleRulesets)
	r.Get("/beatmaps/{id}/difficulty", s.handleDifficulty)

	r.Post("/auth/login", auth.LoginHandler(s.Auth))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(s.Auth))
		pr.Post("/beatmaps/{id}/calculate", s.handleCalculate)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRulesets(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	var out []entry
	for _, rs := range s.Registry.All() {
		out = append(out, entry{ID: rs.ID(), Name: rs.Name()})
	}
	writeJSON(w, out)
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad beatmap id", http.StatusBadRequest)
		return
	}
	rows, err := s.Store.DifficultyRows(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad beatmap id", http.StatusBadRequest)
		return
	}

	var req struct {
		Mode string `json:"mode"` // "difficulty" | "legacy-score" | "all"
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}
	mode := processor.ModeAll
	switch req.Mode {
	case "", "all":
	case "difficulty":
		mode = processor.ModeDifficulty
	case "legacy-score":
		mode = processor.ModeLegacyScore
	default:
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}

	b, err := s.Store.Beatmap(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err := s.Processor.Process(r.Context(), b, mode); err != nil {
		s.Log.Error("calculate failed", "beatmap", id, "err", err)
		var perr *processor.ProcessError
		if errors.As(err, &perr) && errors.Is(perr.Err, processor.ErrNoPlayableContent) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	writeJSON(w, map[string]any{"beatmap_id": id, "mode": mode.String(), "status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
