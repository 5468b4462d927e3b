package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/breathemate/breathemate/internal/analysis"
	"github.com/breathemate/breathemate/internal/auth"
	"github.com/breathemate/breathemate/internal/coach"
	"github.com/breathemate/breathemate/internal/journal"
	"github.com/breathemate/breathemate/internal/profile"
	"github.com/breathemate/breathemate/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AppDeps bundles everything the HTTP handlers need.
type AppDeps struct {
	Store   *storage.Store
	Journal *journal.Store
	Profile *profile.Manager
	Auth    *auth.Authenticator
}

// NewAppHandler builds the REST API router. Everything except /health and
// /auth/login requires a valid session token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/auth/login", handleLogin(deps))

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Auth))

		r.Post("/auth/logout", handleLogout(deps))

		r.Get("/journal/entries", handleListEntries(deps))
		r.Post("/journal/entries", handleCreateEntry(deps))
		r.Get("/journal/entries/{id}", handleGetEntry(deps))
		r.Patch("/journal/entries/{id}", handlePatchEntry(deps))
		r.Get("/journal/stats", handleStats(deps))
		r.Get("/journal/export", handleExport(deps))

		r.Post("/analyze", handleStartAnalysis(deps))
		r.Get("/analyze/{id}", handleGetAnalysis(deps))
		r.Get("/analyses", handleListAnalyses(deps))

		r.Get("/coach/recommendation", handleRecommendation(deps))
		r.Get("/coach/exercises", handleExercises(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Patch("/profile", handlePatchProfile(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func handleRecommendation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := coach.Recommend(nowUTC(), deps.Journal.All())
		writeJSON(w, rec)
	}
}

func handleExercises(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, coach.Exercises())
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profile.GetProfile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, p)
	}
}

func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		for key, value := range fields {
			if err := deps.Profile.SetField(key, value); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to set field %q: %v", key, err)
				return
			}
		}

		writeJSON(w, map[string]string{"status": "updated"})
	}
}

// startAnalysisRequest is the POST /analyze payload.
type startAnalysisRequest struct {
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"durationSeconds"`
}

func handleStartAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req startAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.DurationSeconds <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "durationSeconds must be positive")
			return
		}
		if req.Source == "" {
			req.Source = "recording"
		}

		a := storage.Analysis{
			ID:              newID(),
			Status:          storage.AnalysisPending,
			Source:          req.Source,
			DurationSeconds: req.DurationSeconds,
		}
		if err := deps.Store.CreateAnalysis(a); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue analysis: %v", err)
			return
		}

		writeJSON(w, map[string]string{
			"id":     a.ID,
			"status": storage.AnalysisPending,
		})
	}
}

// analysisResponse is the wire form of one analysis record.
type analysisResponse struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	Source          string           `json:"source"`
	DurationSeconds float64          `json:"durationSeconds"`
	Result          *analysis.Result `json:"result,omitempty"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       string           `json:"createdAt"`
}

func toAnalysisResponse(a storage.Analysis) analysisResponse {
	resp := analysisResponse{
		ID:              a.ID,
		Status:          a.Status,
		Source:          a.Source,
		DurationSeconds: a.DurationSeconds,
		Error:           a.Error,
		CreatedAt:       a.CreatedAt.Format(timeLayout),
	}
	if a.ResultJSON != "" {
		if result, err := analysis.UnmarshalResult(a.ResultJSON); err == nil {
			resp.Result = &result
		}
	}
	return resp
}

func handleGetAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		a, err := deps.Store.GetAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get analysis: %v", err)
			return
		}

		writeJSON(w, toAnalysisResponse(a))
	}
}

func handleListAnalyses(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		analyses, err := deps.Store.ListAnalyses(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list analyses: %v", err)
			return
		}

		out := make([]analysisResponse, len(analyses))
		for i, a := range analyses {
			out[i] = toAnalysisResponse(a)
		}
		writeJSON(w, out)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
