package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/breathemate/breathemate/internal/journal"
)

// createEntryRequest is the POST /journal/entries payload. Breath-analysis
// entries cannot be created here; they only come from the analysis queue.
type createEntryRequest struct {
	Type     string   `json:"type"`
	Date     string   `json:"date"`
	Symptoms []string `json:"symptoms"`
	Severity string   `json:"severity"`
	Triggers string   `json:"triggers"`
	Notes    string   `json:"notes"`
}

// patchEntryRequest is the PATCH /journal/entries/{id} payload. Absent
// fields are left untouched.
type patchEntryRequest struct {
	Date     *string   `json:"date"`
	Symptoms *[]string `json:"symptoms"`
	Severity *string   `json:"severity"`
	Triggers *string   `json:"triggers"`
	Notes    *string   `json:"notes"`
}

func handleListEntries(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := journal.Query{
			Risk:   queryOrAll(r, "risk"),
			Range:  queryOrAll(r, "range"),
			Type:   queryOrAll(r, "type"),
			Search: r.URL.Query().Get("search"),
		}

		entries := journal.Apply(deps.Journal.All(), q, nowUTC())
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, entries)
	}
}

func handleCreateEntry(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req createEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		date := nowUTC()
		if req.Date != "" {
			parsed, err := time.Parse(timeLayout, req.Date)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid date: %v", err)
				return
			}
			date = parsed
		}

		var entry journal.Entry
		switch journal.EntryType(req.Type) {
		case journal.TypeSymptoms:
			entry = journal.NewSymptomEntry(date, req.Symptoms, journal.Severity(req.Severity), req.Triggers, req.Notes)
		case journal.TypeManual:
			entry = journal.NewManualEntry(date, req.Triggers, req.Notes)
		case journal.TypeBreathAnalysis:
			httpError(w, http.StatusConflict, "invalid_operation", "breath_analysis entries are created by the analyzer")
			return
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown entry type %q", req.Type)
			return
		}

		if err := deps.Journal.Insert(entry); err != nil {
			var verr *journal.ValidationError
			if errors.As(err, &verr) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", verr)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save entry: %v", err)
			return
		}

		writeJSON(w, entry)
	}
}

func handleGetEntry(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		entry, err := deps.Journal.Get(id)
		if errors.Is(err, journal.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get entry: %v", err)
			return
		}

		writeJSON(w, entry)
	}
}

func handlePatchEntry(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req patchEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		patch := journal.Patch{
			Symptoms: req.Symptoms,
			Triggers: req.Triggers,
			Notes:    req.Notes,
		}
		if req.Date != nil {
			parsed, err := time.Parse(timeLayout, *req.Date)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid date: %v", err)
				return
			}
			patch.Date = &parsed
		}
		if req.Severity != nil {
			sev := journal.Severity(*req.Severity)
			patch.Severity = &sev
		}

		entry, err := deps.Journal.Update(id, patch)
		switch {
		case errors.Is(err, journal.ErrNotFound):
			httpError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		case errors.Is(err, journal.ErrReadOnly):
			httpError(w, http.StatusConflict, "invalid_operation", "breath_analysis entries cannot be edited")
			return
		case err != nil:
			var verr *journal.ValidationError
			if errors.As(err, &verr) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", verr)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update entry: %v", err)
			return
		}

		writeJSON(w, entry)
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, journal.Compute(deps.Journal.All(), nowUTC()))
	}
}

func handleExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := deps.Journal.Export()
		w.Header().Set("Content-Disposition", "attachment; filename=breathemate-journal.json")
		writeJSON(w, doc)
	}
}

func queryOrAll(r *http.Request, key string) string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return journal.FilterAll
	}
	return v
}
