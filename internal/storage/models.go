package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Session is an authenticated login session. Tokens are opaque and expire
// after the configured TTL.
type Session struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Analysis lifecycle states.
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// Analysis is one breath-analysis request and its eventual result. The
// result payload is stored as JSON text.
type Analysis struct {
	ID              string
	Status          string
	Source          string // "recording", "upload", "cli", "mcp"
	DurationSeconds float64
	ResultJSON      string
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
