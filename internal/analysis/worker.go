package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/breathemate/breathemate/internal/journal"
	"github.com/breathemate/breathemate/internal/storage"
)

// AnalysisStore abstracts the analysis queue operations.
type AnalysisStore interface {
	ClaimNextAnalysis() (*storage.Analysis, error)
	CompleteAnalysis(id, resultJSON string) error
	FailAnalysis(id, errMsg string) error
}

// EntryInserter adds the produced entry to the journal.
type EntryInserter interface {
	Insert(e journal.Entry) error
}

// Worker processes pending analyses from the SQLite queue.
type Worker struct {
	store    AnalysisStore
	entries  EntryInserter
	analyzer *Analyzer
	poll     time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 2s.
func NewWorker(store AnalysisStore, entries EntryInserter, analyzer *Analyzer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		store:    store,
		entries:  entries,
		analyzer: analyzer,
		poll:     pollInterval,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// Run polls for pending analyses until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single pending analysis.
// Returns true if one was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	a, err := w.store.ClaimNextAnalysis()
	if err != nil {
		return false, fmt.Errorf("claiming analysis: %w", err)
	}
	if a == nil {
		return false, nil
	}

	if err := w.process(a); err != nil {
		w.logger.Warn("analysis failed", "analysis_id", a.ID, "error", err)
		if failErr := w.store.FailAnalysis(a.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark analysis as failed", "analysis_id", a.ID, "error", failErr)
		}
		return true, nil
	}
	return true, nil
}

func (w *Worker) process(a *storage.Analysis) error {
	now := w.now().UTC()

	result, err := w.analyzer.Analyze(a.DurationSeconds, now)
	if err != nil {
		return err
	}

	entry, err := result.Entry(now)
	if err != nil {
		return fmt.Errorf("building journal entry: %w", err)
	}
	if err := w.entries.Insert(entry); err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}
	result.EntryID = entry.ID

	payload, err := MarshalResult(result)
	if err != nil {
		return err
	}
	if err := w.store.CompleteAnalysis(a.ID, payload); err != nil {
		return fmt.Errorf("completing analysis %s: %w", a.ID, err)
	}
	return nil
}
