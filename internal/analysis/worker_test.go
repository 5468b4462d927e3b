package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/breathemate/breathemate/internal/journal"
	"github.com/breathemate/breathemate/internal/storage"
)

type capturingInserter struct {
	entries []journal.Entry
	err     error
}

func (c *capturingInserter) Insert(e journal.Entry) error {
	if c.err != nil {
		return c.err
	}
	c.entries = append(c.entries, e)
	return nil
}

func newWorkerFixture(t *testing.T) (*Worker, *storage.Store, *capturingInserter) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ins := &capturingInserter{}
	w := NewWorker(s, ins, NewAnalyzer(1), time.Millisecond)
	w.now = func() time.Time { return time.Date(2026, 8, 27, 9, 30, 0, 0, time.UTC) }
	return w, s, ins
}

func TestRunOnce_EmptyQueue(t *testing.T) {
	w, _, _ := newWorkerFixture(t)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done {
		t.Error("RunOnce reported work on an empty queue")
	}
}

func TestRunOnce_CompletesAnalysisAndRecordsEntry(t *testing.T) {
	w, s, ins := newWorkerFixture(t)

	if err := s.CreateAnalysis(storage.Analysis{ID: "a-1", Source: "cli", DurationSeconds: 30}); err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce found no work")
	}

	got, err := s.GetAnalysis("a-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.Status != storage.AnalysisCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}

	if len(ins.entries) != 1 {
		t.Fatalf("recorded %d journal entries, want 1", len(ins.entries))
	}
	entry := ins.entries[0]

	result, err := UnmarshalResult(got.ResultJSON)
	if err != nil {
		t.Fatalf("UnmarshalResult: %v", err)
	}
	if result.EntryID != entry.ID {
		t.Errorf("result entryId = %q, entry id = %q", result.EntryID, entry.ID)
	}
	if entry.Condition == nil || *entry.Condition != result.Condition {
		t.Errorf("entry condition = %v, result condition = %q", entry.Condition, result.Condition)
	}
}

func TestRunOnce_ShortRecordingFails(t *testing.T) {
	w, s, ins := newWorkerFixture(t)

	if err := s.CreateAnalysis(storage.Analysis{ID: "a-short", Source: "upload", DurationSeconds: 0.2}); err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce found no work")
	}

	got, _ := s.GetAnalysis("a-short")
	if got.Status != storage.AnalysisFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failed analysis has no error message")
	}
	if len(ins.entries) != 0 {
		t.Errorf("short recording produced %d entries", len(ins.entries))
	}
}

func TestRunOnce_JournalFailureMarksAnalysisFailed(t *testing.T) {
	w, s, ins := newWorkerFixture(t)
	ins.err = errors.New("journal unavailable")

	if err := s.CreateAnalysis(storage.Analysis{ID: "a-2", Source: "mcp", DurationSeconds: 20}); err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, _ := s.GetAnalysis("a-2")
	if got.Status != storage.AnalysisFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	w, _, _ := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
