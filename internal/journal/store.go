package journal

import (
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// BlobKey is the well-known key the journal collection is persisted under.
const BlobKey = "breathemate_journal"

// Blob is the durable key-value store the journal persists into.
// Implemented by storage.Store.
type Blob interface {
	GetBlob(key string) (value string, ok bool, err error)
	PutBlob(key, value string) error
}

// Store owns the in-memory journal collection. All mutation funnels through
// Insert and Update so uniqueness and sort order are enforced in one place.
// Every successful mutation writes the whole collection back to the blob
// store; a failed write rolls the mutation back and surfaces a StorageError.
type Store struct {
	mu      sync.Mutex
	blob    Blob
	entries []Entry
	loaded  bool

	now func() time.Time
	rng *rand.Rand
}

// NewStore creates a Store backed by blob. Call Load before reading.
func NewStore(blob Blob) *Store {
	return &Store{
		blob: blob,
		now:  time.Now,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Load reads the persisted collection, seeding a synthetic demo set on first
// run. The result is sorted descending by date. Load is idempotent: once the
// collection is in memory, subsequent calls return the current snapshot.
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.snapshot(), nil
	}

	raw, ok, err := s.blob.GetBlob(BlobKey)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	if ok {
		var entries []Entry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, &StorageError{Op: "decode", Err: err}
		}
		s.entries = entries
	} else {
		s.entries = seedEntries(s.now(), s.rng)
		if err := s.persist(s.entries); err != nil {
			s.entries = nil
			return nil, err
		}
	}

	sortByDateDesc(s.entries)
	s.loaded = true
	return s.snapshot(), nil
}

// All returns a read-only snapshot of the collection, newest first.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e.clone(), nil
		}
	}
	return Entry{}, ErrNotFound
}

// Insert validates e, prepends it, re-sorts, and persists. A duplicate id or
// malformed shape is a ValidationError and leaves the collection unchanged.
func (s *Store) Insert(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return &ValidationError{Field: "id", Reason: "duplicate entry id " + e.ID}
		}
	}

	candidate := make([]Entry, 0, len(s.entries)+1)
	candidate = append(candidate, e.clone())
	candidate = append(candidate, s.entries...)
	sortByDateDesc(candidate)

	if err := s.persist(candidate); err != nil {
		return err
	}
	s.entries = candidate
	return nil
}

// Patch carries the mutable fields of an update. Nil fields are left
// untouched; the entry type can never change.
type Patch struct {
	Date     *time.Time
	Symptoms *[]string
	Severity *Severity
	Triggers *string
	Notes    *string
}

// Update applies patch to the entry with the given id and persists the
// collection. breath_analysis entries are read-only; updating one fails with
// ErrReadOnly. For symptoms entries the risk stage is re-derived from the
// patched symptom set.
func (s *Store) Update(id string, patch Patch) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Entry{}, ErrNotFound
	}
	if s.entries[idx].Type == TypeBreathAnalysis {
		return Entry{}, ErrReadOnly
	}

	updated := s.entries[idx].clone()
	if patch.Date != nil {
		updated.Date = *patch.Date
	}
	if patch.Symptoms != nil {
		updated.Symptoms = append([]string(nil), (*patch.Symptoms)...)
	}
	if patch.Severity != nil {
		updated.Severity = patch.Severity
	}
	if patch.Triggers != nil {
		updated.Triggers = *patch.Triggers
	}
	if patch.Notes != nil {
		updated.Notes = *patch.Notes
	}
	if updated.Type == TypeSymptoms {
		stage := deriveSymptomStage(updated.Symptoms)
		updated.Stage = &stage
	}
	if err := updated.Validate(); err != nil {
		return Entry{}, err
	}

	candidate := make([]Entry, len(s.entries))
	copy(candidate, s.entries)
	candidate[idx] = updated
	sortByDateDesc(candidate)

	if err := s.persist(candidate); err != nil {
		return Entry{}, err
	}
	s.entries = candidate
	return updated.clone(), nil
}

// Export assembles the downloadable journal document: every entry plus an
// export timestamp. Pure read, no side effects.
func (s *Store) Export() ExportDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ExportDocument{
		ExportDate:   s.now(),
		TotalEntries: len(s.entries),
		Entries:      s.snapshot(),
	}
}

// ExportDocument mirrors the JSON document the journal export produces.
type ExportDocument struct {
	ExportDate   time.Time `json:"exportDate"`
	TotalEntries int       `json:"totalEntries"`
	Entries      []Entry   `json:"entries"`
}

// persist writes candidate as a single JSON blob. Callers only commit the
// in-memory swap after persist succeeds.
func (s *Store) persist(candidate []Entry) error {
	data, err := json.Marshal(candidate)
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if err := s.blob.PutBlob(BlobKey, string(data)); err != nil {
		return &StorageError{Op: "persist", Err: err}
	}
	return nil
}

func (s *Store) snapshot() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// sortByDateDesc orders entries newest first; ties keep their relative order.
func sortByDateDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}
