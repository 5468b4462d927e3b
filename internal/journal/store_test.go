package journal

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"
)

// memBlob is an in-memory Blob for tests; failPut simulates a storage-write
// failure.
type memBlob struct {
	data    map[string]string
	failPut bool
}

func newMemBlob() *memBlob {
	return &memBlob{data: make(map[string]string)}
}

func (b *memBlob) GetBlob(key string) (string, bool, error) {
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *memBlob) PutBlob(key, value string) error {
	if b.failPut {
		return errors.New("disk full")
	}
	b.data[key] = value
	return nil
}

func newTestStore(t *testing.T) (*Store, *memBlob) {
	t.Helper()
	blob := newMemBlob()
	s := NewStore(blob)
	s.now = func() time.Time { return time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC) }
	s.rng = rand.New(rand.NewSource(1))
	return s, blob
}

// loadedStore returns a store whose collection starts empty (no seeding), so
// tests control exactly what it contains.
func loadedStore(t *testing.T) (*Store, *memBlob) {
	t.Helper()
	s, blob := newTestStore(t)
	blob.data[BlobKey] = "[]"
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return s, blob
}

func manualAt(t *testing.T, date time.Time) Entry {
	t.Helper()
	return NewManualEntry(date, "", "test note")
}

func TestInsert_AppearsExactlyOnce(t *testing.T) {
	s, _ := loadedStore(t)

	e := NewSymptomEntry(
		time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC),
		[]string{"wheezing"},
		SeverityMild,
		"cold air",
		"after the morning run",
	)
	if err := s.Insert(e); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	all := s.All()
	found := 0
	for _, got := range all {
		if got.ID != e.ID {
			continue
		}
		found++
		if got.Type != TypeSymptoms {
			t.Errorf("Type = %q, want %q", got.Type, TypeSymptoms)
		}
		if got.Severity == nil || *got.Severity != SeverityMild {
			t.Errorf("Severity = %v, want mild", got.Severity)
		}
		if got.Stage == nil || *got.Stage != StageLow {
			t.Errorf("Stage = %v, want low (one symptom)", got.Stage)
		}
		if got.Notes != "after the morning run" {
			t.Errorf("Notes = %q", got.Notes)
		}
	}
	if found != 1 {
		t.Fatalf("entry %s appears %d times, want 1", e.ID, found)
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	s, _ := loadedStore(t)

	e := manualAt(t, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	if err := s.Insert(e); err != nil {
		t.Fatalf("first Insert() failed: %v", err)
	}

	dup := manualAt(t, time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))
	dup.ID = e.ID
	err := s.Insert(dup)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Insert(duplicate) error = %v, want ValidationError", err)
	}
	if got := len(s.All()); got != 1 {
		t.Errorf("collection has %d entries after failed insert, want 1", got)
	}
}

func TestInsert_MalformedShape(t *testing.T) {
	s, _ := loadedStore(t)

	bad := Entry{
		ID:   "no-risk-level",
		Date: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Type: TypeBreathAnalysis,
	}
	var verr *ValidationError
	if err := s.Insert(bad); !errors.As(err, &verr) {
		t.Fatalf("Insert(malformed) error = %v, want ValidationError", err)
	}
	if got := len(s.All()); got != 0 {
		t.Errorf("collection has %d entries, want 0", got)
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	s, _ := loadedStore(t)

	notes := "edited"
	_, err := s.Update("missing", Patch{Notes: &notes})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_BreathAnalysisIsReadOnly(t *testing.T) {
	s, _ := loadedStore(t)

	e := NewBreathAnalysis(
		time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		"Normal Breathing Pattern", 15, StageLow, "",
	)
	if err := s.Insert(e); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	notes := "edited"
	if _, err := s.Update(e.ID, Patch{Notes: &notes}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Update(breath_analysis) error = %v, want ErrReadOnly", err)
	}

	got, err := s.Get(e.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Notes != "" {
		t.Errorf("Notes = %q, want unchanged", got.Notes)
	}
}

func TestUpdate_RederivesSymptomStage(t *testing.T) {
	s, _ := loadedStore(t)

	e := NewSymptomEntry(
		time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		[]string{"coughing"},
		SeverityModerate, "", "",
	)
	if err := s.Insert(e); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	more := []string{"coughing", "wheezing", "fatigue"}
	updated, err := s.Update(e.ID, Patch{Symptoms: &more})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Stage == nil || *updated.Stage != StageMedium {
		t.Errorf("Stage = %v, want medium (three symptoms)", updated.Stage)
	}
}

func TestMutations_KeepDescendingDateOrder(t *testing.T) {
	s, _ := loadedStore(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for _, offset := range []int{2, 0, 4, 1, 3} {
		if err := s.Insert(manualAt(t, base.AddDate(0, 0, offset))); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	assertDescending := func() {
		t.Helper()
		all := s.All()
		for i := 1; i < len(all); i++ {
			if all[i].Date.After(all[i-1].Date) {
				t.Fatalf("entries out of order at %d: %v before %v", i, all[i-1].Date, all[i].Date)
			}
		}
	}
	assertDescending()

	// Move the oldest entry to the front via an update.
	all := s.All()
	oldest := all[len(all)-1]
	newDate := base.AddDate(0, 0, 10)
	if _, err := s.Update(oldest.ID, Patch{Date: &newDate}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	assertDescending()

	if got := s.All()[0].ID; got != oldest.ID {
		t.Errorf("front entry = %s, want %s after date change", got, oldest.ID)
	}
}

func TestInsert_PersistFailureRollsBack(t *testing.T) {
	s, blob := loadedStore(t)

	blob.failPut = true
	err := s.Insert(manualAt(t, time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)))

	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("Insert() error = %v, want StorageError", err)
	}
	if got := len(s.All()); got != 0 {
		t.Errorf("collection has %d entries after failed persist, want 0", got)
	}

	// The store stays usable once the backend recovers.
	blob.failPut = false
	if err := s.Insert(manualAt(t, time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Insert() after recovery failed: %v", err)
	}
}

func TestLoad_SeedsOnFirstRun(t *testing.T) {
	s, blob := newTestStore(t)

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 8 {
		t.Fatalf("seeded %d entries, want 8", len(entries))
	}

	analyses, symptoms := 0, 0
	for _, e := range entries {
		switch e.Type {
		case TypeBreathAnalysis:
			analyses++
			if e.RiskLevel == nil || e.Condition == nil || e.Stage == nil {
				t.Errorf("seeded analysis entry %s missing required fields", e.ID)
			}
		case TypeSymptoms:
			symptoms++
			if n := len(e.Symptoms); n < 1 || n > 3 {
				t.Errorf("seeded symptom entry has %d symptoms, want 1..3", n)
			}
		default:
			t.Errorf("unexpected seeded type %q", e.Type)
		}
		if err := e.Validate(); err != nil {
			t.Errorf("seeded entry %s invalid: %v", e.ID, err)
		}
	}
	if analyses != 5 || symptoms != 3 {
		t.Errorf("seed mix = %d analyses / %d symptoms, want 5/3", analyses, symptoms)
	}

	if _, ok := blob.data[BlobKey]; !ok {
		t.Error("seed set was not persisted")
	}
}

func TestRoundTrip_AfterRestart(t *testing.T) {
	s, blob := loadedStore(t)

	sym := NewSymptomEntry(
		time.Date(2026, 8, 25, 7, 30, 0, 0, time.UTC),
		[]string{"wheezing", "chest_tightness", "fatigue"},
		SeveritySevere,
		"Pollen",
		"bad night",
	)
	if err := s.Insert(sym); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := s.Insert(NewBreathAnalysis(
		time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		"Wheezing Patterns Detected", 78, StageHigh, "Automated analysis from BreatheMate",
	)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	notes := "slept better after medication"
	if _, err := s.Update(sym.ID, Patch{Notes: &notes}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	before := s.All()

	// Simulated process restart: a fresh store over the same blob.
	restarted := NewStore(blob)
	after, err := restarted.Load()
	if err != nil {
		t.Fatalf("Load() after restart failed: %v", err)
	}

	want, _ := json.Marshal(before)
	got, _ := json.Marshal(after)
	if string(want) != string(got) {
		t.Errorf("collection changed across restart:\n before: %s\n after:  %s", want, got)
	}
}

func TestExport_DocumentShape(t *testing.T) {
	s, _ := loadedStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Insert(manualAt(t, time.Date(2026, 8, 20+i, 12, 0, 0, 0, time.UTC))); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	doc := s.Export()
	if doc.TotalEntries != 3 || len(doc.Entries) != 3 {
		t.Errorf("export has %d/%d entries, want 3/3", doc.TotalEntries, len(doc.Entries))
	}
	if doc.ExportDate.IsZero() {
		t.Error("export date not set")
	}
}

func TestSeed_SymptomStagesFollowHeuristic(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
		for _, e := range seedEntries(now, rng) {
			if e.Type != TypeSymptoms {
				continue
			}
			want := StageLow
			if len(e.Symptoms) > 2 {
				want = StageMedium
			}
			if e.Stage == nil || *e.Stage != want {
				t.Fatalf("seed %d: %d symptoms with stage %v, want %s",
					seed, len(e.Symptoms), e.Stage, want)
			}
		}
	}
}

func TestEntry_JSONFieldNames(t *testing.T) {
	e := NewBreathAnalysis(
		time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		"Stress-Related Breathing", 45, StageMedium, "",
	)
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	for _, key := range []string{"id", "date", "type", "riskLevel", "condition", "stage", "symptoms", "severity", "triggers", "notes"} {
		if _, ok := m[key]; !ok {
			t.Errorf("marshalled entry missing key %q: %s", key, data)
		}
	}
	if m["riskLevel"] != "45%" {
		t.Errorf("riskLevel = %v, want 45%%", m["riskLevel"])
	}
	if m["severity"] != nil {
		t.Errorf("severity = %v, want null for analysis entries", m["severity"])
	}
}
