package profile

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// --- Mock store ---

type mockStore struct {
	mu   sync.Mutex
	data map[string]string

	prefixCalls int
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) PutBlob(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) GetBlobsByPrefix(prefix string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixCalls++
	cp := make(map[string]string)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			cp[k] = v
		}
	}
	return cp, nil
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Tests ---

func TestGetProfile_Empty(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	p, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Identity.Name != "" {
		t.Errorf("expected empty name, got %q", p.Identity.Name)
	}
	if len(p.Health.Conditions) != 0 {
		t.Errorf("expected no conditions, got %v", p.Health.Conditions)
	}
}

func TestSetAndGetField(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	if err := mgr.SetField("identity.name", "Alex"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if err := mgr.SetField("identity.age", 34); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if err := mgr.SetField("health.conditions", []string{"asthma"}); err != nil {
		t.Fatalf("SetField error: %v", err)
	}

	p, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if p.Identity.Name != "Alex" {
		t.Errorf("name = %q, want Alex", p.Identity.Name)
	}
	if p.Identity.Age != 34 {
		t.Errorf("age = %d, want 34", p.Identity.Age)
	}
	if len(p.Health.Conditions) != 1 || p.Health.Conditions[0] != "asthma" {
		t.Errorf("conditions = %v", p.Health.Conditions)
	}
}

func TestSetField_CLIStringForms(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	// The CLI passes everything as strings.
	if err := mgr.SetField("identity.age", "42"); err != nil {
		t.Fatalf("SetField age: %v", err)
	}
	if err := mgr.SetField("health.medications", "albuterol, fluticasone"); err != nil {
		t.Fatalf("SetField medications: %v", err)
	}
	if err := mgr.SetField("reminders.daily_check_in", "true"); err != nil {
		t.Fatalf("SetField reminder: %v", err)
	}

	p, _ := mgr.GetProfile()
	if p.Identity.Age != 42 {
		t.Errorf("age = %d", p.Identity.Age)
	}
	if len(p.Health.Medications) != 2 || p.Health.Medications[1] != "fluticasone" {
		t.Errorf("medications = %v", p.Health.Medications)
	}
	if !p.Reminders.DailyCheckIn {
		t.Error("daily check-in not set")
	}
}

func TestSetField_Rejections(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	if err := mgr.SetField("no.such.field", "x"); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := mgr.SetField("identity.age", "not-a-number"); err == nil {
		t.Error("expected error for bad integer")
	}
	if err := mgr.SetField("reminders.daily_check_in", "perhaps"); err == nil {
		t.Error("expected error for bad bool")
	}
}

func TestSummary_Empty(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	summary, err := mgr.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary == "" {
		t.Error("expected non-empty summary for empty profile")
	}
}

func TestSummary_Full(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	mgr.SetField("identity.name", "Alex")
	mgr.SetField("identity.age", 34)
	mgr.SetField("health.smoker", "former")
	mgr.SetField("health.conditions", []string{"asthma"})
	mgr.SetField("reminders.daily_check_in", true)
	mgr.SetField("reminders.check_in_time", "08:30")

	summary, err := mgr.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	for _, want := range []string{"Alex, 34", "former", "asthma", "08:30"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
}

func TestMalformedStoredFieldIsSkipped(t *testing.T) {
	store := newMockStore()
	store.data["profile.health.conditions"] = "{not json"
	store.data["profile.identity.name"] = "Alex"
	mgr := NewManager(store)

	p, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Identity.Name != "Alex" {
		t.Errorf("name = %q", p.Identity.Name)
	}
	if p.Health.Conditions != nil {
		t.Errorf("conditions = %v, want nil", p.Health.Conditions)
	}
}

func TestCacheTTL(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	mgr := NewManagerWithClock(store, clock, 60*time.Second)

	mgr.SetField("identity.name", "Alex")

	mgr.GetProfile()
	mgr.GetProfile()

	store.mu.Lock()
	calls := store.prefixCalls
	store.mu.Unlock()

	if calls != 1 {
		t.Errorf("expected 1 store call (cache hit on second), got %d", calls)
	}
}

func TestCacheInvalidation(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	ttl := 60 * time.Second
	mgr := NewManagerWithClock(store, clock, ttl)

	mgr.SetField("identity.name", "Alex")

	mgr.GetProfile()

	// Advance past TTL
	clock.Advance(ttl + time.Second)

	mgr.GetProfile()

	store.mu.Lock()
	calls := store.prefixCalls
	store.mu.Unlock()

	if calls != 2 {
		t.Errorf("expected 2 store calls (cache expired), got %d", calls)
	}
}

func TestSetFieldInvalidatesCache(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	mgr.SetField("identity.name", "Alex")
	mgr.GetProfile()
	mgr.SetField("identity.name", "Sam")

	p, _ := mgr.GetProfile()
	if p.Identity.Name != "Sam" {
		t.Errorf("name = %q, want Sam after update", p.Identity.Name)
	}
}

func TestFieldKeysSortedAndComplete(t *testing.T) {
	keys := FieldKeys()
	if len(keys) != len(fieldSpecs) {
		t.Fatalf("FieldKeys returned %d keys, want %d", len(keys), len(fieldSpecs))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not sorted: %q before %q", keys[i-1], keys[i])
		}
	}
}
