package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// keyPrefix namespaces profile fields inside the shared kv table.
const keyPrefix = "profile."

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	PutBlob(key, value string) error
	GetBlobsByPrefix(prefix string) (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached, structured access to the user profile stored in
// the kv table.
type Manager struct {
	store ProfileStore
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore) *Manager {
	return &Manager{
		store: store,
		clock: realClock{},
		ttl:   60 * time.Second,
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
	}
}

// GetProfile reads all profile keys from storage (or cache) and assembles
// a structured Profile. Returns a zero-value Profile on empty store.
func (m *Manager) GetProfile() (Profile, error) {
	// Fast path: read lock for cache hit.
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := deepCopyProfile(m.cached)
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	// Slow path: write lock for cache miss.
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return deepCopyProfile(m.cached), nil
	}

	raw, err := m.store.GetBlobsByPrefix(keyPrefix)
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile keys: %w", err)
	}

	keys := make(map[string]string, len(raw))
	for k, v := range raw {
		keys[strings.TrimPrefix(k, keyPrefix)] = v
	}

	p := buildProfile(keys)
	m.cached = &p
	m.cachedAt = m.clock.Now()
	return deepCopyProfile(&p), nil
}

// FieldKeys lists the settable profile field names.
func FieldKeys() []string {
	keys := make([]string, 0, len(fieldSpecs))
	for k := range fieldSpecs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetField persists one profile field and invalidates the cache. The key
// uses dot-notation without the storage prefix, e.g. "identity.name".
func (m *Manager) SetField(key string, value any) error {
	spec, ok := fieldSpecs[key]
	if !ok {
		return fmt.Errorf("unknown profile field: %q", key)
	}
	str, err := spec.encode(value)
	if err != nil {
		return fmt.Errorf("encoding profile field %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.PutBlob(keyPrefix+key, str); err != nil {
		return fmt.Errorf("setting profile field %q: %w", key, err)
	}

	m.cached = nil
	return nil
}

// Summary returns a compact one-line description of the profile for
// display and for the MCP profile resource.
func (m *Manager) Summary() (string, error) {
	p, err := m.GetProfile()
	if err != nil {
		return "", fmt.Errorf("getting profile for summary: %w", err)
	}
	return summarize(p), nil
}

func summarize(p Profile) string {
	var parts []string

	if p.Identity.Name != "" {
		id := p.Identity.Name
		if p.Identity.Age > 0 {
			id = fmt.Sprintf("%s, %d", id, p.Identity.Age)
		}
		parts = append(parts, id+".")
	}

	if p.Health.Smoker != "" {
		parts = append(parts, fmt.Sprintf("Smoker: %s.", p.Health.Smoker))
	}
	if len(p.Health.Conditions) > 0 {
		parts = append(parts, fmt.Sprintf("Known conditions: %s.", strings.Join(p.Health.Conditions, ", ")))
	}
	if len(p.Health.Medications) > 0 {
		parts = append(parts, fmt.Sprintf("Medications: %s.", strings.Join(p.Health.Medications, ", ")))
	}

	if p.Reminders.DailyCheckIn && p.Reminders.CheckInTime != "" {
		parts = append(parts, fmt.Sprintf("Daily check-in at %s.", p.Reminders.CheckInTime))
	}

	if len(parts) == 0 {
		return "Profile not yet configured."
	}
	return strings.Join(parts, " ")
}

func deepCopyProfile(p *Profile) Profile {
	if p == nil {
		return Profile{}
	}
	cp := *p

	if p.Health.Conditions != nil {
		cp.Health.Conditions = make([]string, len(p.Health.Conditions))
		copy(cp.Health.Conditions, p.Health.Conditions)
	}
	if p.Health.Medications != nil {
		cp.Health.Medications = make([]string, len(p.Health.Medications))
		copy(cp.Health.Medications, p.Health.Medications)
	}
	return cp
}

// fieldSpec describes how one profile field is encoded to and decoded from
// its kv value.
type fieldSpec struct {
	encode func(v any) (string, error)
	apply  func(p *Profile, raw string)
}

var fieldSpecs = map[string]fieldSpec{
	"identity.name": {
		encode: encodeString,
		apply:  func(p *Profile, raw string) { p.Identity.Name = raw },
	},
	"identity.age": {
		encode: encodeInt,
		apply:  func(p *Profile, raw string) { applyInt(raw, "identity.age", &p.Identity.Age) },
	},
	"health.height_cm": {
		encode: encodeInt,
		apply:  func(p *Profile, raw string) { applyInt(raw, "health.height_cm", &p.Health.HeightCm) },
	},
	"health.weight_kg": {
		encode: encodeInt,
		apply:  func(p *Profile, raw string) { applyInt(raw, "health.weight_kg", &p.Health.WeightKg) },
	},
	"health.smoker": {
		encode: encodeString,
		apply:  func(p *Profile, raw string) { p.Health.Smoker = raw },
	},
	"health.conditions": {
		encode: encodeStrings,
		apply:  func(p *Profile, raw string) { applyStrings(raw, "health.conditions", &p.Health.Conditions) },
	},
	"health.medications": {
		encode: encodeStrings,
		apply:  func(p *Profile, raw string) { applyStrings(raw, "health.medications", &p.Health.Medications) },
	},
	"reminders.daily_check_in": {
		encode: encodeBool,
		apply:  func(p *Profile, raw string) { applyBool(raw, "reminders.daily_check_in", &p.Reminders.DailyCheckIn) },
	},
	"reminders.check_in_time": {
		encode: encodeString,
		apply:  func(p *Profile, raw string) { p.Reminders.CheckInTime = raw },
	},
	"reminders.high_risk_alert": {
		encode: encodeBool,
		apply:  func(p *Profile, raw string) { applyBool(raw, "reminders.high_risk_alert", &p.Reminders.HighRiskAlert) },
	},
}

// buildProfile assembles a Profile from flat key-value pairs (prefix
// already stripped). Unknown keys are ignored.
func buildProfile(keys map[string]string) Profile {
	var p Profile
	for key, raw := range keys {
		spec, ok := fieldSpecs[key]
		if !ok {
			continue
		}
		spec.apply(&p, raw)
	}
	return p
}

func encodeString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func encodeInt(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case string:
		if _, err := strconv.Atoi(n); err != nil {
			return "", fmt.Errorf("expected integer, got %q", n)
		}
		return n, nil
	default:
		return "", fmt.Errorf("expected integer, got %T", v)
	}
}

func encodeBool(v any) (string, error) {
	switch b := v.(type) {
	case bool:
		return strconv.FormatBool(b), nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return "", fmt.Errorf("expected bool, got %q", b)
		}
		return strconv.FormatBool(parsed), nil
	default:
		return "", fmt.Errorf("expected bool, got %T", v)
	}
}

func encodeStrings(v any) (string, error) {
	switch list := v.(type) {
	case []string:
		b, err := json.Marshal(list)
		return string(b), err
	case string:
		// Comma-separated from the CLI.
		parts := strings.Split(list, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
		b, err := json.Marshal(out)
		return string(b), err
	default:
		return "", fmt.Errorf("expected string list, got %T", v)
	}
}

func applyInt(raw, key string, target *int) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("malformed profile field, skipping", "key", key, "error", err)
		return
	}
	*target = n
}

func applyBool(raw, key string, target *bool) {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("malformed profile field, skipping", "key", key, "error", err)
		return
	}
	*target = b
}

func applyStrings(raw, key string, target *[]string) {
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		slog.Warn("malformed profile field, skipping", "key", key, "error", err)
	}
}
