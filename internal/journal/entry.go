package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryType discriminates which optional fields of an Entry are meaningful.
type EntryType string

const (
	TypeBreathAnalysis EntryType = "breath_analysis"
	TypeSymptoms       EntryType = "symptoms"
	TypeManual         EntryType = "manual"
)

// RiskStage is the coarse severity bucket attached to an entry.
type RiskStage string

const (
	StageLow    RiskStage = "low"
	StageMedium RiskStage = "medium"
	StageHigh   RiskStage = "high"
)

// Severity grades a symptom observation.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Entry is a single journal record. The JSON layout matches the persisted
// document exactly; nullable fields are pointers so a serialize/deserialize
// round trip is lossless.
type Entry struct {
	ID        string     `json:"id"`
	Date      time.Time  `json:"date"`
	Type      EntryType  `json:"type"`
	RiskLevel *string    `json:"riskLevel"`
	Condition *string    `json:"condition"`
	Stage     *RiskStage `json:"stage"`
	Symptoms  []string   `json:"symptoms"`
	Severity  *Severity  `json:"severity"`
	Triggers  string     `json:"triggers"`
	Notes     string     `json:"notes"`
}

// NewBreathAnalysis builds a read-only analysis entry. riskPercent is the
// numeric risk; it is stored as a percentage string (e.g. "65%").
func NewBreathAnalysis(date time.Time, condition string, riskPercent int, stage RiskStage, notes string) Entry {
	level := fmt.Sprintf("%d%%", riskPercent)
	return Entry{
		ID:        uuid.New().String(),
		Date:      date,
		Type:      TypeBreathAnalysis,
		RiskLevel: &level,
		Condition: &condition,
		Stage:     &stage,
		Notes:     notes,
	}
}

// NewSymptomEntry builds a symptom observation. The risk stage is derived
// from the number of reported symptoms: more than two means medium, else low.
func NewSymptomEntry(date time.Time, symptoms []string, severity Severity, triggers, notes string) Entry {
	stage := deriveSymptomStage(symptoms)
	return Entry{
		ID:       uuid.New().String(),
		Date:     date,
		Type:     TypeSymptoms,
		Stage:    &stage,
		Symptoms: symptoms,
		Severity: &severity,
		Triggers: triggers,
		Notes:    notes,
	}
}

// NewManualEntry builds a free-form note entry.
func NewManualEntry(date time.Time, triggers, notes string) Entry {
	return Entry{
		ID:       uuid.New().String(),
		Date:     date,
		Type:     TypeManual,
		Triggers: triggers,
		Notes:    notes,
	}
}

func deriveSymptomStage(symptoms []string) RiskStage {
	if len(symptoms) > 2 {
		return StageMedium
	}
	return StageLow
}

// Validate checks structural shape: required fields for the declared type,
// enum membership, and riskLevel format.
func (e Entry) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "must be set"}
	}
	if e.Stage != nil {
		switch *e.Stage {
		case StageLow, StageMedium, StageHigh:
		default:
			return &ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", *e.Stage)}
		}
	}
	if e.Severity != nil {
		switch *e.Severity {
		case SeverityMild, SeverityModerate, SeveritySevere:
		default:
			return &ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", *e.Severity)}
		}
	}

	switch e.Type {
	case TypeBreathAnalysis:
		if e.RiskLevel == nil {
			return &ValidationError{Field: "riskLevel", Reason: "required for breath_analysis entries"}
		}
		if _, ok := parseRiskLevel(*e.RiskLevel); !ok {
			return &ValidationError{Field: "riskLevel", Reason: fmt.Sprintf("%q is not a percentage", *e.RiskLevel)}
		}
		if e.Condition == nil || *e.Condition == "" {
			return &ValidationError{Field: "condition", Reason: "required for breath_analysis entries"}
		}
		if e.Stage == nil {
			return &ValidationError{Field: "stage", Reason: "required for breath_analysis entries"}
		}
	case TypeSymptoms:
		if len(e.Symptoms) == 0 {
			return &ValidationError{Field: "symptoms", Reason: "at least one symptom is required"}
		}
		if e.Severity == nil {
			return &ValidationError{Field: "severity", Reason: "required for symptoms entries"}
		}
	case TypeManual:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", e.Type)}
	}
	return nil
}

// parseRiskLevel extracts the numeric portion of a percentage string like "65%".
func parseRiskLevel(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// searchableText is the lowercase haystack used by free-text search:
// condition, notes, triggers, and symptom tags joined by spaces, with
// missing fields skipped.
func (e Entry) searchableText() string {
	parts := make([]string, 0, 3+len(e.Symptoms))
	if e.Condition != nil && *e.Condition != "" {
		parts = append(parts, *e.Condition)
	}
	if e.Notes != "" {
		parts = append(parts, e.Notes)
	}
	if e.Triggers != "" {
		parts = append(parts, e.Triggers)
	}
	parts = append(parts, e.Symptoms...)
	return strings.ToLower(strings.Join(parts, " "))
}

// clone returns a deep copy so callers cannot mutate stored state through
// shared slices.
func (e Entry) clone() Entry {
	cp := e
	if e.RiskLevel != nil {
		v := *e.RiskLevel
		cp.RiskLevel = &v
	}
	if e.Condition != nil {
		v := *e.Condition
		cp.Condition = &v
	}
	if e.Stage != nil {
		v := *e.Stage
		cp.Stage = &v
	}
	if e.Severity != nil {
		v := *e.Severity
		cp.Severity = &v
	}
	if e.Symptoms != nil {
		cp.Symptoms = make([]string, len(e.Symptoms))
		copy(cp.Symptoms, e.Symptoms)
	}
	return cp
}
