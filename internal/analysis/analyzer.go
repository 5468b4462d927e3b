package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/breathemate/breathemate/internal/journal"
)

// AnalysisNotes is attached to every journal entry the analyzer produces.
const AnalysisNotes = "Automated analysis from BreatheMate"

// conditionProfile pairs a detectable breathing condition with its risk
// percentage and stage.
type conditionProfile struct {
	condition string
	risk      int
	stage     journal.RiskStage
}

var conditionProfiles = []conditionProfile{
	{"Normal Breathing Pattern", 15, journal.StageLow},
	{"Possible Asthma Indicators", 67, journal.StageMedium},
	{"COPD Indicators Detected", 82, journal.StageHigh},
	{"Mild Breathing Irregularities", 34, journal.StageLow},
	{"Wheezing Patterns Detected", 78, journal.StageHigh},
	{"Stress-Related Breathing", 45, journal.StageMedium},
}

// Metrics are the acoustic measurements reported alongside a result.
type Metrics struct {
	BreathInterruptions int     `json:"breathInterruptions"`
	AvgPauseDuration    float64 `json:"avgPauseDuration"`
	VoiceIrregularities string  `json:"voiceIrregularities"`
	BreathingRate       int     `json:"breathingRate"`
}

// Result is one completed breath analysis.
type Result struct {
	Condition  string  `json:"condition"`
	RiskLevel  string  `json:"riskLevel"`
	Stage      string  `json:"stage"`
	Metrics    Metrics `json:"metrics"`
	EntryID    string  `json:"entryId,omitempty"`
	AnalyzedAt string  `json:"analyzedAt"`
}

// Analyzer produces breath-analysis results. Real signal processing is out
// of scope; conditions are drawn from a fixed profile table the same way
// the recording flow reports them.
type Analyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewAnalyzer(seed int64) *Analyzer {
	return &Analyzer{rng: rand.New(rand.NewSource(seed))}
}

// Analyze produces a result for a recording of the given duration.
// Recordings shorter than a second carry no usable signal.
func (a *Analyzer) Analyze(durationSeconds float64, at time.Time) (Result, error) {
	if durationSeconds < 1 {
		return Result{}, fmt.Errorf("recording too short: %.1fs", durationSeconds)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p := conditionProfiles[a.rng.Intn(len(conditionProfiles))]
	m := Metrics{
		BreathInterruptions: a.rng.Intn(8) + 1,
		AvgPauseDuration:    roundTenth(a.rng.Float64()*3 + 0.5),
		VoiceIrregularities: pick(a.rng, "yes", "no"),
		BreathingRate:       a.rng.Intn(10) + 12,
	}

	return Result{
		Condition:  p.condition,
		RiskLevel:  fmt.Sprintf("%d%%", p.risk),
		Stage:      string(p.stage),
		Metrics:    m,
		AnalyzedAt: at.UTC().Format(time.RFC3339),
	}, nil
}

// Entry converts a result into the journal entry that records it.
func (r Result) Entry(date time.Time) (journal.Entry, error) {
	var risk int
	if _, err := fmt.Sscanf(r.RiskLevel, "%d%%", &risk); err != nil {
		return journal.Entry{}, fmt.Errorf("parsing risk level %q: %w", r.RiskLevel, err)
	}
	return journal.NewBreathAnalysis(date, r.Condition, risk, journal.RiskStage(r.Stage), AnalysisNotes), nil
}

// MarshalResult encodes a result for the analyses table.
func MarshalResult(r Result) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}

// UnmarshalResult decodes a stored result payload.
func UnmarshalResult(raw string) (Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, fmt.Errorf("decoding result: %w", err)
	}
	return r, nil
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}
