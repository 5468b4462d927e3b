package journal

import (
	"math/rand"
	"time"
)

// Vocabulary for synthetic demo data. The condition labels and symptom tags
// match what the analyzer and the UI use, so filters and search behave the
// same on seeded and real entries.
var (
	seedConditions = []string{
		"Normal Breathing Pattern",
		"Possible Asthma Indicators",
		"Mild Breathing Irregularities",
		"COPD Indicators Detected",
	}

	seedSymptoms = []string{
		"shortness_of_breath",
		"wheezing",
		"chest_tightness",
		"coughing",
		"fatigue",
	}

	seedStages     = []RiskStage{StageLow, StageMedium, StageHigh}
	seedSeverities = []Severity{SeverityMild, SeverityModerate, SeveritySevere}
)

// riskPercentFor maps a stage to the fixed demo risk percentage.
func riskPercentFor(stage RiskStage) int {
	switch stage {
	case StageMedium:
		return 65
	case StageHigh:
		return 85
	default:
		return 25
	}
}

// seedEntries synthesizes the first-run demo journal: five analysis entries
// over the last five days and three symptom entries over days -2..-4.
// The rand source is injected so tests can assert structure deterministically.
func seedEntries(now time.Time, rng *rand.Rand) []Entry {
	entries := make([]Entry, 0, 8)

	for i := 0; i < 5; i++ {
		date := now.AddDate(0, 0, -i)
		stage := seedStages[rng.Intn(len(seedStages))]
		condition := seedConditions[rng.Intn(len(seedConditions))]
		entries = append(entries, NewBreathAnalysis(
			date,
			condition,
			riskPercentFor(stage),
			stage,
			"Automated analysis from BreatheMate",
		))
	}

	for i := 0; i < 3; i++ {
		date := now.AddDate(0, 0, -(i + 2))
		count := rng.Intn(3) + 1
		symptoms := append([]string(nil), seedSymptoms[:count]...)
		severity := seedSeverities[rng.Intn(len(seedSeverities))]
		entries = append(entries, NewSymptomEntry(
			date,
			symptoms,
			severity,
			"Exercise, cold air",
			"Experienced symptoms after morning jog in cold weather",
		))
	}

	sortByDateDesc(entries)
	return entries
}
