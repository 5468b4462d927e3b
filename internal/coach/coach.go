package coach

import (
	"time"

	"github.com/breathemate/breathemate/internal/journal"
)

// Exercise is one scripted breathing pattern. Second counts describe a
// single cycle.
type Exercise struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	InhaleSeconds   int    `json:"inhale"`
	HoldSeconds     int    `json:"hold"`
	ExhaleSeconds   int    `json:"exhale"`
	Cycles          int    `json:"cycles"`
	DurationMinutes int    `json:"duration"`
}

var exercises = []Exercise{
	{Key: "balanced", Name: "Balanced Breathing", InhaleSeconds: 4, HoldSeconds: 4, ExhaleSeconds: 4, Cycles: 10, DurationMinutes: 5},
	{Key: "calming", Name: "Deep Calming Breath", InhaleSeconds: 4, HoldSeconds: 2, ExhaleSeconds: 8, Cycles: 12, DurationMinutes: 8},
	{Key: "energizing", Name: "Morning Energizer", InhaleSeconds: 6, HoldSeconds: 2, ExhaleSeconds: 4, Cycles: 15, DurationMinutes: 6},
	{Key: "sleep", Name: "Sleep Preparation", InhaleSeconds: 4, HoldSeconds: 7, ExhaleSeconds: 8, Cycles: 8, DurationMinutes: 10},
}

// Exercises returns the full catalog.
func Exercises() []Exercise {
	out := make([]Exercise, len(exercises))
	copy(out, exercises)
	return out
}

// ExerciseByKey looks up an exercise by its short key.
func ExerciseByKey(key string) (Exercise, bool) {
	for _, e := range exercises {
		if e.Key == key {
			return e, true
		}
	}
	return Exercise{}, false
}

// Recommendation pairs a suggested exercise with the reason it was picked.
type Recommendation struct {
	Exercise Exercise `json:"exercise"`
	Reason   string   `json:"reason"`
}

// highRiskWindowDays is how far back Recommend looks for elevated readings.
const highRiskWindowDays = 7

// Recommend picks an exercise from the recent journal and the time of day.
// Repeated high-risk readings in the past week take priority; otherwise
// mornings get the energizer, late evenings the sleep pattern, and
// everything else the balanced default.
func Recommend(now time.Time, entries []journal.Entry) Recommendation {
	if countRecentHighRisk(now, entries) >= 2 {
		ex, _ := ExerciseByKey("calming")
		return Recommendation{Exercise: ex, Reason: "several high-risk readings this week"}
	}

	switch hour := now.Hour(); {
	case hour < 10:
		ex, _ := ExerciseByKey("energizing")
		return Recommendation{Exercise: ex, Reason: "morning routine"}
	case hour > 20:
		ex, _ := ExerciseByKey("sleep")
		return Recommendation{Exercise: ex, Reason: "winding down for the night"}
	default:
		ex, _ := ExerciseByKey("balanced")
		return Recommendation{Exercise: ex, Reason: "steady daytime practice"}
	}
}

func countRecentHighRisk(now time.Time, entries []journal.Entry) int {
	cutoff := now.AddDate(0, 0, -highRiskWindowDays)
	count := 0
	for _, e := range entries {
		if e.Stage == nil || *e.Stage != journal.StageHigh {
			continue
		}
		if e.Date.Before(cutoff) {
			continue
		}
		count++
	}
	return count
}
