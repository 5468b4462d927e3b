package journal

import (
	"fmt"
	"math"
	"time"
)

// NoAverageRisk is the AverageRisk sentinel when no analysis entry carries a
// numeric risk level.
const NoAverageRisk = "—"

// streakWindowDays bounds the backward streak scan.
const streakWindowDays = 30

// Stats summarizes the whole journal.
type Stats struct {
	Total         int    `json:"total"`
	AverageRisk   string `json:"averageRisk"`
	CurrentStreak int    `json:"currentStreak"`
	HighRiskCount int    `json:"highRiskCount"`
}

// Compute aggregates entries into summary metrics. Pure function; now anchors
// the streak scan.
func Compute(entries []Entry, now time.Time) Stats {
	return Stats{
		Total:         len(entries),
		AverageRisk:   averageRisk(entries),
		CurrentStreak: currentStreak(entries, now),
		HighRiskCount: highRiskCount(entries),
	}
}

// averageRisk is the rounded mean of the numeric riskLevel over
// breath_analysis entries, rendered as a percentage string.
func averageRisk(entries []Entry) string {
	sum, count := 0, 0
	for _, e := range entries {
		if e.Type != TypeBreathAnalysis || e.RiskLevel == nil {
			continue
		}
		n, ok := parseRiskLevel(*e.RiskLevel)
		if !ok {
			continue
		}
		sum += n
		count++
	}
	if count == 0 {
		return NoAverageRisk
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(sum)/float64(count))))
}

// currentStreak counts consecutive calendar days with at least one entry,
// scanning backward from today. Today itself may be empty without ending the
// streak; the first empty day strictly in the past stops the scan.
func currentStreak(entries []Entry, now time.Time) int {
	streak := 0
	for i := 0; i < streakWindowDays; i++ {
		day := now.AddDate(0, 0, -i)
		if hasEntryOn(entries, day) {
			streak++
		} else if i > 0 {
			break
		}
	}
	return streak
}

func hasEntryOn(entries []Entry, day time.Time) bool {
	y, m, d := day.Date()
	for _, e := range entries {
		ey, em, ed := e.Date.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			return true
		}
	}
	return false
}

func highRiskCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Stage != nil && *e.Stage == StageHigh {
			n++
		}
	}
	return n
}
