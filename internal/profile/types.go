package profile

// Profile is the structured view of the user's health profile kept in the
// kv store.
type Profile struct {
	Identity  IdentityProfile
	Health    HealthProfile
	Reminders ReminderProfile
}

// IdentityProfile captures who the journal belongs to.
type IdentityProfile struct {
	Name string
	Age  int
}

// HealthProfile captures the respiratory-health baseline used to frame
// analysis results.
type HealthProfile struct {
	HeightCm    int
	WeightKg    int
	Smoker      string // "never", "former", "current"
	Conditions  []string
	Medications []string
}

// ReminderProfile captures notification preferences.
type ReminderProfile struct {
	DailyCheckIn  bool
	CheckInTime   string // "HH:MM", local time
	HighRiskAlert bool
}
