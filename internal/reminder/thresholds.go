package reminder

import (
	"strconv"
	"time"
)

// ReminderExpired marks the "lease expired" notice in a lease record's fired
// set.
const ReminderExpired = "expired"

// Milestone is a percentage-elapsed point in a lease's life.
type Milestone struct {
	ID       string
	Percent  int
	Fraction float64
}

// Milestones are evaluated against elapsed lease fraction, in ascending
// order.
var Milestones = []Milestone{
	{ID: "pct25", Percent: 25, Fraction: 0.25},
	{ID: "pct50", Percent: 50, Fraction: 0.50},
	{ID: "pct75", Percent: 75, Fraction: 0.75},
}

// Threshold is an absolute-remaining-time point before expiry.
type Threshold struct {
	ID        string
	Remaining time.Duration
}

// Thresholds are evaluated in descending order of remaining time. Each fires
// at most once per lease instance.
var Thresholds = buildThresholds()

func buildThresholds() []Threshold {
	hours := []int{24, 22, 20, 18, 16, 14, 12, 10, 8, 6, 5, 4, 3, 2, 1}
	out := make([]Threshold, 0, len(hours)+10)
	for _, h := range hours {
		out = append(out, Threshold{ID: "abs_" + strconv.Itoa(h) + "h", Remaining: time.Duration(h) * time.Hour})
	}
	out = append(out,
		Threshold{ID: "abs_30m", Remaining: 30 * time.Minute},
		Threshold{ID: "abs_10m", Remaining: 10 * time.Minute},
		Threshold{ID: "abs_5m", Remaining: 5 * time.Minute},
		Threshold{ID: "abs_1m", Remaining: time.Minute},
		Threshold{ID: "abs_10s", Remaining: 10 * time.Second},
		Threshold{ID: "abs_5s", Remaining: 5 * time.Second},
		Threshold{ID: "abs_4s", Remaining: 4 * time.Second},
		Threshold{ID: "abs_3s", Remaining: 3 * time.Second},
		Threshold{ID: "abs_2s", Remaining: 2 * time.Second},
		Threshold{ID: "abs_1s", Remaining: time.Second},
	)
	return out
}
