package lottery

import (
	"fmt"
	"time"
)

// PriorityCalculation is the decomposed priority score for one entry. The
// components are retained individually so a member can be shown exactly why
// they were or weren't assigned.
type PriorityCalculation struct {
	Total           float64
	Fairness        float64
	SpeedBonus      float64
	AdminAdjustment float64
	SubmissionBonus float64

	// Breakdown holds one human-readable line per component for audit display
	Breakdown []string
}

// ScoreInput bundles the state needed to score a single entry. Fairness and
// Profile may be nil when no row exists for the member; both resolve to a
// zero baseline rather than an error.
type ScoreInput struct {
	Entry    *Entry
	Fairness *FairnessScore
	Profile  *SpeedProfile
	Windows  []TimeWindow

	// WindowOpen is when submissions opened for this lottery date; the
	// submission bonus decays from that instant
	WindowOpen time.Time
}

// ScoreEntry computes the priority score for one entry or group entry.
//
// For group entries the organizer's fairness and speed rows are the
// representative; group size never scales the score, so large groups gain no
// aggregate advantage. The function is pure: identical input always produces
// an identical calculation.
func ScoreEntry(in ScoreInput, cfg *Config) PriorityCalculation {
	var calc PriorityCalculation

	// Fairness component: stored monthly scalar scaled by the configured
	// multiplier. Disabled subsystem or missing row contributes 0.
	if cfg.FairnessEnabled && in.Fairness != nil {
		calc.Fairness = in.Fairness.Score * cfg.FairnessMultiplier
	}
	calc.Breakdown = append(calc.Breakdown, fmt.Sprintf("fairness: %.2f", calc.Fairness))

	// Speed component: bonus table lookup on (tier, preferred window position).
	// Members without a profile are treated as AVERAGE.
	if cfg.SpeedEnabled {
		tier := TierAverage
		if in.Profile != nil {
			tier = in.Profile.Tier
		}
		if in.Entry.PreferredWindow >= 0 && in.Entry.PreferredWindow < len(in.Windows) {
			pos := in.Windows[in.Entry.PreferredWindow].Position
			calc.SpeedBonus = cfg.SpeedBonus(pos, tier)
			calc.Breakdown = append(calc.Breakdown,
				fmt.Sprintf("speed: %.2f (%s tier, %s window)", calc.SpeedBonus, tier, pos))
		} else {
			calc.Breakdown = append(calc.Breakdown, "speed: 0.00 (no preferred window)")
		}
	} else {
		calc.Breakdown = append(calc.Breakdown, "speed: 0.00 (disabled)")
	}

	// Admin component: stored manual adjustment, clamped to the configured bound
	if in.Profile != nil {
		calc.AdminAdjustment = clamp(float64(in.Profile.AdminAdjustment),
			-float64(cfg.AdminAdjustmentBound), float64(cfg.AdminAdjustmentBound))
	}
	calc.Breakdown = append(calc.Breakdown, fmt.Sprintf("admin: %.2f", calc.AdminAdjustment))

	// Submission component: linear decay from the configured maximum over the
	// decay span. Earlier submission never scores lower than later submission.
	calc.SubmissionBonus = submissionBonus(in.Entry.SubmittedAt, in.WindowOpen, cfg)
	calc.Breakdown = append(calc.Breakdown, fmt.Sprintf("submission: %.2f", calc.SubmissionBonus))

	calc.Total = calc.Fairness + calc.SpeedBonus + calc.AdminAdjustment + calc.SubmissionBonus
	return calc
}

// submissionBonus returns a monotonically non-increasing bonus for elapsed
// time between window open and submission, capped at the configured maximum
// and floored at 0
func submissionBonus(submittedAt, windowOpen time.Time, cfg *Config) float64 {
	if cfg.MaxSubmissionBonus <= 0 || cfg.SubmissionDecayHours <= 0 {
		return 0
	}

	elapsed := submittedAt.Sub(windowOpen).Hours()
	if elapsed <= 0 {
		// Submitted at or before the window opened
		return cfg.MaxSubmissionBonus
	}

	remaining := 1.0 - elapsed/cfg.SubmissionDecayHours
	if remaining < 0 {
		return 0
	}
	return cfg.MaxSubmissionBonus * remaining
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
