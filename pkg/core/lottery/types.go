package lottery

import "time"

// WindowPosition categorizes where a time window falls within the day's range.
// It is the lookup key (together with the speed tier) for the speed bonus table.
type WindowPosition string

const (
	PositionEarly    WindowPosition = "early"
	PositionMidEarly WindowPosition = "mid_early"
	PositionMidLate  WindowPosition = "mid_late"
	PositionLate     WindowPosition = "late"
)

// SpeedTier classifies a member's pace of play from historical round durations
type SpeedTier string

const (
	TierFast    SpeedTier = "FAST"
	TierAverage SpeedTier = "AVERAGE"
	TierSlow    SpeedTier = "SLOW"
)

// FillType identifies a seat placeholder in a group entry that is not backed
// by a real member record
type FillType string

const (
	FillGuest      FillType = "guest"
	FillReciprocal FillType = "reciprocal"
	FillCustom     FillType = "custom"
)

// TimeWindow is a computed partition of a day's configured tee-time range.
// Windows are never persisted; they are recomputed on every scoring pass so
// block template changes don't invalidate history.
type TimeWindow struct {
	// Index in the ordered window sequence (0-based)
	Index int

	// StartMinute and EndMinute are minute offsets from midnight
	StartMinute int
	EndMinute   int

	// Label is a human-readable range like "08:00-09:00"
	Label string

	// Position category derived from Index relative to the window count
	Position WindowPosition

	// Final marks the last window; only the final window includes its end
	// boundary, so the block starting exactly at the range end is coverable
	Final bool
}

// Contains reports whether a block start time (minutes from midnight) falls
// inside this window
func (w TimeWindow) Contains(minute int) bool {
	if minute < w.StartMinute {
		return false
	}
	if w.Final {
		return minute <= w.EndMinute
	}
	return minute < w.EndMinute
}

// Fill is a reserved seat in a group entry (guest, reciprocal or custom)
type Fill struct {
	Type  FillType
	Label string
}

// Entry is one lottery submission for a date, individual or group. Individual
// entries have a single member and no fills. For groups, OrganizerID is the
// scoring representative and MemberIDs includes the organizer.
type Entry struct {
	ID          string
	OrganizerID string
	MemberIDs   []string
	Fills       []Fill
	MemberClass string

	// PreferredWindow is the index of the requested TimeWindow
	PreferredWindow int

	// AlternateWindow is the fallback window index, or -1 if none was given
	AlternateWindow int

	// RequestedStart is a specific start time in minutes from midnight, or -1.
	// Matching it exactly is reported separately from matching the window.
	RequestedStart int

	SubmittedAt time.Time
	IsGroup     bool
}

// SeatCount returns the number of seats this entry consumes in a block
func (e *Entry) SeatCount() int {
	return len(e.MemberIDs) + len(e.Fills)
}

// TimeBlock is a club-configured bookable slot with fixed capacity
type TimeBlock struct {
	ID          string
	StartMinute int
	MaxMembers  int

	// Seats consumed so far during the current run
	Assigned int
}

// RemainingCapacity returns the number of unconsumed seats in this block
func (b *TimeBlock) RemainingCapacity() int {
	return max(b.MaxMembers-b.Assigned, 0)
}

// IsFull returns true if the block has no remaining seats
func (b *TimeBlock) IsFull() bool {
	return b.RemainingCapacity() == 0
}

// SpeedProfile is a member's rolling pace-of-play classification
type SpeedProfile struct {
	MemberID       string
	AverageMinutes float64
	Tier           SpeedTier

	// AdminAdjustment is a bounded manual priority tweak (see Config.AdminAdjustmentBound)
	AdminAdjustment int

	// ManualOverride freezes automatic tier recomputation for this member
	ManualOverride bool
}

// FairnessScore is a member's accumulated fairness state for one calendar month
type FairnessScore struct {
	MemberID string

	// Month key in "2006-01" form
	Month string

	EntriesSubmitted    int
	PreferencesGranted  int
	FulfillmentRate     float64
	DaysWithoutGoodTime int

	// Score is the derived scalar fed into priority calculation
	Score float64
}

// RecalculateFairness recomputes the derived fields of a fairness row after a
// run outcome has been applied to its counters. Members with low fulfillment
// or a long streak without a preferred window score higher, so they are
// favored in the next pass.
func RecalculateFairness(f *FairnessScore) {
	if f.EntriesSubmitted > 0 {
		f.FulfillmentRate = float64(f.PreferencesGranted) / float64(f.EntriesSubmitted)
	} else {
		f.FulfillmentRate = 0
	}
	f.Score = float64(f.DaysWithoutGoodTime)*2.0 + (1.0-f.FulfillmentRate)*10.0
}

// Config is the lottery algorithm configuration. It is stored as a singleton
// row; when no row exists DefaultConfig applies.
type Config struct {
	// SpeedBonuses maps window position and tier to a priority bonus.
	// Club-configured: typically steers SLOW players toward late windows.
	SpeedBonuses map[WindowPosition]map[SpeedTier]float64

	// Tier thresholds in average round minutes: <= Fast => FAST,
	// <= Average => AVERAGE, else SLOW
	FastThresholdMinutes    float64
	AverageThresholdMinutes float64

	// FairnessMultiplier scales the stored monthly fairness scalar
	FairnessMultiplier float64

	// MaxSubmissionBonus is the bonus for submitting the moment the window opens
	MaxSubmissionBonus float64

	// SubmissionDecayHours is the span over which the submission bonus decays to 0
	SubmissionDecayHours float64

	// SubmissionLeadDays is how many days before the lottery date submissions open
	SubmissionLeadDays int

	// AdminAdjustmentBound clamps SpeedProfile.AdminAdjustment to +/- this value
	AdminAdjustmentBound int

	// MaxWindowDurationMinutes caps the duration of a computed time window
	MaxWindowDurationMinutes int

	// Subsystem toggles; a disabled subsystem contributes 0 to every score
	FairnessEnabled bool
	SpeedEnabled    bool
}

// DefaultConfig returns the built-in algorithm configuration used when no
// configuration row exists. Absence of the row is not an error.
func DefaultConfig() *Config {
	return &Config{
		SpeedBonuses: map[WindowPosition]map[SpeedTier]float64{
			PositionEarly:    {TierFast: 5, TierAverage: 2, TierSlow: 0},
			PositionMidEarly: {TierFast: 3, TierAverage: 2, TierSlow: 1},
			PositionMidLate:  {TierFast: 1, TierAverage: 2, TierSlow: 3},
			PositionLate:     {TierFast: 0, TierAverage: 2, TierSlow: 5},
		},
		FastThresholdMinutes:     220,
		AverageThresholdMinutes:  250,
		FairnessMultiplier:       1.0,
		MaxSubmissionBonus:       10,
		SubmissionDecayHours:     72,
		SubmissionLeadDays:       7,
		AdminAdjustmentBound:     25,
		MaxWindowDurationMinutes: 60,
		FairnessEnabled:          true,
		SpeedEnabled:             true,
	}
}

// SpeedBonus looks up the configured bonus for a tier at a window position.
// Missing table entries contribute 0.
func (c *Config) SpeedBonus(pos WindowPosition, tier SpeedTier) float64 {
	tiers, ok := c.SpeedBonuses[pos]
	if !ok {
		return 0
	}
	return tiers[tier]
}

// ClassifyTier maps an average round duration onto a speed tier using the
// configured thresholds
func (c *Config) ClassifyTier(averageMinutes float64) SpeedTier {
	switch {
	case averageMinutes <= c.FastThresholdMinutes:
		return TierFast
	case averageMinutes <= c.AverageThresholdMinutes:
		return TierAverage
	default:
		return TierSlow
	}
}
