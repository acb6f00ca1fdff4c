package db

import "time"

// Entry statuses mirror the lottery submission state machine
const (
	EntryStatusPending    = "PENDING"
	EntryStatusProcessing = "PROCESSING"
	EntryStatusAssigned   = "ASSIGNED"
	EntryStatusCancelled  = "CANCELLED"
)

// Maintenance record types
const (
	MaintenanceFairnessReset = "fairness_reset"
	MaintenanceSpeedRecalc   = "speed_recalc"
)

// Member is a club member as far as the lottery engine cares: identity and
// class. The full roster lives with the portal.
type Member struct {
	ID    string
	Name  string
	Class string
}

// Entry is one member's lottery submission for a date. Immutable once
// ASSIGNED except by explicit admin override.
type Entry struct {
	ID              string
	MemberID        string
	LotteryDate     string // "2006-01-02"
	PreferredWindow int
	AlternateWindow *int
	RequestedStart  *int // minutes from midnight
	SubmittedAt     time.Time
	Status          string
	GroupID         string // empty for individual entries

	// Outcome fields, written only by the assignment run
	AssignedBlockID     string
	AlternateAssigned   bool
	PreferenceMatched   bool
	SpecificTimeMatched bool
	Reason              string
	ReasonDetail        string
}

// GroupEntry is an organizer-submitted request seating 2+ members together,
// plus optional fill placeholders reserving seats without a member. Status
// transitions apply atomically to the whole set.
type GroupEntry struct {
	ID              string
	OrganizerID     string
	LotteryDate     string
	MemberIDs       []string
	FillTypes       []string // "guest", "reciprocal", "custom"
	PreferredWindow int
	AlternateWindow *int
	RequestedStart  *int
	SubmittedAt     time.Time
	Status          string

	// Outcome fields, written only by the assignment run
	AssignedBlockID     string
	AlternateAssigned   bool
	PreferenceMatched   bool
	SpecificTimeMatched bool
	Reason              string
	ReasonDetail        string
}

// TimeBlock is a club-configured slot for a date with fixed capacity
type TimeBlock struct {
	ID          string
	LotteryDate string
	StartMinute int
	MaxMembers  int
}

// SpeedProfile is one row per member holding the rolling speed classification
type SpeedProfile struct {
	MemberID        string
	AverageMinutes  float64
	Tier            string
	AdminAdjustment int
	ManualOverride  bool
	UpdatedAt       time.Time
}

// FairnessScore is one row per member per calendar month
type FairnessScore struct {
	MemberID            string
	Month               string // "2006-01"
	EntriesSubmitted    int
	PreferencesGranted  int
	FulfillmentRate     float64
	DaysWithoutGoodTime int
	Score               float64
}

// Round is a pace-of-play record. A round qualifies for speed recalculation
// only when both start and finish timestamps are present.
type Round struct {
	ID         string
	MemberID   string
	StartedAt  time.Time
	TurnAt     *time.Time
	FinishedAt *time.Time
}

// DurationMinutes returns the round duration, or 0 if the round is incomplete
func (r *Round) DurationMinutes() float64 {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt).Minutes()
}

// Qualifies reports whether this round counts toward speed recalculation
func (r *Round) Qualifies() bool {
	return r.FinishedAt != nil && r.FinishedAt.After(r.StartedAt)
}

// ProcessingRun is the immutable audit record of one assignment pass. At most
// one canonical (non-superseded) run exists per lottery date; reprocessing
// creates a new run after the prior one is explicitly superseded.
type ProcessingRun struct {
	ID                string
	LotteryDate       string
	TotalEntries      int
	AssignedEntries   int
	GroupEntries      int
	IndividualEntries int
	Violations        int

	FairnessAssignedAt *time.Time
	FinalizedAt        *time.Time

	AdminID    string
	Notes      string
	Superseded bool
}

// FairnessSnapshot preserves one organizer's fairness row as it stood before
// a processing run touched it. Written in the same transaction as the run so
// a retract can restore the exact pre-run state instead of re-deriving it.
type FairnessSnapshot struct {
	RunID string

	// Existed is false when the member had no fairness row before the run;
	// restoring then deletes the row the run created
	Existed bool

	FairnessScore
}

// MaintenanceRecord is the per-(type, month) ledger row written by the
// maintenance scheduler
type MaintenanceRecord struct {
	ID          string
	Type        string
	Month       string // "2006-01"
	RowsTouched int
	Summary     string
	CompletedAt time.Time
}

// AlgorithmConfig is the persisted singleton algorithm configuration. All
// fields mirror lottery.Config; see that type for semantics. A missing row
// resolves to the built-in defaults.
type AlgorithmConfig struct {
	SpeedBonuses             map[string]map[string]float64
	FastThresholdMinutes     float64
	AverageThresholdMinutes  float64
	FairnessMultiplier       float64
	MaxSubmissionBonus       float64
	SubmissionDecayHours     float64
	SubmissionLeadDays       int
	AdminAdjustmentBound     int
	MaxWindowDurationMinutes int
	FairnessEnabled          bool
	SpeedEnabled             bool
}
