package db

import (
	"context"
	"time"
)

// AssignmentUpdate carries one entry or group outcome to be committed when a
// run is finalized
type AssignmentUpdate struct {
	ID      string // entry or group ID
	IsGroup bool

	Status              string
	AssignedBlockID     string
	AlternateAssigned   bool
	PreferenceMatched   bool
	SpecificTimeMatched bool
	Reason              string
	ReasonDetail        string
}

// Database defines the full set of storage operations the engine uses.
// postgres.DB implements this interface; services depend on narrower subsets
// declared next to each service so tests can mock only what they need.
type Database interface {
	// Roster and configuration reads
	GetMembers(ctx context.Context) ([]Member, error)
	GetTimeBlocks(ctx context.Context, lotteryDate string) ([]TimeBlock, error)
	GetAlgorithmConfig(ctx context.Context) (*AlgorithmConfig, error)

	// Lottery submissions
	GetPendingEntries(ctx context.Context, lotteryDate string) ([]Entry, error)
	GetPendingGroupEntries(ctx context.Context, lotteryDate string) ([]GroupEntry, error)
	GetEntries(ctx context.Context, lotteryDate string) ([]Entry, error)
	GetGroupEntries(ctx context.Context, lotteryDate string) ([]GroupEntry, error)

	// Speed and fairness stores
	GetSpeedProfiles(ctx context.Context) ([]SpeedProfile, error)
	UpsertSpeedProfiles(ctx context.Context, profiles []SpeedProfile) error
	GetFairnessScores(ctx context.Context, month string) ([]FairnessScore, error)
	FairnessRowsExist(ctx context.Context, month string) (bool, error)
	InsertFairnessScores(ctx context.Context, scores []FairnessScore) error
	UpsertFairnessScores(ctx context.Context, scores []FairnessScore) error

	// Pace-of-play history
	GetRoundsSince(ctx context.Context, since time.Time) ([]Round, error)

	// Assignment history for frequency restrictions
	GetRecentAssignments(ctx context.Context, since time.Time) (map[string][]time.Time, error)

	// Processing-run ledger
	GetProcessingRun(ctx context.Context, lotteryDate string) (*ProcessingRun, error)
	CommitProcessingRun(ctx context.Context, run *ProcessingRun, updates []AssignmentUpdate, fairness []FairnessScore, snapshots []FairnessSnapshot) error
	RetractRun(ctx context.Context, lotteryDate string) error

	// Maintenance ledger
	InsertMaintenanceRecord(ctx context.Context, record *MaintenanceRecord) (bool, error)
}
