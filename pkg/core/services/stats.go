package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// StatsStore defines the database operations needed for the stats projection
type StatsStore interface {
	GetProcessingRun(ctx context.Context, lotteryDate string) (*db.ProcessingRun, error)
	GetEntries(ctx context.Context, lotteryDate string) ([]db.Entry, error)
	GetGroupEntries(ctx context.Context, lotteryDate string) ([]db.GroupEntry, error)
	GetSpeedProfiles(ctx context.Context) ([]db.SpeedProfile, error)
	GetFairnessScores(ctx context.Context, month string) ([]db.FairnessScore, error)
}

// ProcessingStats is a read-only dashboard projection for one lottery date.
// It derives everything from committed state and never feeds back into the
// assignment algorithm.
type ProcessingStats struct {
	Run *db.ProcessingRun

	AssignmentRate      float64
	PreferenceMatchRate float64
	AlternateRate       float64

	// UnassignedReasons histograms the reasons on unassigned entries
	UnassignedReasons map[string]int

	// TierDistribution counts speed profiles per tier across the club
	TierDistribution map[string]int

	// FairnessAverage is the mean fairness scalar for the date's month
	FairnessAverage float64
}

// ViewStats assembles the processing statistics for a lottery date. Returns
// an error if the date has no canonical run yet.
func ViewStats(ctx context.Context, store StatsStore, logger *zap.Logger, date time.Time) (*ProcessingStats, error) {
	dateKey := date.Format("2006-01-02")
	month := date.Format("2006-01")

	logger.Debug("Assembling processing stats", zap.String("date", dateKey))

	run, err := store.GetProcessingRun(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch processing run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("lottery date %s has not been processed", dateKey)
	}

	entries, err := store.GetEntries(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	groups, err := store.GetGroupEntries(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group entries: %w", err)
	}

	stats := &ProcessingStats{
		Run:               run,
		UnassignedReasons: make(map[string]int),
		TierDistribution:  make(map[string]int),
	}

	total, assigned, preferred, alternate := 0, 0, 0, 0
	tally := func(status, reason string, preferenceMatched, alternateAssigned bool) {
		total++
		switch status {
		case db.EntryStatusAssigned:
			assigned++
			if preferenceMatched {
				preferred++
			}
			if alternateAssigned {
				alternate++
			}
		default:
			if reason != "" {
				stats.UnassignedReasons[reason]++
			}
		}
	}

	for _, e := range entries {
		tally(e.Status, e.Reason, e.PreferenceMatched, e.AlternateAssigned)
	}
	for _, g := range groups {
		tally(g.Status, g.Reason, g.PreferenceMatched, g.AlternateAssigned)
	}

	if total > 0 {
		stats.AssignmentRate = float64(assigned) / float64(total)
	}
	if assigned > 0 {
		stats.PreferenceMatchRate = float64(preferred) / float64(assigned)
		stats.AlternateRate = float64(alternate) / float64(assigned)
	}

	profiles, err := store.GetSpeedProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch speed profiles: %w", err)
	}
	for _, p := range profiles {
		stats.TierDistribution[p.Tier]++
	}

	fairness, err := store.GetFairnessScores(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fairness scores: %w", err)
	}
	if len(fairness) > 0 {
		var sum float64
		for _, f := range fairness {
			sum += f.Score
		}
		stats.FairnessAverage = sum / float64(len(fairness))
	}

	return stats, nil
}
