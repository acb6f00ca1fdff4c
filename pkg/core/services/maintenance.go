package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/pkg/core/lottery"
	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// MaintenanceStore defines the database operations needed by the monthly
// maintenance pass
type MaintenanceStore interface {
	GetMembers(ctx context.Context) ([]db.Member, error)
	GetAlgorithmConfig(ctx context.Context) (*db.AlgorithmConfig, error)
	FairnessRowsExist(ctx context.Context, month string) (bool, error)
	InsertFairnessScores(ctx context.Context, scores []db.FairnessScore) error
	GetSpeedProfiles(ctx context.Context) ([]db.SpeedProfile, error)
	UpsertSpeedProfiles(ctx context.Context, profiles []db.SpeedProfile) error
	GetRoundsSince(ctx context.Context, since time.Time) ([]db.Round, error)
	InsertMaintenanceRecord(ctx context.Context, record *db.MaintenanceRecord) (bool, error)
}

// minQualifyingRounds is the evidence threshold for speed reclassification
const minQualifyingRounds = 3

// MaintenanceResult reports what the maintenance pass did
type MaintenanceResult struct {
	Month string

	// FairnessRowsCreated is 0 when rows for the month already existed
	FairnessRowsCreated int
	FairnessSkipped     bool

	// ProfilesUpdated counts members whose speed tier was recomputed
	ProfilesUpdated int
}

// RunMaintenance performs the monthly maintenance pass: fairness row reset
// for the current month and speed tier recalculation from trailing
// pace-of-play history. There is no scheduler process; callers trigger this
// on access and the existence checks plus the (type, month) ledger uniqueness
// make repeated or concurrent triggers harmless.
//
// Each step is independently idempotent; a failing step aborts only itself
// and earlier successful steps are retained.
func RunMaintenance(ctx context.Context, store MaintenanceStore, logger *zap.Logger, now time.Time) (*MaintenanceResult, error) {
	month := now.Format("2006-01")
	result := &MaintenanceResult{Month: month}

	logger.Debug("Starting maintenance pass", zap.String("month", month))

	algoCfg, err := loadAlgorithmConfig(ctx, store)
	if err != nil {
		return nil, err
	}

	var stepErrs []error

	if err := resetFairness(ctx, store, logger, month, result); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("fairness reset: %w", err))
	}

	if err := recalculateSpeed(ctx, store, logger, algoCfg, now, month, result); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("speed recalculation: %w", err))
	}

	if len(stepErrs) > 0 {
		return result, errors.Join(stepErrs...)
	}

	logger.Info("Maintenance pass complete",
		zap.String("month", month),
		zap.Int("fairness_rows_created", result.FairnessRowsCreated),
		zap.Int("profiles_updated", result.ProfilesUpdated))

	return result, nil
}

// resetFairness creates zero-baseline fairness rows for the month if none
// exist. Detection is by existence check, not overwrite, so in-progress
// accrual is never discarded.
func resetFairness(ctx context.Context, store MaintenanceStore, logger *zap.Logger, month string, result *MaintenanceResult) error {
	exists, err := store.FairnessRowsExist(ctx, month)
	if err != nil {
		return fmt.Errorf("failed to check fairness rows: %w", err)
	}
	if exists {
		logger.Debug("Fairness rows already exist for month, skipping reset", zap.String("month", month))
		result.FairnessSkipped = true
		return nil
	}

	members, err := store.GetMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch members: %w", err)
	}

	rows := make([]db.FairnessScore, 0, len(members))
	for _, m := range members {
		rows = append(rows, db.FairnessScore{MemberID: m.ID, Month: month})
	}

	if err := store.InsertFairnessScores(ctx, rows); err != nil {
		return fmt.Errorf("failed to insert fairness rows: %w", err)
	}
	result.FairnessRowsCreated = len(rows)

	recorded, err := store.InsertMaintenanceRecord(ctx, &db.MaintenanceRecord{
		ID:          uuid.New().String(),
		Type:        db.MaintenanceFairnessReset,
		Month:       month,
		RowsTouched: len(rows),
		Summary:     fmt.Sprintf("Created %d zero-baseline fairness rows for %s", len(rows), month),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to write fairness ledger record: %w", err)
	}
	if !recorded {
		logger.Debug("Fairness ledger record already present", zap.String("month", month))
	}

	logger.Info("Fairness rows reset", zap.String("month", month), zap.Int("rows", len(rows)))
	return nil
}

// recalculateSpeed recomputes speed tiers from completed rounds in the
// trailing 3 months. Members with a manual override are skipped entirely;
// members with fewer than minQualifyingRounds qualifying rounds are left
// unmodified.
func recalculateSpeed(ctx context.Context, store MaintenanceStore, logger *zap.Logger, algoCfg *lottery.Config, now time.Time, month string, result *MaintenanceResult) error {
	rounds, err := store.GetRoundsSince(ctx, now.AddDate(0, -3, 0))
	if err != nil {
		return fmt.Errorf("failed to fetch rounds: %w", err)
	}

	durations := make(map[string][]float64)
	for i := range rounds {
		r := rounds[i]
		if !r.Qualifies() {
			continue
		}
		durations[r.MemberID] = append(durations[r.MemberID], r.DurationMinutes())
	}

	profiles, err := store.GetSpeedProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch speed profiles: %w", err)
	}
	overridden := make(map[string]bool)
	for _, p := range profiles {
		if p.ManualOverride {
			overridden[p.MemberID] = true
		}
	}

	updatedAt := time.Now().UTC()
	var updates []db.SpeedProfile
	for memberID, ds := range durations {
		if overridden[memberID] {
			continue
		}
		if len(ds) < minQualifyingRounds {
			continue
		}

		var total float64
		for _, d := range ds {
			total += d
		}
		average := total / float64(len(ds))

		updates = append(updates, db.SpeedProfile{
			MemberID:       memberID,
			AverageMinutes: average,
			Tier:           string(algoCfg.ClassifyTier(average)),
			UpdatedAt:      updatedAt,
		})
	}

	if err := store.UpsertSpeedProfiles(ctx, updates); err != nil {
		return fmt.Errorf("failed to upsert speed profiles: %w", err)
	}
	result.ProfilesUpdated = len(updates)

	recorded, err := store.InsertMaintenanceRecord(ctx, &db.MaintenanceRecord{
		ID:          uuid.New().String(),
		Type:        db.MaintenanceSpeedRecalc,
		Month:       month,
		RowsTouched: len(updates),
		Summary:     fmt.Sprintf("Recalculated %d speed profiles from %d qualifying members", len(updates), len(durations)),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to write speed ledger record: %w", err)
	}
	if !recorded {
		logger.Debug("Speed ledger record already present", zap.String("month", month))
	}

	logger.Info("Speed profiles recalculated", zap.String("month", month), zap.Int("profiles", len(updates)))
	return nil
}
