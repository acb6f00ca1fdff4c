package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// GetMembers retrieves the full member roster
func (d *DB) GetMembers(ctx context.Context) ([]db.Member, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, class
		FROM member
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []db.Member
	for rows.Next() {
		var m db.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Class); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// GetTimeBlocks retrieves the configured time blocks for a lottery date
func (d *DB) GetTimeBlocks(ctx context.Context, lotteryDate string) ([]db.TimeBlock, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, lottery_date, start_minute, max_members
		FROM time_block
		WHERE lottery_date = $1
		ORDER BY start_minute, id
	`, lotteryDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query time blocks: %w", err)
	}
	defer rows.Close()

	var blocks []db.TimeBlock
	for rows.Next() {
		var b db.TimeBlock
		var date time.Time
		if err := rows.Scan(&b.ID, &date, &b.StartMinute, &b.MaxMembers); err != nil {
			return nil, fmt.Errorf("failed to scan time block: %w", err)
		}
		b.LotteryDate = date.Format("2006-01-02")
		blocks = append(blocks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time blocks: %w", err)
	}

	return blocks, nil
}

// GetAlgorithmConfig retrieves the singleton algorithm configuration row.
// Returns (nil, nil) when no row exists; the caller falls back to defaults.
func (d *DB) GetAlgorithmConfig(ctx context.Context) (*db.AlgorithmConfig, error) {
	var cfg db.AlgorithmConfig
	var bonuses []byte

	err := d.pool.QueryRow(ctx, `
		SELECT speed_bonuses, fast_threshold_minutes, average_threshold_minutes,
		       fairness_multiplier, max_submission_bonus, submission_decay_hours,
		       submission_lead_days, admin_adjustment_bound, max_window_duration_minutes,
		       fairness_enabled, speed_enabled
		FROM algorithm_config
		WHERE id = 1
	`).Scan(&bonuses, &cfg.FastThresholdMinutes, &cfg.AverageThresholdMinutes,
		&cfg.FairnessMultiplier, &cfg.MaxSubmissionBonus, &cfg.SubmissionDecayHours,
		&cfg.SubmissionLeadDays, &cfg.AdminAdjustmentBound, &cfg.MaxWindowDurationMinutes,
		&cfg.FairnessEnabled, &cfg.SpeedEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query algorithm config: %w", err)
	}

	if err := json.Unmarshal(bonuses, &cfg.SpeedBonuses); err != nil {
		return nil, fmt.Errorf("failed to decode speed bonus table: %w", err)
	}

	return &cfg, nil
}
