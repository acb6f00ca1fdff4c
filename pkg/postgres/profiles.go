package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// GetSpeedProfiles retrieves all member speed profiles
func (d *DB) GetSpeedProfiles(ctx context.Context) ([]db.SpeedProfile, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT member_id, average_minutes, tier, admin_adjustment, manual_override, updated_at
		FROM speed_profile
		ORDER BY member_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query speed profiles: %w", err)
	}
	defer rows.Close()

	var profiles []db.SpeedProfile
	for rows.Next() {
		var p db.SpeedProfile
		if err := rows.Scan(&p.MemberID, &p.AverageMinutes, &p.Tier,
			&p.AdminAdjustment, &p.ManualOverride, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan speed profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating speed profiles: %w", err)
	}

	return profiles, nil
}

// UpsertSpeedProfiles writes recalculated speed profiles in one transaction.
// Admin adjustment and the manual override flag are admin-owned and are
// preserved on conflict.
func (d *DB) UpsertSpeedProfiles(ctx context.Context, profiles []db.SpeedProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range profiles {
		_, err := tx.Exec(ctx, `
			INSERT INTO speed_profile (member_id, average_minutes, tier, admin_adjustment, manual_override, updated_at)
			VALUES ($1, $2, $3, 0, FALSE, $4)
			ON CONFLICT (member_id) DO UPDATE
			SET average_minutes = EXCLUDED.average_minutes,
			    tier = EXCLUDED.tier,
			    updated_at = EXCLUDED.updated_at
		`, p.MemberID, p.AverageMinutes, p.Tier, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert speed profile for %s: %w", p.MemberID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRoundsSince retrieves pace-of-play rounds started since the given time
func (d *DB) GetRoundsSince(ctx context.Context, since time.Time) ([]db.Round, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, member_id, started_at, turn_at, finished_at
		FROM round
		WHERE started_at >= $1
		ORDER BY started_at, id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []db.Round
	for rows.Next() {
		var r db.Round
		if err := rows.Scan(&r.ID, &r.MemberID, &r.StartedAt, &r.TurnAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}

	return rounds, nil
}
