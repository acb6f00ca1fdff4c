package postgres

import (
	"context"
	"fmt"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// GetFairnessScores retrieves all fairness rows for a month key
func (d *DB) GetFairnessScores(ctx context.Context, month string) ([]db.FairnessScore, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT member_id, month, entries_submitted, preferences_granted,
		       fulfillment_rate, days_without_good_time, score
		FROM fairness_score
		WHERE month = $1
		ORDER BY member_id
	`, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query fairness scores: %w", err)
	}
	defer rows.Close()

	var scores []db.FairnessScore
	for rows.Next() {
		var f db.FairnessScore
		if err := rows.Scan(&f.MemberID, &f.Month, &f.EntriesSubmitted, &f.PreferencesGranted,
			&f.FulfillmentRate, &f.DaysWithoutGoodTime, &f.Score); err != nil {
			return nil, fmt.Errorf("failed to scan fairness score: %w", err)
		}
		scores = append(scores, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fairness scores: %w", err)
	}

	return scores, nil
}

// FairnessRowsExist reports whether any fairness rows exist for a month key.
// The monthly reset uses this existence check rather than overwriting, so
// repeated triggers within a month never discard in-progress accrual.
func (d *DB) FairnessRowsExist(ctx context.Context, month string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM fairness_score WHERE month = $1)
	`, month).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fairness rows: %w", err)
	}
	return exists, nil
}

// InsertFairnessScores inserts zero-baseline fairness rows. Conflicting rows
// are left untouched so concurrent resets are idempotent.
func (d *DB) InsertFairnessScores(ctx context.Context, scores []db.FairnessScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range scores {
		_, err := tx.Exec(ctx, `
			INSERT INTO fairness_score (member_id, month, entries_submitted, preferences_granted,
			                            fulfillment_rate, days_without_good_time, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (member_id, month) DO NOTHING
		`, f.MemberID, f.Month, f.EntriesSubmitted, f.PreferencesGranted,
			f.FulfillmentRate, f.DaysWithoutGoodTime, f.Score)
		if err != nil {
			return fmt.Errorf("failed to insert fairness score for %s: %w", f.MemberID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpsertFairnessScores writes updated fairness rows after a run outcome
func (d *DB) UpsertFairnessScores(ctx context.Context, scores []db.FairnessScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range scores {
		if err := upsertFairnessScore(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// upsertFairnessScore writes one fairness row inside an existing transaction
func upsertFairnessScore(ctx context.Context, tx pgxExecutor, f db.FairnessScore) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO fairness_score (member_id, month, entries_submitted, preferences_granted,
		                            fulfillment_rate, days_without_good_time, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (member_id, month) DO UPDATE
		SET entries_submitted = EXCLUDED.entries_submitted,
		    preferences_granted = EXCLUDED.preferences_granted,
		    fulfillment_rate = EXCLUDED.fulfillment_rate,
		    days_without_good_time = EXCLUDED.days_without_good_time,
		    score = EXCLUDED.score
	`, f.MemberID, f.Month, f.EntriesSubmitted, f.PreferencesGranted,
		f.FulfillmentRate, f.DaysWithoutGoodTime, f.Score)
	if err != nil {
		return fmt.Errorf("failed to upsert fairness score for %s: %w", f.MemberID, err)
	}
	return nil
}
