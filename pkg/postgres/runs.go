package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// pgxExecutor abstracts pool and transaction Exec for shared helpers
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// GetProcessingRun retrieves the canonical (non-superseded) run for a lottery
// date, or nil when the date has not been processed
func (d *DB) GetProcessingRun(ctx context.Context, lotteryDate string) (*db.ProcessingRun, error) {
	var run db.ProcessingRun
	var date time.Time

	err := d.pool.QueryRow(ctx, `
		SELECT id, lottery_date, total_entries, assigned_entries, group_entries,
		       individual_entries, violations, fairness_assigned_at, finalized_at,
		       admin_id, notes, superseded
		FROM processing_run
		WHERE lottery_date = $1 AND NOT superseded
	`, lotteryDate).Scan(&run.ID, &date, &run.TotalEntries, &run.AssignedEntries,
		&run.GroupEntries, &run.IndividualEntries, &run.Violations,
		&run.FairnessAssignedAt, &run.FinalizedAt, &run.AdminID, &run.Notes, &run.Superseded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query processing run: %w", err)
	}

	run.LotteryDate = date.Format("2006-01-02")
	return &run, nil
}

// CommitProcessingRun records a finished assignment pass in one transaction:
// the run row, every entry and group outcome, the updated fairness rows, and
// the pre-run fairness snapshots a later retract would restore. The run either
// does not exist or is fully recorded; no intermediate state is ever visible.
//
// Returns db.ErrDuplicateRun if a canonical run already exists for the date;
// the partial unique index makes this safe under concurrent triggers.
func (d *DB) CommitProcessingRun(ctx context.Context, run *db.ProcessingRun, updates []db.AssignmentUpdate, fairness []db.FairnessScore, snapshots []db.FairnessSnapshot) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO processing_run (id, lottery_date, total_entries, assigned_entries,
		                            group_entries, individual_entries, violations,
		                            fairness_assigned_at, finalized_at, admin_id, notes, superseded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)
	`, run.ID, run.LotteryDate, run.TotalEntries, run.AssignedEntries,
		run.GroupEntries, run.IndividualEntries, run.Violations,
		run.FairnessAssignedAt, run.FinalizedAt, run.AdminID, run.Notes)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return db.ErrDuplicateRun
		}
		return fmt.Errorf("failed to insert processing run: %w", err)
	}

	for _, u := range updates {
		table := "lottery_entry"
		if u.IsGroup {
			table = "group_entry"
		}

		var blockID *string
		if u.AssignedBlockID != "" {
			blockID = &u.AssignedBlockID
		}

		_, err := tx.Exec(ctx, `
			UPDATE `+table+`
			SET status = $2, assigned_block_id = $3, alternate_assigned = $4,
			    preference_matched = $5, specific_time_matched = $6,
			    reason = $7, reason_detail = $8
			WHERE id = $1
		`, u.ID, u.Status, blockID, u.AlternateAssigned,
			u.PreferenceMatched, u.SpecificTimeMatched, u.Reason, u.ReasonDetail)
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", table, u.ID, err)
		}
	}

	for _, f := range fairness {
		if err := upsertFairnessScore(ctx, tx, f); err != nil {
			return err
		}
	}

	for _, s := range snapshots {
		_, err := tx.Exec(ctx, `
			INSERT INTO fairness_snapshot (run_id, member_id, month, existed,
			                               entries_submitted, preferences_granted,
			                               fulfillment_rate, days_without_good_time, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, run.ID, s.MemberID, s.Month, s.Existed,
			s.EntriesSubmitted, s.PreferencesGranted,
			s.FulfillmentRate, s.DaysWithoutGoodTime, s.Score)
		if err != nil {
			return fmt.Errorf("failed to insert fairness snapshot for %s: %w", s.MemberID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RetractRun supersedes the canonical run for a lottery date, restores the
// fairness rows from that run's pre-run snapshots, and returns the date's
// entries and groups to PENDING with their outcome fields cleared. The
// superseded run row and its snapshots are kept for audit.
func (d *DB) RetractRun(ctx context.Context, lotteryDate string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM processing_run
		WHERE lottery_date = $1 AND NOT superseded
	`, lotteryDate).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find canonical run: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE processing_run SET superseded = TRUE WHERE id = $1
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to supersede processing run: %w", err)
	}

	snapshots, err := readFairnessSnapshots(ctx, tx, runID)
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		if s.Existed {
			if err := upsertFairnessScore(ctx, tx, s.FairnessScore); err != nil {
				return err
			}
			continue
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM fairness_score WHERE member_id = $1 AND month = $2
		`, s.MemberID, s.Month)
		if err != nil {
			return fmt.Errorf("failed to remove fairness row for %s: %w", s.MemberID, err)
		}
	}

	for _, table := range []string{"lottery_entry", "group_entry"} {
		_, err := tx.Exec(ctx, `
			UPDATE `+table+`
			SET status = $2, assigned_block_id = NULL, alternate_assigned = FALSE,
			    preference_matched = FALSE, specific_time_matched = FALSE,
			    reason = '', reason_detail = ''
			WHERE lottery_date = $1 AND status <> $3
		`, lotteryDate, db.EntryStatusPending, db.EntryStatusCancelled)
		if err != nil {
			return fmt.Errorf("failed to retract %s assignments: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// readFairnessSnapshots loads the pre-run fairness state recorded with a run
func readFairnessSnapshots(ctx context.Context, tx pgx.Tx, runID string) ([]db.FairnessSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT member_id, month, existed, entries_submitted, preferences_granted,
		       fulfillment_rate, days_without_good_time, score
		FROM fairness_snapshot
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fairness snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []db.FairnessSnapshot
	for rows.Next() {
		s := db.FairnessSnapshot{RunID: runID}
		if err := rows.Scan(&s.MemberID, &s.Month, &s.Existed, &s.EntriesSubmitted,
			&s.PreferencesGranted, &s.FulfillmentRate, &s.DaysWithoutGoodTime, &s.Score); err != nil {
			return nil, fmt.Errorf("failed to scan fairness snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fairness snapshots: %w", err)
	}

	return snapshots, nil
}

// InsertMaintenanceRecord writes a maintenance ledger row with a
// conflict-tolerant insert. Returns false when a record for the same
// (type, month) already exists, so concurrent triggers never double-count.
func (d *DB) InsertMaintenanceRecord(ctx context.Context, record *db.MaintenanceRecord) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO maintenance_record (id, maintenance_type, month, rows_touched, summary, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (maintenance_type, month) DO NOTHING
	`, record.ID, record.Type, record.Month, record.RowsTouched, record.Summary, record.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert maintenance record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
