package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// GetPendingEntries retrieves the individual PENDING entries for a lottery date
func (d *DB) GetPendingEntries(ctx context.Context, lotteryDate string) ([]db.Entry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, member_id, lottery_date, preferred_window, alternate_window,
		       requested_start, submitted_at, status, COALESCE(group_id, '')
		FROM lottery_entry
		WHERE lottery_date = $1 AND status = $2 AND group_id IS NULL
		ORDER BY submitted_at, id
	`, lotteryDate, db.EntryStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []db.Entry
	for rows.Next() {
		var e db.Entry
		var date time.Time
		if err := rows.Scan(&e.ID, &e.MemberID, &date, &e.PreferredWindow,
			&e.AlternateWindow, &e.RequestedStart, &e.SubmittedAt, &e.Status, &e.GroupID); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.LotteryDate = date.Format("2006-01-02")
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// GetPendingGroupEntries retrieves the PENDING group entries for a lottery date
func (d *DB) GetPendingGroupEntries(ctx context.Context, lotteryDate string) ([]db.GroupEntry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, organizer_id, lottery_date, member_ids, fill_types,
		       preferred_window, alternate_window, requested_start, submitted_at, status
		FROM group_entry
		WHERE lottery_date = $1 AND status = $2
		ORDER BY submitted_at, id
	`, lotteryDate, db.EntryStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending group entries: %w", err)
	}
	defer rows.Close()

	var groups []db.GroupEntry
	for rows.Next() {
		var g db.GroupEntry
		var date time.Time
		if err := rows.Scan(&g.ID, &g.OrganizerID, &date, &g.MemberIDs, &g.FillTypes,
			&g.PreferredWindow, &g.AlternateWindow, &g.RequestedStart, &g.SubmittedAt, &g.Status); err != nil {
			return nil, fmt.Errorf("failed to scan group entry: %w", err)
		}
		g.LotteryDate = date.Format("2006-01-02")
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group entries: %w", err)
	}

	return groups, nil
}

// GetEntries retrieves all individual entries for a lottery date regardless
// of status, including outcome fields. Used by read-only projections.
func (d *DB) GetEntries(ctx context.Context, lotteryDate string) ([]db.Entry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, member_id, lottery_date, preferred_window, alternate_window,
		       requested_start, submitted_at, status, COALESCE(group_id, ''),
		       COALESCE(assigned_block_id, ''), alternate_assigned,
		       preference_matched, specific_time_matched, reason, reason_detail
		FROM lottery_entry
		WHERE lottery_date = $1
		ORDER BY submitted_at, id
	`, lotteryDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []db.Entry
	for rows.Next() {
		var e db.Entry
		var date time.Time
		if err := rows.Scan(&e.ID, &e.MemberID, &date, &e.PreferredWindow,
			&e.AlternateWindow, &e.RequestedStart, &e.SubmittedAt, &e.Status, &e.GroupID,
			&e.AssignedBlockID, &e.AlternateAssigned,
			&e.PreferenceMatched, &e.SpecificTimeMatched, &e.Reason, &e.ReasonDetail); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.LotteryDate = date.Format("2006-01-02")
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// GetGroupEntries retrieves all group entries for a lottery date regardless
// of status, including outcome fields
func (d *DB) GetGroupEntries(ctx context.Context, lotteryDate string) ([]db.GroupEntry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, organizer_id, lottery_date, member_ids, fill_types,
		       preferred_window, alternate_window, requested_start, submitted_at, status,
		       COALESCE(assigned_block_id, ''), alternate_assigned,
		       preference_matched, specific_time_matched, reason, reason_detail
		FROM group_entry
		WHERE lottery_date = $1
		ORDER BY submitted_at, id
	`, lotteryDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query group entries: %w", err)
	}
	defer rows.Close()

	var groups []db.GroupEntry
	for rows.Next() {
		var g db.GroupEntry
		var date time.Time
		if err := rows.Scan(&g.ID, &g.OrganizerID, &date, &g.MemberIDs, &g.FillTypes,
			&g.PreferredWindow, &g.AlternateWindow, &g.RequestedStart, &g.SubmittedAt, &g.Status,
			&g.AssignedBlockID, &g.AlternateAssigned,
			&g.PreferenceMatched, &g.SpecificTimeMatched, &g.Reason, &g.ReasonDetail); err != nil {
			return nil, fmt.Errorf("failed to scan group entry: %w", err)
		}
		g.LotteryDate = date.Format("2006-01-02")
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group entries: %w", err)
	}

	return groups, nil
}

// GetRecentAssignments returns, per member, the dates of their ASSIGNED
// entries (individual and group) since the given time. Used by frequency
// restrictions.
func (d *DB) GetRecentAssignments(ctx context.Context, since time.Time) (map[string][]time.Time, error) {
	assignments := make(map[string][]time.Time)

	rows, err := d.pool.Query(ctx, `
		SELECT member_id, lottery_date
		FROM lottery_entry
		WHERE status = $1 AND lottery_date >= $2
	`, db.EntryStatusAssigned, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		var date time.Time
		if err := rows.Scan(&memberID, &date); err != nil {
			return nil, fmt.Errorf("failed to scan recent assignment: %w", err)
		}
		assignments[memberID] = append(assignments[memberID], date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent assignments: %w", err)
	}

	groupRows, err := d.pool.Query(ctx, `
		SELECT member_ids, lottery_date
		FROM group_entry
		WHERE status = $1 AND lottery_date >= $2
	`, db.EntryStatusAssigned, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent group assignments: %w", err)
	}
	defer groupRows.Close()

	for groupRows.Next() {
		var memberIDs []string
		var date time.Time
		if err := groupRows.Scan(&memberIDs, &date); err != nil {
			return nil, fmt.Errorf("failed to scan recent group assignment: %w", err)
		}
		for _, id := range memberIDs {
			assignments[id] = append(assignments[id], date)
		}
	}
	if err := groupRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent group assignments: %w", err)
	}

	return assignments, nil
}
