package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/internal/config"
	"github.com/oakridgegc/teetime-lottery/pkg/core/lottery"
	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// ProcessDateStore defines the database operations needed to process a
// lottery date
type ProcessDateStore interface {
	GetMembers(ctx context.Context) ([]db.Member, error)
	GetTimeBlocks(ctx context.Context, lotteryDate string) ([]db.TimeBlock, error)
	GetAlgorithmConfig(ctx context.Context) (*db.AlgorithmConfig, error)
	GetPendingEntries(ctx context.Context, lotteryDate string) ([]db.Entry, error)
	GetPendingGroupEntries(ctx context.Context, lotteryDate string) ([]db.GroupEntry, error)
	GetSpeedProfiles(ctx context.Context) ([]db.SpeedProfile, error)
	GetFairnessScores(ctx context.Context, month string) ([]db.FairnessScore, error)
	GetRecentAssignments(ctx context.Context, since time.Time) (map[string][]time.Time, error)
	GetProcessingRun(ctx context.Context, lotteryDate string) (*db.ProcessingRun, error)
	CommitProcessingRun(ctx context.Context, run *db.ProcessingRun, updates []db.AssignmentUpdate, fairness []db.FairnessScore, snapshots []db.FairnessSnapshot) error
	RetractRun(ctx context.Context, lotteryDate string) error
}

// ProcessDateOptions controls a single processing invocation
type ProcessDateOptions struct {
	// Retract supersedes an existing canonical run for the date, returns its
	// assignments to PENDING, and replays. Without it, an already-processed
	// date returns the existing run untouched.
	Retract bool

	AdminID string
	Notes   string
}

// RunResult is the outcome of processing one lottery date
type RunResult struct {
	Run     *db.ProcessingRun
	Results []lottery.AssignmentResult
	Windows []lottery.TimeWindow

	// AlreadyProcessed is true when the date had a finalized canonical run
	// and no retract was requested; Run is that existing run
	AlreadyProcessed bool
}

// ProcessLotteryDate runs one full scoring and assignment pass for a lottery
// date: compute windows, score pending entries, solve assignments, record the
// processing run, and write entry outcomes plus fairness updates atomically.
//
// The operation is idempotent per date. The ledger's one-canonical-run
// uniqueness constraint is the sole concurrency guard: a concurrent second
// trigger fails with db.ErrDuplicateRun instead of duplicating bookings.
func ProcessLotteryDate(ctx context.Context, store ProcessDateStore, cfg *config.Config, logger *zap.Logger, date time.Time, opts ProcessDateOptions) (*RunResult, error) {
	dateKey := date.Format("2006-01-02")
	month := date.Format("2006-01")

	logger.Debug("Processing lottery date", zap.String("date", dateKey), zap.Bool("retract", opts.Retract))

	// Step 1: check for an existing canonical run
	existing, err := store.GetProcessingRun(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing run: %w", err)
	}
	if existing != nil {
		if !opts.Retract {
			logger.Info("Lottery date already processed, returning existing run",
				zap.String("date", dateKey), zap.String("run_id", existing.ID))
			return &RunResult{Run: existing, AlreadyProcessed: true}, nil
		}

		logger.Info("Retracting prior run before replay",
			zap.String("date", dateKey), zap.String("run_id", existing.ID))
		if err := store.RetractRun(ctx, dateKey); err != nil {
			return nil, fmt.Errorf("failed to retract prior run: %w", err)
		}
	}

	// Step 2: resolve the algorithm configuration (singleton row or defaults)
	algoCfg, err := loadAlgorithmConfig(ctx, store)
	if err != nil {
		return nil, err
	}

	// Step 3: load blocks and compute the day's time windows
	blockRows, err := store.GetTimeBlocks(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch time blocks: %w", err)
	}

	starts := make([]int, len(blockRows))
	blocks := make([]*lottery.TimeBlock, len(blockRows))
	for i, b := range blockRows {
		starts[i] = b.StartMinute
		blocks[i] = &lottery.TimeBlock{ID: b.ID, StartMinute: b.StartMinute, MaxMembers: b.MaxMembers}
	}
	windows := lottery.ComputeTimeWindows(starts, algoCfg.MaxWindowDurationMinutes)

	logger.Debug("Computed time windows",
		zap.Int("blocks", len(blocks)), zap.Int("windows", len(windows)))

	// Step 4: load pending submissions and supporting state
	entries, groups, err := loadEntries(ctx, store, dateKey)
	if err != nil {
		return nil, err
	}

	members, err := store.GetMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}
	classByMember := make(map[string]string, len(members))
	for _, m := range members {
		classByMember[m.ID] = m.Class
	}

	profiles, err := store.GetSpeedProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch speed profiles: %w", err)
	}
	profileByMember := make(map[string]*lottery.SpeedProfile, len(profiles))
	for i := range profiles {
		p := profiles[i]
		profileByMember[p.MemberID] = &lottery.SpeedProfile{
			MemberID:        p.MemberID,
			AverageMinutes:  p.AverageMinutes,
			Tier:            lottery.SpeedTier(p.Tier),
			AdminAdjustment: p.AdminAdjustment,
			ManualOverride:  p.ManualOverride,
		}
	}

	fairnessRows, err := store.GetFairnessScores(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fairness scores: %w", err)
	}
	fairnessByMember := make(map[string]*lottery.FairnessScore, len(fairnessRows))
	for _, f := range fairnessRows {
		fairnessByMember[f.MemberID] = &lottery.FairnessScore{
			MemberID:            f.MemberID,
			Month:               f.Month,
			EntriesSubmitted:    f.EntriesSubmitted,
			PreferencesGranted:  f.PreferencesGranted,
			FulfillmentRate:     f.FulfillmentRate,
			DaysWithoutGoodTime: f.DaysWithoutGoodTime,
			Score:               f.Score,
		}
	}

	// Step 5: score every entry using the organizer's fairness/speed rows
	windowOpen := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -algoCfg.SubmissionLeadDays)

	lotteryEntries := buildLotteryEntries(entries, groups, classByMember)
	scored := make([]lottery.ScoredEntry, 0, len(lotteryEntries))
	for _, e := range lotteryEntries {
		calc := lottery.ScoreEntry(lottery.ScoreInput{
			Entry:      e,
			Fairness:   fairnessByMember[e.OrganizerID],
			Profile:    profileByMember[e.OrganizerID],
			Windows:    windows,
			WindowOpen: windowOpen,
		}, algoCfg)
		scored = append(scored, lottery.ScoredEntry{Entry: e, Score: calc})
	}

	// Step 6: build the restriction checker for the date
	checker, err := buildChecker(ctx, store, cfg, date)
	if err != nil {
		return nil, err
	}

	// Step 7: solve
	results := lottery.Solve(lottery.SolveInput{
		Entries:    scored,
		Blocks:     blocks,
		Windows:    windows,
		Restrictor: checker,
	})

	// Step 8: commit the run, outcomes, fairness updates and pre-run fairness
	// snapshots in one transaction. A canonical run is therefore always fully
	// recorded; a failure here leaves the date untouched.
	finalizedAt := time.Now().UTC()
	run := buildRun(dateKey, results, opts)
	run.FairnessAssignedAt = &finalizedAt
	run.FinalizedAt = &finalizedAt

	updates := buildUpdates(results)
	fairnessUpdates := buildFairnessUpdates(results, fairnessByMember, month)
	snapshots := buildFairnessSnapshots(run.ID, fairnessUpdates, fairnessByMember)

	if err := store.CommitProcessingRun(ctx, run, updates, fairnessUpdates, snapshots); err != nil {
		// ErrDuplicateRun surfaces unwrapped so callers can react to a
		// concurrent processor having won the race
		if errors.Is(err, db.ErrDuplicateRun) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	logger.Info("Lottery date finalized",
		zap.String("date", dateKey),
		zap.String("run_id", run.ID),
		zap.Int("total", run.TotalEntries),
		zap.Int("assigned", run.AssignedEntries),
		zap.Int("violations", run.Violations))

	return &RunResult{Run: run, Results: results, Windows: windows}, nil
}

// loadAlgorithmConfig resolves the stored singleton configuration, falling
// back to the built-in defaults when no row exists
func loadAlgorithmConfig(ctx context.Context, store interface {
	GetAlgorithmConfig(ctx context.Context) (*db.AlgorithmConfig, error)
}) (*lottery.Config, error) {
	row, err := store.GetAlgorithmConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch algorithm config: %w", err)
	}
	if row == nil {
		return lottery.DefaultConfig(), nil
	}

	bonuses := make(map[lottery.WindowPosition]map[lottery.SpeedTier]float64, len(row.SpeedBonuses))
	for pos, tiers := range row.SpeedBonuses {
		inner := make(map[lottery.SpeedTier]float64, len(tiers))
		for tier, bonus := range tiers {
			inner[lottery.SpeedTier(tier)] = bonus
		}
		bonuses[lottery.WindowPosition(pos)] = inner
	}

	return &lottery.Config{
		SpeedBonuses:             bonuses,
		FastThresholdMinutes:     row.FastThresholdMinutes,
		AverageThresholdMinutes:  row.AverageThresholdMinutes,
		FairnessMultiplier:       row.FairnessMultiplier,
		MaxSubmissionBonus:       row.MaxSubmissionBonus,
		SubmissionDecayHours:     row.SubmissionDecayHours,
		SubmissionLeadDays:       row.SubmissionLeadDays,
		AdminAdjustmentBound:     row.AdminAdjustmentBound,
		MaxWindowDurationMinutes: row.MaxWindowDurationMinutes,
		FairnessEnabled:          row.FairnessEnabled,
		SpeedEnabled:             row.SpeedEnabled,
	}, nil
}

// loadEntries fetches the date's pending individual and group submissions
func loadEntries(ctx context.Context, store ProcessDateStore, dateKey string) ([]db.Entry, []db.GroupEntry, error) {
	entries, err := store.GetPendingEntries(ctx, dateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch pending entries: %w", err)
	}
	groups, err := store.GetPendingGroupEntries(ctx, dateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch pending group entries: %w", err)
	}
	return entries, groups, nil
}

// buildLotteryEntries converts storage rows into solver entries. Individuals
// become single-member entries; groups carry their member list and fills.
func buildLotteryEntries(entries []db.Entry, groups []db.GroupEntry, classByMember map[string]string) []*lottery.Entry {
	out := make([]*lottery.Entry, 0, len(entries)+len(groups))

	for _, e := range entries {
		out = append(out, &lottery.Entry{
			ID:              e.ID,
			OrganizerID:     e.MemberID,
			MemberIDs:       []string{e.MemberID},
			MemberClass:     classByMember[e.MemberID],
			PreferredWindow: e.PreferredWindow,
			AlternateWindow: orNegative(e.AlternateWindow),
			RequestedStart:  orNegative(e.RequestedStart),
			SubmittedAt:     e.SubmittedAt,
		})
	}

	for _, g := range groups {
		fills := make([]lottery.Fill, 0, len(g.FillTypes))
		for _, t := range g.FillTypes {
			fills = append(fills, lottery.Fill{Type: lottery.FillType(t)})
		}
		out = append(out, &lottery.Entry{
			ID:              g.ID,
			OrganizerID:     g.OrganizerID,
			MemberIDs:       g.MemberIDs,
			Fills:           fills,
			MemberClass:     classByMember[g.OrganizerID],
			PreferredWindow: g.PreferredWindow,
			AlternateWindow: orNegative(g.AlternateWindow),
			RequestedStart:  orNegative(g.RequestedStart),
			SubmittedAt:     g.SubmittedAt,
			IsGroup:         true,
		})
	}

	return out
}

// buildChecker assembles the restriction checker for the date, loading recent
// assignment history only when a frequency rule needs it
func buildChecker(ctx context.Context, store ProcessDateStore, cfg *config.Config, date time.Time) (*lottery.RuleChecker, error) {
	restrictions := cfg.LotteryRestrictions()

	maxPeriod := 0
	for _, r := range restrictions {
		if r.MaxPerPeriod > 0 && r.PeriodDays > maxPeriod {
			maxPeriod = r.PeriodDays
		}
	}

	recent := map[string][]time.Time{}
	if maxPeriod > 0 {
		var err error
		recent, err = store.GetRecentAssignments(ctx, date.AddDate(0, 0, -maxPeriod))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch recent assignments: %w", err)
		}
	}

	checker, err := lottery.NewRuleChecker(restrictions, date, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to build restriction checker: %w", err)
	}
	return checker, nil
}

// buildRun assembles the processing run record from the solve results
func buildRun(dateKey string, results []lottery.AssignmentResult, opts ProcessDateOptions) *db.ProcessingRun {
	run := &db.ProcessingRun{
		ID:          uuid.New().String(),
		LotteryDate: dateKey,
		AdminID:     opts.AdminID,
		Notes:       opts.Notes,
	}

	for _, r := range results {
		run.TotalEntries++
		if r.Entry.IsGroup {
			run.GroupEntries++
		} else {
			run.IndividualEntries++
		}
		if r.Assigned {
			run.AssignedEntries++
		}
		if r.Reason == lottery.ReasonRestriction {
			run.Violations++
		}
	}

	return run
}

// buildUpdates converts solve results to storage updates. Assigned entries
// become ASSIGNED; unassigned entries stay PENDING with their reason recorded
// so the portal can display why.
func buildUpdates(results []lottery.AssignmentResult) []db.AssignmentUpdate {
	updates := make([]db.AssignmentUpdate, 0, len(results))
	for _, r := range results {
		u := db.AssignmentUpdate{
			ID:      r.Entry.ID,
			IsGroup: r.Entry.IsGroup,
			Status:  db.EntryStatusPending,
		}
		if r.Assigned {
			u.Status = db.EntryStatusAssigned
			u.AssignedBlockID = r.BlockID
			u.AlternateAssigned = r.AlternateAssigned
			u.PreferenceMatched = r.PreferenceMatched
			u.SpecificTimeMatched = r.SpecificTimeMatched
		} else {
			u.Reason = string(r.Reason)
			u.ReasonDetail = r.Detail
		}
		updates = append(updates, u)
	}
	return updates
}

// buildFairnessUpdates applies run outcomes to the organizers' monthly
// fairness rows. Missing rows start from the zero baseline.
func buildFairnessUpdates(results []lottery.AssignmentResult, fairnessByMember map[string]*lottery.FairnessScore, month string) []db.FairnessScore {
	touched := make(map[string]*lottery.FairnessScore)

	for _, r := range results {
		memberID := r.Entry.OrganizerID
		f, ok := touched[memberID]
		if !ok {
			if existing := fairnessByMember[memberID]; existing != nil {
				copied := *existing
				f = &copied
			} else {
				f = &lottery.FairnessScore{MemberID: memberID, Month: month}
			}
			touched[memberID] = f
		}

		f.EntriesSubmitted++
		if r.PreferenceMatched {
			f.PreferencesGranted++
			f.DaysWithoutGoodTime = 0
		} else {
			f.DaysWithoutGoodTime++
		}
		lottery.RecalculateFairness(f)
	}

	// Deterministic output order for byte-identical re-runs
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	updates := make([]db.FairnessScore, 0, len(ids))
	for _, id := range ids {
		f := touched[id]
		updates = append(updates, db.FairnessScore{
			MemberID:            f.MemberID,
			Month:               f.Month,
			EntriesSubmitted:    f.EntriesSubmitted,
			PreferencesGranted:  f.PreferencesGranted,
			FulfillmentRate:     f.FulfillmentRate,
			DaysWithoutGoodTime: f.DaysWithoutGoodTime,
			Score:               f.Score,
		})
	}
	return updates
}

// buildFairnessSnapshots captures the pre-run state of every fairness row the
// run is about to touch, so a retract can restore it exactly. Members without
// a prior row snapshot as non-existent and retract removes the created row.
func buildFairnessSnapshots(runID string, fairnessUpdates []db.FairnessScore, fairnessByMember map[string]*lottery.FairnessScore) []db.FairnessSnapshot {
	snapshots := make([]db.FairnessSnapshot, 0, len(fairnessUpdates))
	for _, u := range fairnessUpdates {
		s := db.FairnessSnapshot{
			RunID:         runID,
			FairnessScore: db.FairnessScore{MemberID: u.MemberID, Month: u.Month},
		}
		if prior := fairnessByMember[u.MemberID]; prior != nil {
			s.Existed = true
			s.EntriesSubmitted = prior.EntriesSubmitted
			s.PreferencesGranted = prior.PreferencesGranted
			s.FulfillmentRate = prior.FulfillmentRate
			s.DaysWithoutGoodTime = prior.DaysWithoutGoodTime
			s.Score = prior.Score
		}
		snapshots = append(snapshots, s)
	}
	return snapshots
}

func orNegative(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}
