package lottery

import (
	"sort"
	"strings"
)

// AssignmentReason explains why an entry was left unassigned
type AssignmentReason string

const (
	// ReasonNoSpace means no candidate block had sufficient remaining capacity
	ReasonNoSpace AssignmentReason = "NO_SPACE"

	// ReasonRestriction means a restriction vetoed every candidate block that
	// had capacity. Takes precedence over NO_SPACE.
	ReasonRestriction AssignmentReason = "RESTRICTION"

	// ReasonError means placement failed unexpectedly; the failure is
	// isolated to this entry and the run continues
	ReasonError AssignmentReason = "ERROR"
)

// ScoredEntry pairs an entry with its computed priority calculation
type ScoredEntry struct {
	Entry *Entry
	Score PriorityCalculation
}

// AssignmentResult is the per-entry outcome of an assignment run
type AssignmentResult struct {
	Entry *Entry
	Score PriorityCalculation

	Assigned   bool
	BlockID    string
	BlockStart int

	// AlternateAssigned is true when the preferred window had no room and the
	// entry was placed via its alternate window
	AlternateAssigned bool

	// PreferenceMatched (preferred window honored) and SpecificTimeMatched
	// (exact requested start honored) are recorded independently
	PreferenceMatched   bool
	SpecificTimeMatched bool

	// Reason is set only for unassigned or failed entries
	Reason AssignmentReason

	// Detail carries human-readable context, e.g. the violated restrictions
	Detail string
}

// SolveInput is a snapshot of everything one assignment run needs. The solver
// mutates only the Assigned counters on Blocks.
type SolveInput struct {
	Entries    []ScoredEntry
	Blocks     []*TimeBlock
	Windows    []TimeWindow
	Restrictor Restrictor
}

// Solve runs the greedy single-pass assignment.
//
// Entries are processed in priority order (total score descending, then
// earlier submission, then lower organizer ID) and each is placed in the
// earliest block with capacity inside its preferred window, falling back to
// the alternate window. Groups are placed atomically: the chosen block must
// hold the whole group in one step. There is no backtracking; the heuristic
// is intentionally suboptimal and must not be upgraded to a global-optimum
// matcher, since the fairness bookkeeping is designed around it.
//
// Given identical entries, blocks, restrictions and configuration, two runs
// produce identical results.
func Solve(in SolveInput) []AssignmentResult {
	entries := rankEntries(in.Entries)
	blocks := orderBlocks(in.Blocks)

	results := make([]AssignmentResult, 0, len(entries))
	for _, se := range entries {
		results = append(results, placeEntry(se, blocks, in.Windows, in.Restrictor))
	}
	return results
}

// rankEntries returns the entries sorted for processing with deterministic
// tie-breaking
func rankEntries(entries []ScoredEntry) []ScoredEntry {
	ranked := make([]ScoredEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if !a.Entry.SubmittedAt.Equal(b.Entry.SubmittedAt) {
			return a.Entry.SubmittedAt.Before(b.Entry.SubmittedAt)
		}
		return a.Entry.OrganizerID < b.Entry.OrganizerID
	})

	return ranked
}

// orderBlocks returns the blocks sorted by start time then ID
func orderBlocks(blocks []*TimeBlock) []*TimeBlock {
	ordered := make([]*TimeBlock, len(blocks))
	copy(ordered, blocks)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartMinute != ordered[j].StartMinute {
			return ordered[i].StartMinute < ordered[j].StartMinute
		}
		return ordered[i].ID < ordered[j].ID
	})

	return ordered
}

// placeEntry attempts preferred then alternate window placement for a single
// entry, absorbing any failure into the result
func placeEntry(se ScoredEntry, blocks []*TimeBlock, windows []TimeWindow, restrictor Restrictor) AssignmentResult {
	result := AssignmentResult{Entry: se.Entry, Score: se.Score}

	block, restricted, reasons, err := tryWindow(se.Entry, se.Entry.PreferredWindow, blocks, windows, restrictor)
	if err != nil {
		result.Reason = ReasonError
		result.Detail = err.Error()
		return result
	}

	if block != nil {
		fillResult(&result, se.Entry, block, false)
		return result
	}

	if se.Entry.AlternateWindow >= 0 {
		altBlock, altRestricted, altReasons, err := tryWindow(se.Entry, se.Entry.AlternateWindow, blocks, windows, restrictor)
		if err != nil {
			result.Reason = ReasonError
			result.Detail = err.Error()
			return result
		}
		if altBlock != nil {
			fillResult(&result, se.Entry, altBlock, true)
			return result
		}
		restricted = restricted || altRestricted
		reasons = append(reasons, altReasons...)
	}

	if restricted {
		result.Reason = ReasonRestriction
		result.Detail = strings.Join(dedupe(reasons), "; ")
	} else {
		result.Reason = ReasonNoSpace
	}
	return result
}

// tryWindow finds the earliest block inside the window that can seat the
// whole entry and passes all restriction checks. On success the block's
// capacity is consumed. Returns whether any block with sufficient capacity
// was vetoed by a restriction, with the veto reasons.
func tryWindow(entry *Entry, windowIndex int, blocks []*TimeBlock, windows []TimeWindow, restrictor Restrictor) (*TimeBlock, bool, []string, error) {
	if windowIndex < 0 || windowIndex >= len(windows) {
		return nil, false, nil, nil
	}
	window := windows[windowIndex]

	restricted := false
	var reasons []string

	for _, block := range blocks {
		if !window.Contains(block.StartMinute) {
			continue
		}
		// Groups must fit in one step; partial seating is never produced
		if block.RemainingCapacity() < entry.SeatCount() {
			continue
		}

		violated, checkReasons, err := restrictor.Check(block, entry)
		if err != nil {
			return nil, false, nil, err
		}
		if violated {
			restricted = true
			reasons = append(reasons, checkReasons...)
			continue
		}

		block.Assigned += entry.SeatCount()
		return block, false, nil, nil
	}

	return nil, restricted, reasons, nil
}

func fillResult(result *AssignmentResult, entry *Entry, block *TimeBlock, alternate bool) {
	result.Assigned = true
	result.BlockID = block.ID
	result.BlockStart = block.StartMinute
	result.AlternateAssigned = alternate
	result.PreferenceMatched = !alternate
	result.SpecificTimeMatched = entry.RequestedStart >= 0 && entry.RequestedStart == block.StartMinute
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
