package lottery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-06-13 is a Saturday
var saturday = time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC)

func restrictionEntry(memberIDs []string, class string) *Entry {
	return &Entry{
		ID:          "entry-1",
		OrganizerID: memberIDs[0],
		MemberIDs:   memberIDs,
		MemberClass: class,
	}
}

func TestNewRuleChecker_WeekendRuleActiveOnSaturday(t *testing.T) {
	rules := []Restriction{{
		Name:        "weekend-morning-members-only",
		RRule:       "FREQ=WEEKLY;BYDAY=SA,SU",
		StartMinute: 420,
		EndMinute:   600,
	}}

	checker, err := NewRuleChecker(rules, saturday, nil)
	require.NoError(t, err)

	violated, reasons, err := checker.Check(&TimeBlock{ID: "b1", StartMinute: 480}, restrictionEntry([]string{"alice"}, "FULL"))
	require.NoError(t, err)
	assert.True(t, violated)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "weekend-morning-members-only")
}

func TestNewRuleChecker_WeekendRuleInactiveOnWednesday(t *testing.T) {
	rules := []Restriction{{
		Name:        "weekend-morning-members-only",
		RRule:       "FREQ=WEEKLY;BYDAY=SA,SU",
		StartMinute: 420,
		EndMinute:   600,
	}}

	wednesday := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	checker, err := NewRuleChecker(rules, wednesday, nil)
	require.NoError(t, err)

	violated, _, err := checker.Check(&TimeBlock{ID: "b1", StartMinute: 480}, restrictionEntry([]string{"alice"}, "FULL"))
	require.NoError(t, err)
	assert.False(t, violated, "rule should not fire on a weekday")
}

func TestNewRuleChecker_EmptyRRuleAlwaysActive(t *testing.T) {
	rules := []Restriction{{
		Name:        "no-twilight-juniors",
		StartMinute: 900,
		EndMinute:   1440,
		MemberClasses: []string{
			"JUNIOR",
		},
	}}

	checker, err := NewRuleChecker(rules, saturday, nil)
	require.NoError(t, err)

	violated, _, err := checker.Check(&TimeBlock{ID: "b1", StartMinute: 960}, restrictionEntry([]string{"kid"}, "JUNIOR"))
	require.NoError(t, err)
	assert.True(t, violated)
}

func TestNewRuleChecker_InvalidRRule(t *testing.T) {
	rules := []Restriction{{Name: "broken", RRule: "FREQ=NOPE"}}

	_, err := NewRuleChecker(rules, saturday, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRuleChecker_TimeRangeBoundaries(t *testing.T) {
	rules := []Restriction{{
		Name:        "morning-block",
		StartMinute: 480,
		EndMinute:   600,
	}}
	checker, err := NewRuleChecker(rules, saturday, nil)
	require.NoError(t, err)

	entry := restrictionEntry([]string{"alice"}, "FULL")

	check := func(minute int) bool {
		violated, _, err := checker.Check(&TimeBlock{ID: "b", StartMinute: minute}, entry)
		require.NoError(t, err)
		return violated
	}

	assert.False(t, check(479), "just before the range")
	assert.True(t, check(480), "range start is blocked")
	assert.True(t, check(599))
	assert.False(t, check(600), "range end is exclusive")
}

func TestRuleChecker_ScopeSelectors(t *testing.T) {
	rules := []Restriction{{
		Name:          "scoped",
		StartMinute:   0,
		EndMinute:     1440,
		MemberIDs:     []string{"bob"},
		MemberClasses: []string{"JUNIOR"},
	}}
	checker, err := NewRuleChecker(rules, saturday, nil)
	require.NoError(t, err)

	block := &TimeBlock{ID: "b", StartMinute: 480}

	violated, _, _ := checker.Check(block, restrictionEntry([]string{"alice"}, "FULL"))
	assert.False(t, violated, "out-of-scope entry passes")

	violated, _, _ = checker.Check(block, restrictionEntry([]string{"bob"}, "FULL"))
	assert.True(t, violated, "listed member ID is in scope")

	violated, _, _ = checker.Check(block, restrictionEntry([]string{"carol"}, "JUNIOR"))
	assert.True(t, violated, "listed member class is in scope")

	// A group containing one in-scope member is in scope
	violated, _, _ = checker.Check(block, restrictionEntry([]string{"alice", "bob", "carol"}, "FULL"))
	assert.True(t, violated)
}

func TestRuleChecker_GuestScope(t *testing.T) {
	rules := []Restriction{{
		Name:            "no-guests-weekends",
		RRule:           "FREQ=WEEKLY;BYDAY=SA,SU",
		StartMinute:     0,
		EndMinute:       1440,
		AppliesToGuests: true,
	}}
	checker, err := NewRuleChecker(rules, saturday, nil)
	require.NoError(t, err)

	block := &TimeBlock{ID: "b", StartMinute: 480}

	plain := restrictionEntry([]string{"alice"}, "FULL")
	violated, _, _ := checker.Check(block, plain)
	assert.False(t, violated)

	withGuest := restrictionEntry([]string{"alice"}, "FULL")
	withGuest.Fills = []Fill{{Type: FillGuest, Label: "Guest of Alice"}}
	violated, _, _ = checker.Check(block, withGuest)
	assert.True(t, violated)

	withReciprocal := restrictionEntry([]string{"alice"}, "FULL")
	withReciprocal.Fills = []Fill{{Type: FillReciprocal}}
	violated, _, _ = checker.Check(block, withReciprocal)
	assert.False(t, violated, "reciprocal fills are not guests")
}

func TestRuleChecker_FrequencyCap(t *testing.T) {
	rules := []Restriction{{
		Name:         "twice-weekly-cap",
		StartMinute:  -1,
		MaxPerPeriod: 2,
		PeriodDays:   7,
	}}

	recent := map[string][]time.Time{
		"alice": {saturday.AddDate(0, 0, -2), saturday.AddDate(0, 0, -4)},
		"bob":   {saturday.AddDate(0, 0, -2)},
	}

	checker, err := NewRuleChecker(rules, saturday, recent)
	require.NoError(t, err)

	block := &TimeBlock{ID: "b", StartMinute: 480}

	violated, reasons, err := checker.Check(block, restrictionEntry([]string{"alice"}, "FULL"))
	require.NoError(t, err)
	assert.True(t, violated, "alice is at the cap")
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "alice")

	violated, _, err = checker.Check(block, restrictionEntry([]string{"bob"}, "FULL"))
	require.NoError(t, err)
	assert.False(t, violated, "bob is under the cap")
}

func TestRuleChecker_FrequencyCapIgnoresOldAssignments(t *testing.T) {
	rules := []Restriction{{
		Name:         "twice-weekly-cap",
		StartMinute:  -1,
		MaxPerPeriod: 2,
		PeriodDays:   7,
	}}

	// Both assignments are older than the trailing period
	recent := map[string][]time.Time{
		"alice": {saturday.AddDate(0, 0, -10), saturday.AddDate(0, 0, -8)},
	}

	checker, err := NewRuleChecker(rules, saturday, recent)
	require.NoError(t, err)

	violated, _, err := checker.Check(&TimeBlock{ID: "b", StartMinute: 480}, restrictionEntry([]string{"alice"}, "FULL"))
	require.NoError(t, err)
	assert.False(t, violated)
}

func TestRuleChecker_GroupBlockedByOneMembersFrequency(t *testing.T) {
	rules := []Restriction{{
		Name:         "weekly-cap",
		StartMinute:  -1,
		MaxPerPeriod: 1,
		PeriodDays:   7,
	}}

	recent := map[string][]time.Time{
		"dave": {saturday.AddDate(0, 0, -3)},
	}

	checker, err := NewRuleChecker(rules, saturday, recent)
	require.NoError(t, err)

	group := restrictionEntry([]string{"alice", "bob", "dave"}, "FULL")
	violated, reasons, err := checker.Check(&TimeBlock{ID: "b", StartMinute: 480}, group)
	require.NoError(t, err)
	assert.True(t, violated, "one capped member blocks the whole group")
	assert.Contains(t, reasons[0], "dave")
}

func TestRuleChecker_MultipleViolations(t *testing.T) {
	rules := []Restriction{
		{Name: "rule-a", StartMinute: 400, EndMinute: 700},
		{Name: "rule-b", StartMinute: 450, EndMinute: 500},
	}
	checker, err := NewRuleChecker(rules, saturday, nil)
	require.NoError(t, err)

	violated, reasons, err := checker.Check(&TimeBlock{ID: "b", StartMinute: 460}, restrictionEntry([]string{"alice"}, "FULL"))
	require.NoError(t, err)
	assert.True(t, violated)
	assert.Len(t, reasons, 2)
}
