package lottery

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

// Restriction is a club-configured time-of-day or frequency rule. Its scope
// is the union of the listed member IDs, member classes and (optionally)
// guest fills; a restriction with no scope selectors applies to everyone.
type Restriction struct {
	Name string

	// RRule is a recurrence rule selecting the dates this restriction is
	// active on (e.g. "FREQ=WEEKLY;BYDAY=SA,SU"). Empty means every day.
	RRule string

	// StartMinute/EndMinute bound the blocked time-of-day range in minutes
	// from midnight. A negative StartMinute means the rule has no
	// time-of-day component.
	StartMinute int
	EndMinute   int

	MemberIDs       []string
	MemberClasses   []string
	AppliesToGuests bool

	// MaxPerPeriod caps assignments per member within the trailing PeriodDays.
	// Zero means the rule has no frequency component.
	MaxPerPeriod int
	PeriodDays   int
}

// Restrictor checks whether placing an entry in a block violates any active
// restriction. Implementations must be deterministic for identical input.
type Restrictor interface {
	Check(block *TimeBlock, entry *Entry) (violated bool, reasons []string, err error)
}

// RuleChecker is the rrule-backed Restrictor used in production. It is built
// once per run for a single lottery date: recurrence rules are evaluated at
// construction so Check itself is cheap and infallible.
type RuleChecker struct {
	date   time.Time
	active []Restriction

	// recentAssignments maps member ID to the dates of their recent
	// assignments, used by frequency rules
	recentAssignments map[string][]time.Time
}

// NewRuleChecker filters the configured restrictions down to those active on
// the given date and returns a checker over them. Returns an error if any
// recurrence rule fails to parse.
func NewRuleChecker(restrictions []Restriction, date time.Time, recentAssignments map[string][]time.Time) (*RuleChecker, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var active []Restriction
	for _, r := range restrictions {
		on, err := activeOn(r.RRule, day)
		if err != nil {
			return nil, fmt.Errorf("restriction %q has invalid rrule: %w", r.Name, err)
		}
		if on {
			active = append(active, r)
		}
	}

	if recentAssignments == nil {
		recentAssignments = map[string][]time.Time{}
	}

	return &RuleChecker{
		date:              day,
		active:            active,
		recentAssignments: recentAssignments,
	}, nil
}

// activeOn reports whether the recurrence rule produces an occurrence on the
// given day. An empty rule is active every day.
func activeOn(rule string, day time.Time) (bool, error) {
	if rule == "" {
		return true, nil
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return false, err
	}

	// Anchor the recurrence well before the date being checked so BYDAY-style
	// rules expand over it regardless of when the config was written
	r.DTStart(day.AddDate(-1, 0, 0))

	occurrences := r.Between(day, day.Add(24*time.Hour-time.Nanosecond), true)
	return len(occurrences) > 0, nil
}

// Check reports whether placing the entry in the block violates any active
// restriction, with one human-readable reason per violated rule
func (c *RuleChecker) Check(block *TimeBlock, entry *Entry) (bool, []string, error) {
	var reasons []string

	for _, r := range c.active {
		if !c.inScope(r, entry) {
			continue
		}

		if r.StartMinute >= 0 && block.StartMinute >= r.StartMinute && block.StartMinute < r.EndMinute {
			reasons = append(reasons, fmt.Sprintf("%s: %s start is blocked for this entry",
				r.Name, minutesToClock(block.StartMinute)))
		}

		if r.MaxPerPeriod > 0 {
			if member, count := c.frequencyExceeded(r, entry); member != "" {
				reasons = append(reasons, fmt.Sprintf("%s: %s already has %d assignments in the last %d days (max %d)",
					r.Name, member, count, r.PeriodDays, r.MaxPerPeriod))
			}
		}
	}

	return len(reasons) > 0, reasons, nil
}

// inScope reports whether the restriction applies to any member of the entry
func (c *RuleChecker) inScope(r Restriction, entry *Entry) bool {
	// No selectors means the rule is universal
	if len(r.MemberIDs) == 0 && len(r.MemberClasses) == 0 && !r.AppliesToGuests {
		return true
	}

	for _, id := range entry.MemberIDs {
		if slices.Contains(r.MemberIDs, id) {
			return true
		}
	}

	if slices.Contains(r.MemberClasses, entry.MemberClass) {
		return true
	}

	if r.AppliesToGuests {
		for _, f := range entry.Fills {
			if f.Type == FillGuest {
				return true
			}
		}
	}

	return false
}

// frequencyExceeded returns the first in-scope member at or over the rule's
// cap, with their count, or ("", 0) if none
func (c *RuleChecker) frequencyExceeded(r Restriction, entry *Entry) (string, int) {
	cutoff := c.date.AddDate(0, 0, -r.PeriodDays)

	for _, id := range entry.MemberIDs {
		if len(r.MemberIDs) > 0 && !slices.Contains(r.MemberIDs, id) &&
			!slices.Contains(r.MemberClasses, entry.MemberClass) {
			continue
		}

		count := 0
		for _, d := range c.recentAssignments[id] {
			if !d.Before(cutoff) && d.Before(c.date) {
				count++
			}
		}
		if count >= r.MaxPerPeriod {
			return id, count
		}
	}

	return "", 0
}
