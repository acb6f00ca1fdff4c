package lottery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scoringWindows = ComputeTimeWindows([]int{480, 540, 600, 660, 720}, 60)

func scoringEntry(submittedAt time.Time) *Entry {
	return &Entry{
		ID:              "entry-1",
		OrganizerID:     "alice",
		MemberIDs:       []string{"alice"},
		PreferredWindow: 0,
		AlternateWindow: -1,
		RequestedStart:  -1,
		SubmittedAt:     submittedAt,
	}
}

func TestScoreEntry_AllComponents(t *testing.T) {
	cfg := DefaultConfig()
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	calc := ScoreEntry(ScoreInput{
		Entry:      scoringEntry(windowOpen),
		Fairness:   &FairnessScore{MemberID: "alice", Score: 14},
		Profile:    &SpeedProfile{MemberID: "alice", Tier: TierFast, AdminAdjustment: 5},
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}, cfg)

	assert.Equal(t, 14.0, calc.Fairness)
	assert.Equal(t, 5.0, calc.SpeedBonus, "FAST tier prefers the early window")
	assert.Equal(t, 5.0, calc.AdminAdjustment)
	assert.Equal(t, 10.0, calc.SubmissionBonus, "submission at window open earns the full bonus")
	assert.Equal(t, 34.0, calc.Total)
	assert.Len(t, calc.Breakdown, 4)
}

func TestScoreEntry_MissingRowsScoreZeroBaseline(t *testing.T) {
	cfg := DefaultConfig()
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	calc := ScoreEntry(ScoreInput{
		Entry:      scoringEntry(windowOpen),
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}, cfg)

	assert.Equal(t, 0.0, calc.Fairness, "no fairness row means zero fairness")
	assert.Equal(t, 2.0, calc.SpeedBonus, "no profile is scored as AVERAGE tier")
	assert.Equal(t, 0.0, calc.AdminAdjustment)
}

func TestScoreEntry_DisabledSubsystemsContributeZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FairnessEnabled = false
	cfg.SpeedEnabled = false
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	calc := ScoreEntry(ScoreInput{
		Entry:      scoringEntry(windowOpen.Add(200 * time.Hour)),
		Fairness:   &FairnessScore{Score: 50},
		Profile:    &SpeedProfile{Tier: TierFast},
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}, cfg)

	assert.Equal(t, 0.0, calc.Fairness)
	assert.Equal(t, 0.0, calc.SpeedBonus)
	assert.Equal(t, 0.0, calc.SubmissionBonus, "bonus decayed to zero past the decay span")
	assert.Equal(t, 0.0, calc.Total)
}

func TestScoreEntry_AdminAdjustmentClamped(t *testing.T) {
	cfg := DefaultConfig()
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	over := ScoreEntry(ScoreInput{
		Entry:      scoringEntry(windowOpen),
		Profile:    &SpeedProfile{Tier: TierAverage, AdminAdjustment: 100},
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}, cfg)
	assert.Equal(t, 25.0, over.AdminAdjustment)

	under := ScoreEntry(ScoreInput{
		Entry:      scoringEntry(windowOpen),
		Profile:    &SpeedProfile{Tier: TierAverage, AdminAdjustment: -100},
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}, cfg)
	assert.Equal(t, -25.0, under.AdminAdjustment)
}

func TestScoreEntry_FairnessMultiplierScales(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FairnessMultiplier = 1.5
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	calc := ScoreEntry(ScoreInput{
		Entry:      scoringEntry(windowOpen),
		Fairness:   &FairnessScore{Score: 10},
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}, cfg)

	assert.Equal(t, 15.0, calc.Fairness)
}

func TestSubmissionBonus_MonotonicDecay(t *testing.T) {
	cfg := DefaultConfig()
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	score := func(offset time.Duration) float64 {
		return ScoreEntry(ScoreInput{
			Entry:      scoringEntry(windowOpen.Add(offset)),
			Windows:    scoringWindows,
			WindowOpen: windowOpen,
		}, cfg).SubmissionBonus
	}

	early := score(-2 * time.Hour)
	atOpen := score(0)
	halfway := score(36 * time.Hour)
	atLimit := score(72 * time.Hour)
	past := score(100 * time.Hour)

	assert.Equal(t, 10.0, early, "submitting before the window opened still earns the cap")
	assert.Equal(t, 10.0, atOpen)
	assert.InDelta(t, 5.0, halfway, 0.001)
	assert.Equal(t, 0.0, atLimit)
	assert.Equal(t, 0.0, past)

	// Never increases with elapsed time
	prev := early
	for _, b := range []float64{atOpen, halfway, atLimit, past} {
		assert.LessOrEqual(t, b, prev)
		prev = b
	}
}

func TestScoreEntry_GroupSizeDoesNotScaleScore(t *testing.T) {
	cfg := DefaultConfig()
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	solo := scoringEntry(windowOpen)
	group := scoringEntry(windowOpen)
	group.IsGroup = true
	group.MemberIDs = []string{"alice", "bob", "carol", "dave"}

	fairness := &FairnessScore{Score: 8}
	profile := &SpeedProfile{Tier: TierFast}

	soloCalc := ScoreEntry(ScoreInput{Entry: solo, Fairness: fairness, Profile: profile, Windows: scoringWindows, WindowOpen: windowOpen}, cfg)
	groupCalc := ScoreEntry(ScoreInput{Entry: group, Fairness: fairness, Profile: profile, Windows: scoringWindows, WindowOpen: windowOpen}, cfg)

	assert.Equal(t, soloCalc.Total, groupCalc.Total)
}

func TestScoreEntry_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	windowOpen := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)
	in := ScoreInput{
		Entry:      scoringEntry(windowOpen.Add(5 * time.Hour)),
		Fairness:   &FairnessScore{Score: 3.7},
		Profile:    &SpeedProfile{Tier: TierSlow, AdminAdjustment: -4},
		Windows:    scoringWindows,
		WindowOpen: windowOpen,
	}

	first := ScoreEntry(in, cfg)
	second := ScoreEntry(in, cfg)
	assert.Equal(t, first, second)
}

func TestRecalculateFairness(t *testing.T) {
	f := &FairnessScore{EntriesSubmitted: 4, PreferencesGranted: 1, DaysWithoutGoodTime: 3}
	RecalculateFairness(f)

	assert.Equal(t, 0.25, f.FulfillmentRate)
	assert.InDelta(t, 13.5, f.Score, 0.001)

	fresh := &FairnessScore{}
	RecalculateFairness(fresh)
	assert.Equal(t, 0.0, fresh.FulfillmentRate)
	assert.Equal(t, 10.0, fresh.Score)
}

func TestClassifyTier(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 220.0, cfg.FastThresholdMinutes)

	assert.Equal(t, TierFast, cfg.ClassifyTier(200))
	assert.Equal(t, TierFast, cfg.ClassifyTier(220))
	assert.Equal(t, TierAverage, cfg.ClassifyTier(221))
	assert.Equal(t, TierAverage, cfg.ClassifyTier(250))
	assert.Equal(t, TierSlow, cfg.ClassifyTier(251))
}

func TestSpeedBonus_MissingTableEntry(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.SpeedBonuses, PositionLate)

	assert.Equal(t, 0.0, cfg.SpeedBonus(PositionLate, TierFast))
	assert.Equal(t, 5.0, cfg.SpeedBonus(PositionEarly, TierFast))
}
