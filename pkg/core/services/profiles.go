package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// ListProfilesStore defines the database operations needed to list member
// speed and fairness standing
type ListProfilesStore interface {
	GetMembers(ctx context.Context) ([]db.Member, error)
	GetSpeedProfiles(ctx context.Context) ([]db.SpeedProfile, error)
	GetFairnessScores(ctx context.Context, month string) ([]db.FairnessScore, error)
}

// MemberProfile joins a member's speed profile with their current-month
// fairness row for display
type MemberProfile struct {
	Member   db.Member
	Profile  *db.SpeedProfile
	Fairness *db.FairnessScore
}

// ListProfiles assembles per-member speed and fairness standing for the month
// containing now, sorted by member ID.
func ListProfiles(ctx context.Context, store ListProfilesStore, logger *zap.Logger, now time.Time) ([]MemberProfile, error) {
	month := now.Format("2006-01")

	members, err := store.GetMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	profiles, err := store.GetSpeedProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch speed profiles: %w", err)
	}
	profileByMember := make(map[string]db.SpeedProfile, len(profiles))
	for _, p := range profiles {
		profileByMember[p.MemberID] = p
	}

	fairness, err := store.GetFairnessScores(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fairness scores: %w", err)
	}
	fairnessByMember := make(map[string]db.FairnessScore, len(fairness))
	for _, f := range fairness {
		fairnessByMember[f.MemberID] = f
	}

	out := make([]MemberProfile, 0, len(members))
	for _, m := range members {
		mp := MemberProfile{Member: m}
		if p, ok := profileByMember[m.ID]; ok {
			profile := p
			mp.Profile = &profile
		}
		if f, ok := fairnessByMember[m.ID]; ok {
			score := f
			mp.Fairness = &score
		}
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member.ID < out[j].Member.ID })

	logger.Debug("Listed member profiles",
		zap.String("month", month), zap.Int("members", len(out)))

	return out, nil
}
