package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// mockMaintenanceStore implements MaintenanceStore for testing
type mockMaintenanceStore struct {
	members          []db.Member
	algorithmCfg     *db.AlgorithmConfig
	fairnessExists   bool
	insertedFairness []db.FairnessScore
	profiles         []db.SpeedProfile
	upsertedProfiles []db.SpeedProfile
	rounds           []db.Round
	records          []*db.MaintenanceRecord

	// recordExists makes InsertMaintenanceRecord report a pre-existing row
	recordExists bool

	fairnessExistsErr error
	insertFairnessErr error
	getRoundsErr      error
	upsertProfilesErr error
}

func (m *mockMaintenanceStore) GetMembers(ctx context.Context) ([]db.Member, error) {
	return m.members, nil
}

func (m *mockMaintenanceStore) GetAlgorithmConfig(ctx context.Context) (*db.AlgorithmConfig, error) {
	return m.algorithmCfg, nil
}

func (m *mockMaintenanceStore) FairnessRowsExist(ctx context.Context, month string) (bool, error) {
	if m.fairnessExistsErr != nil {
		return false, m.fairnessExistsErr
	}
	return m.fairnessExists, nil
}

func (m *mockMaintenanceStore) InsertFairnessScores(ctx context.Context, scores []db.FairnessScore) error {
	if m.insertFairnessErr != nil {
		return m.insertFairnessErr
	}
	m.insertedFairness = append(m.insertedFairness, scores...)
	return nil
}

func (m *mockMaintenanceStore) GetSpeedProfiles(ctx context.Context) ([]db.SpeedProfile, error) {
	return m.profiles, nil
}

func (m *mockMaintenanceStore) UpsertSpeedProfiles(ctx context.Context, profiles []db.SpeedProfile) error {
	if m.upsertProfilesErr != nil {
		return m.upsertProfilesErr
	}
	m.upsertedProfiles = append(m.upsertedProfiles, profiles...)
	return nil
}

func (m *mockMaintenanceStore) GetRoundsSince(ctx context.Context, since time.Time) ([]db.Round, error) {
	if m.getRoundsErr != nil {
		return nil, m.getRoundsErr
	}
	return m.rounds, nil
}

func (m *mockMaintenanceStore) InsertMaintenanceRecord(ctx context.Context, record *db.MaintenanceRecord) (bool, error) {
	if m.recordExists {
		return false, nil
	}
	m.records = append(m.records, record)
	return true, nil
}

var maintenanceNow = time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

// completedRounds builds n qualifying rounds for a member at the given pace
func completedRounds(memberID string, n int, minutes float64) []db.Round {
	rounds := make([]db.Round, n)
	for i := range rounds {
		start := maintenanceNow.AddDate(0, 0, -(i + 1))
		finish := start.Add(time.Duration(minutes * float64(time.Minute)))
		rounds[i] = db.Round{
			ID:         memberID + "-r" + string(rune('a'+i)),
			MemberID:   memberID,
			StartedAt:  start,
			FinishedAt: timePtr(finish),
		}
	}
	return rounds
}

func TestRunMaintenance_CreatesFairnessRows(t *testing.T) {
	store := &mockMaintenanceStore{
		members: []db.Member{{ID: "alice"}, {ID: "bob"}, {ID: "carol"}},
	}

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)

	assert.Equal(t, "2026-07", result.Month)
	assert.False(t, result.FairnessSkipped)
	assert.Equal(t, 3, result.FairnessRowsCreated)

	require.Len(t, store.insertedFairness, 3)
	for _, f := range store.insertedFairness {
		assert.Equal(t, "2026-07", f.Month)
		assert.Zero(t, f.EntriesSubmitted)
		assert.Zero(t, f.Score)
	}

	// Both steps left a ledger record
	require.Len(t, store.records, 2)
	assert.Equal(t, db.MaintenanceFairnessReset, store.records[0].Type)
	assert.Equal(t, db.MaintenanceSpeedRecalc, store.records[1].Type)
}

func TestRunMaintenance_SecondCallIsNoOp(t *testing.T) {
	store := &mockMaintenanceStore{
		members:        []db.Member{{ID: "alice"}},
		fairnessExists: true,
		recordExists:   true,
	}

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)

	assert.True(t, result.FairnessSkipped)
	assert.Zero(t, result.FairnessRowsCreated)
	assert.Empty(t, store.insertedFairness, "existing rows are never overwritten")
}

func TestRunMaintenance_SpeedRecalcClassifiesTiers(t *testing.T) {
	store := &mockMaintenanceStore{}
	store.rounds = append(store.rounds, completedRounds("fast", 3, 200)...)
	store.rounds = append(store.rounds, completedRounds("avg", 3, 240)...)
	store.rounds = append(store.rounds, completedRounds("slow", 3, 280)...)

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ProfilesUpdated)

	tierByMember := map[string]string{}
	for _, p := range store.upsertedProfiles {
		tierByMember[p.MemberID] = p.Tier
		assert.Greater(t, p.AverageMinutes, 0.0)
	}
	assert.Equal(t, "FAST", tierByMember["fast"])
	assert.Equal(t, "AVERAGE", tierByMember["avg"])
	assert.Equal(t, "SLOW", tierByMember["slow"])
}

func TestRunMaintenance_FewRoundsLeaveProfileUntouched(t *testing.T) {
	store := &mockMaintenanceStore{}
	store.rounds = append(store.rounds, completedRounds("sparse", 2, 300)...)

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)

	assert.Zero(t, result.ProfilesUpdated)
	assert.Empty(t, store.upsertedProfiles)
}

func TestRunMaintenance_IncompleteRoundsDoNotQualify(t *testing.T) {
	store := &mockMaintenanceStore{}
	// Three rounds but only two have a finish timestamp
	rounds := completedRounds("alice", 3, 290)
	rounds[2].FinishedAt = nil
	store.rounds = rounds

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)

	assert.Zero(t, result.ProfilesUpdated)
}

func TestRunMaintenance_ManualOverrideSkipped(t *testing.T) {
	store := &mockMaintenanceStore{
		profiles: []db.SpeedProfile{
			{MemberID: "pinned", Tier: "FAST", ManualOverride: true},
		},
	}
	store.rounds = append(store.rounds, completedRounds("pinned", 5, 300)...)
	store.rounds = append(store.rounds, completedRounds("free", 5, 300)...)

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProfilesUpdated)
	require.Len(t, store.upsertedProfiles, 1)
	assert.Equal(t, "free", store.upsertedProfiles[0].MemberID)
	assert.Equal(t, "SLOW", store.upsertedProfiles[0].Tier)
}

func TestRunMaintenance_StepsFailIndependently(t *testing.T) {
	store := &mockMaintenanceStore{
		members:           []db.Member{{ID: "alice"}},
		fairnessExistsErr: errors.New("fairness table unavailable"),
	}
	store.rounds = append(store.rounds, completedRounds("alice", 3, 230)...)

	result, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fairness reset")

	// The speed step still ran and its outcome is reported
	require.NotNil(t, result)
	assert.Equal(t, 1, result.ProfilesUpdated)
}

func TestRunMaintenance_StoredThresholdsUsed(t *testing.T) {
	store := &mockMaintenanceStore{
		algorithmCfg: &db.AlgorithmConfig{
			FastThresholdMinutes:     300,
			AverageThresholdMinutes:  350,
			MaxWindowDurationMinutes: 60,
			FairnessEnabled:          true,
			SpeedEnabled:             true,
		},
	}
	store.rounds = append(store.rounds, completedRounds("alice", 3, 290)...)

	_, err := RunMaintenance(context.Background(), store, zap.NewNop(), maintenanceNow)
	require.NoError(t, err)

	require.Len(t, store.upsertedProfiles, 1)
	assert.Equal(t, "FAST", store.upsertedProfiles[0].Tier,
		"290 minutes is FAST under the stored 300-minute threshold")
}
