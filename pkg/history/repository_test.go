package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/abts/buildmonitor/internal/test_utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, Repository) {
	ctx := context.Background()
	_, err := db.Exec(ctx, "TRUNCATE benchmark_snapshot CASCADE")
	require.NoError(t, err)
	return ctx, NewRepository(db)
}

func intPtr(v int) *int {
	return &v
}

var recordedAt = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

func TestRepositoryImpl_StoreAndList(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	snapshot := Snapshot{
		CycleId:                uuid.New(),
		RecordedAt:             recordedAt,
		LoadedPlans:            3,
		PlannedHours:           200,
		ActualHours:            181.5,
		CompletedTasks:         5,
		TasksAheadOfSchedule:   2,
		EfficiencyRatio:        intPtr(110),
		AheadOfSchedulePercent: intPtr(40),
		AverageTimeSaved:       3.7,
		Simulated:              true,
		PlanCompletion:         map[string]int{"hydrogen_implementation": 67, "processor_implementation": 50},
	}

	// when
	id, err := repo.StoreSnapshot(ctx, snapshot)
	require.NoError(t, err)

	// then
	stored, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	snapshot.Id = id
	assert.Equal(t, snapshot.CycleId, stored[0].CycleId)
	assert.True(t, snapshot.RecordedAt.Equal(stored[0].RecordedAt))
	assert.Equal(t, snapshot.PlanCompletion, stored[0].PlanCompletion)
	assert.Equal(t, 110, *stored[0].EfficiencyRatio)
	assert.Equal(t, 181.5, stored[0].ActualHours)
	assert.True(t, stored[0].Simulated)
}

func TestRepositoryImpl_NullRatios(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	_, err := repo.StoreSnapshot(ctx, Snapshot{CycleId: uuid.New(), RecordedAt: recordedAt})
	require.NoError(t, err)

	stored, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].EfficiencyRatio)
	assert.Nil(t, stored[0].AheadOfSchedulePercent)
	assert.Empty(t, stored[0].PlanCompletion)
}

func TestRepositoryImpl_ListRecentNewestFirstAndLimited(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	for i := range 5 {
		_, err := repo.StoreSnapshot(ctx, Snapshot{
			CycleId:        uuid.New(),
			RecordedAt:     recordedAt.Add(time.Duration(i) * time.Minute),
			CompletedTasks: i,
		})
		require.NoError(t, err)
	}

	stored, err := repo.ListRecent(ctx, 3)

	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, 4, stored[0].CompletedTasks)
	assert.Equal(t, 3, stored[1].CompletedTasks)
	assert.Equal(t, 2, stored[2].CompletedTasks)
}

func TestRepositoryImpl_DuplicateCycle(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	cycleId := uuid.New()

	_, err := repo.StoreSnapshot(ctx, Snapshot{CycleId: cycleId, RecordedAt: recordedAt, PlanCompletion: map[string]int{"a": 1}})
	require.NoError(t, err)
	_, err = repo.StoreSnapshot(ctx, Snapshot{CycleId: cycleId, RecordedAt: recordedAt})

	assert.ErrorIs(t, err, ErrDuplicateCycle)
	stored, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
