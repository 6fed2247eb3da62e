package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrDuplicateCycle = errors.New("snapshot for this refresh cycle already stored")

type Repository interface {
	StoreSnapshot(ctx context.Context, snapshot Snapshot) (int, error)
	// ListRecent returns up to limit snapshots, newest first.
	ListRecent(ctx context.Context, limit int) ([]Snapshot, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) StoreSnapshot(ctx context.Context, snapshot Snapshot) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO benchmark_snapshot (
					cycle_id,
					recorded_at,
					loaded_plans,
					planned_hours,
					actual_hours,
					completed_tasks,
					tasks_ahead_of_schedule,
					efficiency_ratio,
					ahead_of_schedule_percent,
					average_time_saved,
					simulated
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`

	var id int
	err = tx.QueryRow(ctx, query,
		snapshot.CycleId,
		snapshot.RecordedAt,
		snapshot.LoadedPlans,
		snapshot.PlannedHours,
		snapshot.ActualHours,
		snapshot.CompletedTasks,
		snapshot.TasksAheadOfSchedule,
		snapshot.EfficiencyRatio,
		snapshot.AheadOfSchedulePercent,
		snapshot.AverageTimeSaved,
		snapshot.Simulated,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%s: %w", snapshot.CycleId, ErrDuplicateCycle)
		}
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return 0, err
	}

	batch := &pgx.Batch{}
	for planId, completion := range snapshot.PlanCompletion {
		batch.Queue(`INSERT INTO benchmark_plan_completion (snapshot_id, plan_id, completion_percentage) VALUES ($1, $2, $3)`,
			id, planId, completion)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			err := fmt.Errorf("could not store plan completion: %v", err)
			log.Error(err)
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) ListRecent(ctx context.Context, limit int) ([]Snapshot, error) {
	query := `SELECT id,
				   cycle_id,
				   recorded_at,
				   loaded_plans,
				   planned_hours,
				   actual_hours,
				   completed_tasks,
				   tasks_ahead_of_schedule,
				   efficiency_ratio,
				   ahead_of_schedule_percent,
				   average_time_saved,
				   simulated
			FROM benchmark_snapshot
			ORDER BY recorded_at DESC, id DESC
			LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		log.Errorf("could not list snapshots: %v", err)
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	byId := make(map[int]*Snapshot)
	for rows.Next() {
		var s Snapshot
		err := rows.Scan(
			&s.Id,
			&s.CycleId,
			&s.RecordedAt,
			&s.LoadedPlans,
			&s.PlannedHours,
			&s.ActualHours,
			&s.CompletedTasks,
			&s.TasksAheadOfSchedule,
			&s.EfficiencyRatio,
			&s.AheadOfSchedulePercent,
			&s.AverageTimeSaved,
			&s.Simulated,
		)
		if err != nil {
			return nil, err
		}
		s.PlanCompletion = map[string]int{}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	ids := make([]int, 0, len(snapshots))
	for i := range snapshots {
		byId[snapshots[i].Id] = &snapshots[i]
		ids = append(ids, snapshots[i].Id)
	}

	completionRows, err := r.db.Query(ctx,
		`SELECT snapshot_id, plan_id, completion_percentage FROM benchmark_plan_completion WHERE snapshot_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer completionRows.Close()

	for completionRows.Next() {
		var snapshotId, completion int
		var planId string
		if err := completionRows.Scan(&snapshotId, &planId, &completion); err != nil {
			return nil, err
		}
		byId[snapshotId].PlanCompletion[planId] = completion
	}
	return snapshots, completionRows.Err()
}
