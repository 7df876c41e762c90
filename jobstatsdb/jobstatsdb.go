package jobstatsdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/domonda/go-errs"
	"github.com/domonda/go-sqldb/db"
	"github.com/domonda/go-types/notnull"
	"github.com/domonda/go-types/uu"

	"github.com/domonda/go-jobgraph"
)

// StatsSource is implemented by jobgraph.Manager.
type StatsSource interface {
	Stats() jobgraph.Stats
	ClearStats()
}

type jobFilterer interface {
	JobFilter() []string
}

type Snapshot struct {
	ID   uu.ID  `db:"id,pk"`
	Name string `db:"name"`

	NumWorkers      int   `db:"num_workers"`
	NumJobsExecuted int64 `db:"num_jobs_executed"`
	NumAssistedJobs int64 `db:"num_assisted_jobs"`
	NumFallbackJobs int64 `db:"num_fallback_jobs"`
	NumSuspensions  int64 `db:"num_suspensions"`
	NumQueued       int   `db:"num_queued"`
	NumOutstanding  int64 `db:"num_outstanding"`

	JobFilter notnull.StringArray `db:"job_filter"`

	Since     time.Time `db:"since"`
	CreatedAt time.Time `db:"created_at"`

	Workers []*WorkerStats `db:"-"`
}

type WorkerStats struct {
	SnapshotID      uu.ID `db:"snapshot_id,pk"`
	WorkerIndex     int   `db:"worker_index,pk"`
	CPUID           int   `db:"cpu_id"`
	NumJobsExecuted int64 `db:"num_jobs_executed"`
	// ExecutionTimeNs is the execution time in nanoseconds
	ExecutionTimeNs int64 `db:"execution_time_ns"`
}

func (w *WorkerStats) ExecutionTime() time.Duration {
	return time.Duration(w.ExecutionTimeNs)
}

// NewSnapshot converts stats to a Snapshot with a new ID.
func NewSnapshot(name string, stats jobgraph.Stats, jobFilter []string) *Snapshot {
	s := &Snapshot{
		ID:              uu.IDv4(),
		Name:            name,
		NumWorkers:      len(stats.Workers),
		NumJobsExecuted: stats.NumJobsExecuted(),
		NumAssistedJobs: stats.NumAssistedJobs,
		NumFallbackJobs: stats.NumFallbackJobs,
		NumSuspensions:  stats.NumSuspensions,
		NumQueued:       stats.NumQueued,
		NumOutstanding:  stats.NumOutstanding,
		JobFilter:       notnull.StringArray(jobFilter),
		Since:           stats.Since,
		CreatedAt:       time.Now(),
		Workers:         make([]*WorkerStats, len(stats.Workers)),
	}
	if s.JobFilter == nil {
		s.JobFilter = notnull.StringArray{}
	}
	for i, w := range stats.Workers {
		s.Workers[i] = &WorkerStats{
			SnapshotID:      s.ID,
			WorkerIndex:     w.WorkerIndex,
			CPUID:           w.CPUID,
			NumJobsExecuted: w.NumJobsExecuted,
			ExecutionTimeNs: int64(w.ExecutionTime),
		}
	}
	return s
}

// CreateSchema creates the tables used by this package
// if they don't exist.
func CreateSchema(ctx context.Context) (err error) {
	defer errs.WrapWithFuncParams(&err, ctx)

	return db.Transaction(ctx, func(ctx context.Context) error {
		return db.Exec(ctx,
			/*sql*/ `
				create schema if not exists jobgraph;

				create table if not exists jobgraph.stats_snapshot (
					id                uuid primary key,
					name              text not null check(length(name) > 0),
					num_workers       int not null,
					num_jobs_executed bigint not null,
					num_assisted_jobs bigint not null,
					num_fallback_jobs bigint not null,
					num_suspensions   bigint not null,
					num_queued        int not null,
					num_outstanding   bigint not null,
					job_filter        text[] not null,
					since             timestamptz not null,
					created_at        timestamptz not null default now()
				);

				create index if not exists stats_snapshot_name_created_at_idx
					on jobgraph.stats_snapshot (name, created_at);

				create table if not exists jobgraph.worker_stats (
					snapshot_id       uuid not null references jobgraph.stats_snapshot(id) on delete cascade,
					worker_index      int not null,
					cpu_id            int not null,
					num_jobs_executed bigint not null,
					execution_time_ns bigint not null,
					primary key (snapshot_id, worker_index)
				);
			`,
		)
	})
}

// SaveStats inserts a snapshot of the statistics of source
// and returns its ID.
// The job filter is saved too if source has a JobFilter method.
func SaveStats(ctx context.Context, name string, source StatsSource) (snapshotID uu.ID, err error) {
	defer errs.WrapWithFuncParams(&err, ctx, name, source)

	var jobFilter []string
	if f, ok := source.(jobFilterer); ok {
		jobFilter = f.JobFilter()
	}
	snapshot := NewSnapshot(name, source.Stats(), jobFilter)

	err = InsertSnapshot(ctx, snapshot)
	if err != nil {
		return uu.ID{}, err
	}
	return snapshot.ID, nil
}

// InsertSnapshot inserts snapshot with its workers in one transaction.
func InsertSnapshot(ctx context.Context, snapshot *Snapshot) (err error) {
	defer errs.WrapWithFuncParams(&err, ctx, snapshot)

	if snapshot.Name == "" {
		return errs.New("empty snapshot name")
	}

	return db.Transaction(ctx, func(ctx context.Context) error {
		err := db.Exec(ctx,
			/*sql*/ `
				insert into jobgraph.stats_snapshot (
					id,
					name,
					num_workers,
					num_jobs_executed,
					num_assisted_jobs,
					num_fallback_jobs,
					num_suspensions,
					num_queued,
					num_outstanding,
					job_filter,
					since,
					created_at
				) values (
					$1,
					$2,
					$3,
					$4,
					$5,
					$6,
					$7,
					$8,
					$9,
					$10,
					$11,
					$12
				)
			`,
			snapshot.ID,              // $1
			snapshot.Name,            // $2
			snapshot.NumWorkers,      // $3
			snapshot.NumJobsExecuted, // $4
			snapshot.NumAssistedJobs, // $5
			snapshot.NumFallbackJobs, // $6
			snapshot.NumSuspensions,  // $7
			snapshot.NumQueued,       // $8
			snapshot.NumOutstanding,  // $9
			snapshot.JobFilter,       // $10
			snapshot.Since,           // $11
			snapshot.CreatedAt,       // $12
		)
		if err != nil {
			return err
		}

		for _, w := range snapshot.Workers {
			err = db.Exec(ctx,
				/*sql*/ `
					insert into jobgraph.worker_stats (
						snapshot_id,
						worker_index,
						cpu_id,
						num_jobs_executed,
						execution_time_ns
					) values ($1, $2, $3, $4, $5)
				`,
				snapshot.ID,       // $1
				w.WorkerIndex,     // $2
				w.CPUID,           // $3
				w.NumJobsExecuted, // $4
				w.ExecutionTimeNs, // $5
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSnapshot returns the snapshot with its workers
// ordered by worker index.
func GetSnapshot(ctx context.Context, snapshotID uu.ID) (snapshot *Snapshot, err error) {
	defer errs.WrapWithFuncParams(&err, ctx, snapshotID)

	err = db.TransactionReadOnly(ctx, func(ctx context.Context) error {
		err = db.QueryRow(ctx,
			/*sql*/ `select * from jobgraph.stats_snapshot where id = $1`,
			snapshotID,
		).ScanStruct(&snapshot)
		if err != nil {
			return err
		}
		return db.QueryRows(ctx,
			/*sql*/ `
				select *
				from jobgraph.worker_stats
				where snapshot_id = $1
				order by worker_index
			`,
			snapshotID,
		).ScanStructSlice(&snapshot.Workers)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetLatestSnapshots returns the latest snapshots
// with name without their workers, newest first.
func GetLatestSnapshots(ctx context.Context, name string, limit int) (snapshots []*Snapshot, err error) {
	defer errs.WrapWithFuncParams(&err, ctx, name, limit)

	err = db.QueryRows(ctx,
		/*sql*/ `
			select *
			from jobgraph.stats_snapshot
			where name = $1
			order by created_at desc
			limit $2
		`,
		name,  // $1
		limit, // $2
	).ScanStructSlice(&snapshots)
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// DeleteSnapshotsBefore deletes snapshots created before t
// and returns how many were deleted.
func DeleteSnapshotsBefore(ctx context.Context, t time.Time) (numDeleted int, err error) {
	defer errs.WrapWithFuncParams(&err, ctx, t)

	numDeleted, err = db.QueryValue[int](ctx,
		/*sql*/ `
			with deleted as (
				delete from jobgraph.stats_snapshot
				where created_at < $1
				returning id
			)
			select count(*) from deleted
		`,
		t,
	)
	return numDeleted, err
}

// IsNotFound returns true if err means that
// a snapshot does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
