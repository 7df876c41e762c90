package jobstatsdb_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/domonda/go-sqldb"
	"github.com/domonda/go-sqldb/db"
	"github.com/domonda/go-sqldb/pqconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domonda/go-jobgraph"
	"github.com/domonda/go-jobgraph/jobstatsdb"
	"github.com/domonda/go-jobgraph/jobsync"
)

func TestNewSnapshot(t *testing.T) {
	// given
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stats := jobgraph.Stats{
		Workers: []jobgraph.WorkerStats{
			{WorkerIndex: 0, CPUID: 2, NumJobsExecuted: 10, ExecutionTime: time.Second},
			{WorkerIndex: 1, CPUID: jobgraph.AnyCPU, NumJobsExecuted: 5, ExecutionTime: time.Millisecond},
		},
		NumAssistedJobs: 3,
		NumSuspensions:  1,
		Since:           since,
	}

	// when
	snapshot := jobstatsdb.NewSnapshot("frame", stats, nil)

	// then
	assert.False(t, snapshot.ID.IsNil())
	assert.Equal(t, "frame", snapshot.Name)
	assert.Equal(t, 2, snapshot.NumWorkers)
	assert.Equal(t, int64(15), snapshot.NumJobsExecuted)
	assert.Equal(t, int64(3), snapshot.NumAssistedJobs)
	assert.Equal(t, since, snapshot.Since)
	assert.NotNil(t, snapshot.JobFilter)
	assert.Empty(t, snapshot.JobFilter)
	require.Len(t, snapshot.Workers, 2)
	assert.Equal(t, snapshot.ID, snapshot.Workers[1].SnapshotID)
	assert.Equal(t, 2, snapshot.Workers[0].CPUID)
	assert.Equal(t, time.Second, snapshot.Workers[0].ExecutionTime())
}

func TestStartRecordingArguments(t *testing.T) {
	source := jobsync.New(jobgraph.JobManagerDesc{})

	_, err := jobstatsdb.StartRecording(context.Background(), "frame", source, 0, false)
	assert.Error(t, err)

	_, err = jobstatsdb.StartRecording(context.Background(), "", source, time.Second, false)
	assert.Error(t, err)
}

func TestSaveStats(t *testing.T) {
	ctx := context.Background()
	setupDBConn(ctx, t)

	t.Run("Snapshot is saved and read back", func(t *testing.T) {
		// given
		manager := jobsync.New(jobgraph.JobManagerDesc{})
		jc := jobgraph.NewJobContext(t.Name(), manager)
		for range 7 {
			jobgraph.NewJobFunc(func() {}, true, jc).Start()
		}

		// when
		snapshotID, err := jobstatsdb.SaveStats(ctx, t.Name(), manager)
		require.NoError(t, err)
		t.Cleanup(func() {
			db.Exec(ctx, `delete from jobgraph.stats_snapshot where id = $1`, snapshotID)
		})
		snapshot, err := jobstatsdb.GetSnapshot(ctx, snapshotID)

		// then
		require.NoError(t, err)
		assert.Equal(t, t.Name(), snapshot.Name)
		assert.Equal(t, int64(7), snapshot.NumJobsExecuted)
		require.Len(t, snapshot.Workers, 1)
		assert.Equal(t, int64(7), snapshot.Workers[0].NumJobsExecuted)
		assert.Equal(t, jobgraph.AnyCPU, snapshot.Workers[0].CPUID)
	})

	t.Run("Unknown snapshot", func(t *testing.T) {
		_, err := jobstatsdb.GetSnapshot(ctx, jobstatsdb.NewSnapshot("x", jobgraph.Stats{}, nil).ID)
		assert.True(t, jobstatsdb.IsNotFound(err))
	})

	t.Run("Recording saves snapshots and clears stats", func(t *testing.T) {
		// given
		manager := jobsync.New(jobgraph.JobManagerDesc{})
		jc := jobgraph.NewJobContext(t.Name(), manager)
		jobgraph.NewJobFunc(func() {}, true, jc).Start()
		t.Cleanup(func() {
			db.Exec(ctx, `delete from jobgraph.stats_snapshot where name = $1`, t.Name())
		})

		// when
		stop, err := jobstatsdb.StartRecording(ctx, t.Name(), manager, 20*time.Millisecond, true)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			snapshots, err := jobstatsdb.GetLatestSnapshots(ctx, t.Name(), 10)
			return err == nil && len(snapshots) >= 2
		}, 5*time.Second, 20*time.Millisecond)
		stop()
		stop()

		// then
		snapshots, err := jobstatsdb.GetLatestSnapshots(ctx, t.Name(), 100)
		require.NoError(t, err)
		oldest := snapshots[len(snapshots)-1]
		assert.Equal(t, int64(1), oldest.NumJobsExecuted)
		assert.Equal(t, int64(0), snapshots[0].NumJobsExecuted)
	})
}

// setupDBConn connects to the PostgreSQL database configured
// with the POSTGRES_* environment variables or skips the test.
func setupDBConn(ctx context.Context, t *testing.T) {
	t.Helper()
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		t.Skip("POSTGRES_HOST not set")
	}
	port, err := strconv.ParseUint(os.Getenv("POSTGRES_PORT"), 10, 16)
	if err != nil {
		port = 5432
	}
	conn := pqconn.MustNew(ctx, &sqldb.Config{
		Driver:   "postgres",
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     host,
		Port:     uint16(port),
		Database: os.Getenv("POSTGRES_DB"),
		Extra:    map[string]string{"sslmode": "disable"},
	})
	db.SetConn(conn)
	require.NoError(t, jobstatsdb.CreateSchema(ctx))
}
