/*
Package jobstatsdb stores snapshots of job manager statistics in PostgreSQL.

The connection is the one of github.com/domonda/go-sqldb/db:

	db.SetConn(pqconn.MustNew(ctx, config))

	err := jobstatsdb.CreateSchema(ctx)
	if err != nil {
		return err
	}

	stop, err := jobstatsdb.StartRecording(ctx, "frame-jobs", manager, time.Minute, true)
	if err != nil {
		return err
	}
	defer stop()

Every snapshot gets a row in jobgraph.stats_snapshot
and one row per worker in jobgraph.worker_stats.
*/
package jobstatsdb
