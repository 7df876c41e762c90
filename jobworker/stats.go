package jobworker

import (
	"time"

	"github.com/domonda/go-jobgraph"
)

// Stats returns the statistics since New or the last ClearStats.
func (m *Manager) Stats() jobgraph.Stats {
	workers := m.loadWorkers()
	stats := jobgraph.Stats{
		Workers:         make([]jobgraph.WorkerStats, len(workers)),
		NumAssistedJobs: m.numAssisted.Load(),
		NumFallbackJobs: m.numFallback.Load(),
		NumSuspensions:  m.numSuspensions.Load(),
		NumOutstanding:  m.outstanding.Load(),
		Since:           time.Unix(0, m.since.Load()),
	}
	for i, w := range workers {
		stats.Workers[i] = w.stats()
	}

	m.queueMtx.Lock()
	stats.NumQueued = m.queue.Len()
	m.queueMtx.Unlock()

	return stats
}

func (m *Manager) ClearStats() {
	for _, w := range m.loadWorkers() {
		w.clearStats()
	}
	m.numAssisted.Store(0)
	m.numFallback.Store(0)
	m.numSuspensions.Store(0)
	m.since.Store(time.Now().UnixNano())
}

// PrintStats logs the statistics with one message per worker.
func (m *Manager) PrintStats() {
	stats := m.Stats()
	elapsed := time.Since(stats.Since)

	log.Info("Job manager stats").
		Int("numWorkers", len(stats.Workers)).
		Int("numJobsExecuted", int(stats.NumJobsExecuted())).
		Int("numAssistedJobs", int(stats.NumAssistedJobs)).
		Int("numFallbackJobs", int(stats.NumFallbackJobs)).
		Int("numSuspensions", int(stats.NumSuspensions)).
		Int("numQueued", stats.NumQueued).
		Int("numOutstanding", int(stats.NumOutstanding)).
		Duration("elapsed", elapsed).
		Log()

	for _, w := range stats.Workers {
		var utilization float64
		if elapsed > 0 {
			utilization = float64(w.ExecutionTime) / float64(elapsed)
		}
		log.Info("Worker stats").
			Int("workerIndex", w.WorkerIndex).
			Int("cpuID", w.CPUID).
			Int("numJobsExecuted", int(w.NumJobsExecuted)).
			Duration("executionTime", w.ExecutionTime).
			Any("utilization", utilization).
			Log()
	}
}
