//go:build !linux

package jobworker

import (
	"github.com/domonda/go-jobgraph"
)

func applyWorkerThreadDesc(desc jobgraph.WorkerThreadDesc) error {
	log.Warn("CPU affinity and thread priority not supported on this OS").
		Str("desc", desc.String()).
		Log()
	return nil
}
