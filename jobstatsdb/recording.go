package jobstatsdb

import (
	"context"
	"sync"
	"time"

	"github.com/domonda/go-errs"
)

// StartRecording saves a snapshot of the statistics of source
// every interval until ctx is canceled or stop is called.
// If clearStats is true the statistics of source are cleared
// after every saved snapshot, so snapshots don't overlap.
// stop waits for a snapshot that is being saved.
func StartRecording(ctx context.Context, name string, source StatsSource, interval time.Duration, clearStats bool) (stop func(), err error) {
	defer errs.WrapWithFuncParams(&err, ctx, name, source, interval, clearStats)

	if interval <= 0 {
		return nil, errs.Errorf("recording interval must be positive, got %s", interval)
	}
	if name == "" {
		return nil, errs.New("empty snapshot name")
	}

	log, ctx := log.With().
		Str("snapshotName", name).
		SubLoggerContext(ctx)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Debug("Started recording job stats").Duration("interval", interval).Log()

		for {
			select {
			case <-ticker.C:
				snapshotID, err := SaveStats(ctx, name, source)
				if err != nil {
					OnError(err)
					log.ErrorCtx(ctx, "Error while saving job stats").Err(err).Log()
					continue
				}
				if clearStats {
					source.ClearStats()
				}
				log.Debug("Saved job stats").UUID("snapshotID", snapshotID).Log()

			case <-ctx.Done():
				log.Debug("Stopped recording job stats").Log()
				return
			}
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
	return stop, nil
}
