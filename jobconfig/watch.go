package jobconfig

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/domonda/go-errs"
)

// Reconfigurable is implemented by managers that
// can change their settings while running,
// like *jobworker.Manager.
type Reconfigurable interface {
	SetMaxThreadCount(numWorkers int) error
	SetJobFilter(names ...string)
	SetJobSystemEnabled(enabled bool)
}

// Apply sets the worker count, the job filter and
// the job system enabled state of cfg at target.
// CPU affinity and priority of running workers are not changed.
func Apply(cfg *Config, target Reconfigurable) (err error) {
	defer errs.WrapWithFuncParams(&err, cfg, target)

	err = target.SetMaxThreadCount(cfg.NumWorkers())
	if err != nil {
		return err
	}
	target.SetJobFilter(cfg.JobFilter...)
	target.SetJobSystemEnabled(!cfg.JobSystemDisabled)
	return nil
}

var (
	// OnReload will be called after every reload
	// of a watched file with the error of loading
	// or applying the file.
	OnReload = func(filename string, err error) {}
)

// Watch reloads filename when it changes and applies it to target
// until ctx is canceled.
// The directory of the file is watched, so files replaced
// by editors or deployments are detected.
func Watch(ctx context.Context, filename string, target Reconfigurable) (err error) {
	defer errs.WrapWithFuncParams(&err, ctx, filename, target)

	filename, err = filepath.Abs(filename)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	err = watcher.Add(filepath.Dir(filename))
	if err != nil {
		watcher.Close()
		return err
	}

	log, ctx := log.With().
		Str("filename", filename).
		SubLoggerContext(ctx)

	log.Debug("Watching job manager config").Log()

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				log.Debug("Stopped watching job manager config").Log()
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filename {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				err := reload(filename, target)
				if err != nil {
					log.ErrorCtx(ctx, "Error while reloading job manager config").Err(err).Log()
				} else {
					log.Info("Reloaded job manager config").Log()
				}
				OnReload(filename, err)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.ErrorCtx(ctx, "Error while watching job manager config").Err(err).Log()
			}
		}
	}()

	return nil
}

func reload(filename string, target Reconfigurable) error {
	cfg, err := Load(filename)
	if err != nil {
		return err
	}
	return Apply(cfg, target)
}
