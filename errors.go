package jobgraph

import (
	"github.com/domonda/go-errs"
)

const (
	ErrNotInitialized          errs.Sentinel = "job not initialized, call JobBase.Init first"
	ErrNoJobContext            errs.Sentinel = "job has no JobContext and no global JobContext is set"
	ErrAlreadyStarted          errs.Sentinel = "job already started"
	ErrDependentAfterStart     errs.Sentinel = "dependent registered after job started"
	ErrAutoDeleteAfterStart    errs.Sentinel = "auto-delete changed after job started"
	ErrJobReleased             errs.Sentinel = "job was auto-deleted and must not be used anymore"
	ErrNotRunning              errs.Sentinel = "job is not running"
	ErrNotQueued               errs.Sentinel = "job is not queued"
	ErrDeadlock                errs.Sentinel = "job can never complete, no more ready jobs"
	ErrGlobalContextAlreadySet errs.Sentinel = "global JobContext already set"
	ErrClosed                  errs.Sentinel = "job manager is closed"
	ErrInvalidDesc             errs.Sentinel = "invalid job manager descriptor"
)

var (
	// OnError will be called for every error that
	// would also be logged, including recovered panics
	// from job payloads.
	OnError = func(error) {}
)
