package jobconfig

import (
	"bytes"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/domonda/go-errs"

	"github.com/domonda/go-jobgraph"
	"github.com/domonda/go-jobgraph/jobsync"
	"github.com/domonda/go-jobgraph/jobworker"
)

// WorkerThread is a [[worker_threads]] table.
type WorkerThread struct {
	// CPUID is nil for workers that are not pinned
	CPUID          *int `toml:"cpu_id,omitempty"`
	Priority       int  `toml:"priority"`
	StackSizeBytes int  `toml:"stack_size_bytes"`
}

// Desc returns the WorkerThreadDesc of w.
func (w WorkerThread) Desc() jobgraph.WorkerThreadDesc {
	desc := jobgraph.WorkerThreadDesc{
		CPUID:          jobgraph.AnyCPU,
		Priority:       w.Priority,
		StackSizeBytes: w.StackSizeBytes,
	}
	if w.CPUID != nil {
		desc.CPUID = *w.CPUID
	}
	return desc
}

type Config struct {
	// Asynchronous false selects the synchronous manager
	// of package jobsync.
	Asynchronous      bool                    `toml:"asynchronous"`
	JobSystemDisabled bool                    `toml:"job_system_disabled"`
	NumWorkerThreads  int                     `toml:"num_worker_threads"`
	WorkerThreads     []WorkerThread          `toml:"worker_threads"`
	ShutdownPolicy    jobgraph.ShutdownPolicy `toml:"shutdown_policy"`
	JobFilter         []string                `toml:"job_filter"`
}

// Default returns the configuration used for keys
// missing in a file.
func Default() Config {
	return Config{
		Asynchronous:   true,
		ShutdownPolicy: jobgraph.ShutdownDrain,
	}
}

// Load reads and parses a TOML file.
func Load(filename string) (cfg *Config, err error) {
	defer errs.WrapWithFuncParams(&err, filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses TOML data on top of Default.
// Unknown keys are an error.
func Parse(data []byte) (cfg *Config, err error) {
	defer errs.WrapWithFuncParams(&err, data)

	parsed := Default()
	err = toml.NewDecoder(bytes.NewReader(data)).
		DisallowUnknownFields().
		Decode(&parsed)
	if err != nil {
		return nil, err
	}
	if parsed.NumWorkerThreads < 0 {
		return nil, errs.Errorf("%w: negative num_worker_threads %d", jobgraph.ErrInvalidDesc, parsed.NumWorkerThreads)
	}
	return &parsed, nil
}

// NumWorkers returns the number of workers
// a Manager created from the Config starts.
func (c *Config) NumWorkers() int {
	n := max(c.NumWorkerThreads, len(c.WorkerThreads))
	if n == 0 {
		n = max(runtime.NumCPU()-1, 1)
	}
	return n
}

// ManagerDesc returns the validated descriptor of the Config.
func (c *Config) ManagerDesc() (desc jobgraph.JobManagerDesc, err error) {
	desc = jobgraph.NewJobManagerDesc(c.NumWorkers())
	for i, w := range c.WorkerThreads {
		desc.WorkerThreads[i] = w.Desc()
	}
	desc.ShutdownPolicy = c.ShutdownPolicy
	desc.JobFilter = append([]string(nil), c.JobFilter...)

	err = desc.Validate(runtime.NumCPU())
	if err != nil {
		return jobgraph.JobManagerDesc{}, err
	}
	return desc, nil
}

// Marshal returns the Config as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// NewManager creates the Manager described by cfg.
// The synchronous manager is used if cfg is not Asynchronous
// or there is only one CPU.
func NewManager(cfg *Config) (m jobgraph.Manager, err error) {
	defer errs.WrapWithFuncParams(&err, cfg)

	desc, err := cfg.ManagerDesc()
	if err != nil {
		return nil, err
	}

	if !cfg.Asynchronous || runtime.NumCPU() == 1 {
		log.Info("Using synchronous job manager").
			Any("asynchronous", cfg.Asynchronous).
			Int("numCPU", runtime.NumCPU()).
			Log()
		return jobsync.New(desc), nil
	}

	manager, err := jobworker.New(desc)
	if err != nil {
		return nil, err
	}
	if cfg.JobSystemDisabled {
		manager.SetJobSystemEnabled(false)
	}
	return manager, nil
}
