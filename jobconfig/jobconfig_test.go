package jobconfig_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domonda/go-jobgraph"
	"github.com/domonda/go-jobgraph/jobconfig"
	"github.com/domonda/go-jobgraph/jobsync"
	"github.com/domonda/go-jobgraph/jobworker"
)

func TestParse(t *testing.T) {
	t.Run("Full file", func(t *testing.T) {
		// given
		data := []byte(`
asynchronous = true
num_worker_threads = 3
shutdown_policy = "discard"
job_filter = ["LoadLevel", "Physics"]

[[worker_threads]]
cpu_id = 0
priority = 5

[[worker_threads]]
stack_size_bytes = 65536
`)

		// when
		cfg, err := jobconfig.Parse(data)

		// then
		require.NoError(t, err)
		assert.True(t, cfg.Asynchronous)
		assert.Equal(t, 3, cfg.NumWorkers())
		assert.Equal(t, jobgraph.ShutdownDiscard, cfg.ShutdownPolicy)
		assert.Equal(t, []string{"LoadLevel", "Physics"}, cfg.JobFilter)
		require.Len(t, cfg.WorkerThreads, 2)
		assert.Equal(t, jobgraph.WorkerThreadDesc{CPUID: 0, Priority: 5}, cfg.WorkerThreads[0].Desc())
		assert.Equal(t, jobgraph.WorkerThreadDesc{CPUID: jobgraph.AnyCPU, StackSizeBytes: 65536}, cfg.WorkerThreads[1].Desc())

		// when
		desc, err := cfg.ManagerDesc()

		// then
		require.NoError(t, err)
		require.Len(t, desc.WorkerThreads, 3)
		assert.Equal(t, 0, desc.WorkerThreads[0].CPUID)
		assert.Equal(t, jobgraph.AnyCPU, desc.WorkerThreads[2].CPUID)
		assert.Equal(t, jobgraph.ShutdownDiscard, desc.ShutdownPolicy)
		assert.Equal(t, cfg.JobFilter, desc.JobFilter)
	})

	t.Run("Empty file uses defaults", func(t *testing.T) {
		// when
		cfg, err := jobconfig.Parse(nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, jobconfig.Default(), *cfg)
		assert.Equal(t, max(runtime.NumCPU()-1, 1), cfg.NumWorkers())
	})

	t.Run("Invalid files", func(t *testing.T) {
		for name, data := range map[string]string{
			"unknown key":        `workers = 4`,
			"unknown policy":     `shutdown_policy = "panic"`,
			"negative count":     `num_worker_threads = -1`,
			"syntax error":       `asynchronous = `,
			"wrong type":         `asynchronous = "yes"`,
			"unknown worker key": "[[worker_threads]]\naffinity = 1",
		} {
			t.Run(name, func(t *testing.T) {
				cfg, err := jobconfig.Parse([]byte(data))
				assert.Error(t, err)
				assert.Nil(t, cfg)
			})
		}
	})

	t.Run("CPU out of range fails ManagerDesc", func(t *testing.T) {
		// given
		cfg := jobconfig.Default()
		cpu := runtime.NumCPU()
		cfg.WorkerThreads = []jobconfig.WorkerThread{{CPUID: &cpu}}

		// when
		_, err := cfg.ManagerDesc()

		// then
		assert.ErrorIs(t, err, jobgraph.ErrInvalidDesc)
	})

	t.Run("Marshalled config parses to the same config", func(t *testing.T) {
		// given
		cpu := 0
		cfg := jobconfig.Default()
		cfg.NumWorkerThreads = 2
		cfg.JobFilter = []string{"A"}
		cfg.WorkerThreads = []jobconfig.WorkerThread{{CPUID: &cpu}, {Priority: 1}}

		// when
		data, err := cfg.Marshal()
		require.NoError(t, err)
		parsed, err := jobconfig.Parse(data)

		// then
		require.NoError(t, err)
		assert.Equal(t, cfg, *parsed)
	})
}

func TestLoad(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := jobconfig.Load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("File", func(t *testing.T) {
		// given
		filename := filepath.Join(t.TempDir(), "jobs.toml")
		require.NoError(t, os.WriteFile(filename, []byte("asynchronous = false\n"), 0o600))

		// when
		cfg, err := jobconfig.Load(filename)

		// then
		require.NoError(t, err)
		assert.False(t, cfg.Asynchronous)
	})
}

func TestNewManager(t *testing.T) {
	t.Run("Synchronous", func(t *testing.T) {
		// given
		cfg := jobconfig.Default()
		cfg.Asynchronous = false

		// when
		manager, err := jobconfig.NewManager(&cfg)

		// then
		require.NoError(t, err)
		t.Cleanup(func() { manager.Close() })
		assert.IsType(t, &jobsync.Manager{}, manager)
		assert.False(t, manager.IsAsynchronous())
	})

	t.Run("Asynchronous", func(t *testing.T) {
		if runtime.NumCPU() == 1 {
			t.Skip("needs more than one CPU")
		}
		// given
		cfg := jobconfig.Default()
		cfg.NumWorkerThreads = 2
		cfg.JobSystemDisabled = true

		// when
		manager, err := jobconfig.NewManager(&cfg)

		// then
		require.NoError(t, err)
		t.Cleanup(func() { manager.Close() })
		require.IsType(t, &jobworker.Manager{}, manager)
		assert.Equal(t, 2, manager.NumWorkerThreads())
		assert.False(t, manager.(*jobworker.Manager).JobSystemEnabled())
	})
}

type fakeTarget struct {
	mtx        sync.Mutex
	numWorkers int
	filter     []string
	enabled    bool
}

func (f *fakeTarget) SetMaxThreadCount(numWorkers int) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.numWorkers = numWorkers
	return nil
}

func (f *fakeTarget) SetJobFilter(names ...string) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.filter = names
}

func (f *fakeTarget) SetJobSystemEnabled(enabled bool) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.enabled = enabled
}

func (f *fakeTarget) get() (int, []string, bool) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.numWorkers, f.filter, f.enabled
}

func TestWatch(t *testing.T) {
	// given
	filename := filepath.Join(t.TempDir(), "jobs.toml")
	require.NoError(t, os.WriteFile(filename, []byte("num_worker_threads = 2\n"), 0o600))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	target := &fakeTarget{}

	// when
	err := jobconfig.Watch(ctx, filename, target)
	require.NoError(t, err)
	err = os.WriteFile(filename, []byte("num_worker_threads = 5\njob_filter = [\"A\"]\n"), 0o600)
	require.NoError(t, err)

	// then
	assert.Eventually(t, func() bool {
		numWorkers, filter, enabled := target.get()
		return numWorkers == 5 && len(filter) == 1 && filter[0] == "A" && enabled
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApply(t *testing.T) {
	if runtime.NumCPU() == 1 {
		t.Skip("needs more than one CPU")
	}
	// given
	manager, err := jobworker.New(jobgraph.NewJobManagerDesc(1))
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	cfg := jobconfig.Default()
	cfg.NumWorkerThreads = 3
	cfg.JobFilter = []string{"B"}
	cfg.JobSystemDisabled = true

	// when
	err = jobconfig.Apply(&cfg, manager)

	// then
	require.NoError(t, err)
	assert.Equal(t, 3, manager.NumWorkerThreads())
	assert.Equal(t, []string{"B"}, manager.JobFilter())
	assert.False(t, manager.JobSystemEnabled())
}
