//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs all tests that don't need a database.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-count=1", "./..."), withEnv("POSTGRES_HOST", ""), withStream())
	return err
}

// Runs all tests with the race detector.
// Set POSTGRES_HOST and friends to include the jobstatsdb tests.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the job graph benchmarks of the synchronous and the worker backend.
func (Test) Bench() error {
	_, err := executeCmd("go", withArgs("test", "-run=^$", "-bench=.", "-benchmem", "./jobsync/...", "./jobworker/..."), withStream())
	return err
}
