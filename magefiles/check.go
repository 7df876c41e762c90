//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Check mg.Namespace

// Runs go vet on all packages.
func (Check) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Verifies that go.mod and go.sum are tidy.
func (Check) Tidy() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return err
	}
	out, err := executeCmd("git", withArgs("status", "--porcelain", "go.mod", "go.sum"))
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("go.mod or go.sum not tidy:\n%s", out)
	}
	return nil
}

// Runs all checks and unit tests.
func (Check) All() {
	mg.SerialDeps(Check.Vet, Check.Tidy, Test.Unit)
}
