//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target builds the battery binary.
var Default = Build

// Build compiles the battery binary into bin/.
func Build() error {
	return sh.RunV("go", "build", "-o", "bin/battery", "./cmd/battery")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs the unit tests with the race detector.
func Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Selftest builds and runs the battery against itself.
func Selftest() error {
	mg.Deps(Build)
	return sh.RunV("./bin/battery", "--require-sub-tests")
}

// Lint runs vet and gofmt checks.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("gofmt needed:\n%s", out)
	}
	return nil
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm("bin")
}
