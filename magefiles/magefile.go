//go:build mage

// Package main provides build targets for the grocery project using Mage.
//
// Usage:
//
//	mage build        Compile the grocery binary to bin/
//	mage test:all     Run all tests
//	mage test:unit    Run tests without the race detector
//	mage test:race    Run tests with the race detector
//	mage test:cover   Write a coverage profile to bin/coverage.out
//	mage lint         Run golangci-lint
//	mage clean        Remove build artifacts
//	mage install      Install grocery to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "grocery"
	binaryDir  = "bin"
	cmdDir     = "./cmd/grocery"
	modulePath = "github.com/mesh-intelligence/grocery"
)

// ldflags stamps the version from GROCERY_VERSION when set.
func ldflags() string {
	version := os.Getenv("GROCERY_VERSION")
	if version == "" {
		return ""
	}
	return "-X " + modulePath + "/internal/cli.Version=" + version
}

// Build compiles the grocery binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if flags := ldflags(); flags != "" {
		args = append(args, "-ldflags", flags)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
