//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and runs a full build over data/ into hepdata_output/.
func Convert() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "build", "--input-dir", "data", "--output-dir", "hepdata_output")
}

// Probe reports whether the image tool is usable on this machine.
func Probe() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "probe")
}

// Clean removes the binary, the output directory and the archive.
func Clean() error {
	for _, path := range []string{binDir, "hepdata_output", "submission.tar.gz"} {
		if err := sh.Rm(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}
