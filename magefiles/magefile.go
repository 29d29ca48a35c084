//go:build mage

// Package main contains Mage build targets for hepdata-builder developer tooling.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories a build expects.
var projectDirs = []string{
	"data",
	"hepdata_output",
}

// Init creates the project directory structure for a build.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "hepdata-builder"
	cmdPkg  = "./cmd/hepdata-builder"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs every package test.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Stats prints non-blank Go lines per package and the figure inputs and
// data files currently in the project directories.
func Stats() error {
	prod, test := map[string]int{}, map[string]int{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return skipDir(path)
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, "_test.go") {
			test[filepath.Dir(path)] += n
		} else {
			prod[filepath.Dir(path)] += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	pkgs := make([]string, 0, len(prod))
	for pkg := range prod {
		pkgs = append(pkgs, pkg)
	}
	slices.Sort(pkgs)
	fmt.Printf("%-28s %6s %6s\n", "package", "code", "tests")
	for _, pkg := range pkgs {
		fmt.Printf("%-28s %6d %6d\n", pkg, prod[pkg], test[pkg])
	}

	fmt.Println()
	for _, c := range []struct{ dir, label string; exts []string }{
		{"data", "containers", []string{".json"}},
		{"data", "prior records", []string{".yaml", ".yml"}},
		{"hepdata_output", "output files", []string{".yaml"}},
	} {
		fmt.Printf("%-15s %-14s %d\n", c.dir, c.label, countFiles(c.dir, c.exts))
	}
	return nil
}

// skipDir skips reference and hidden directories below the root.
func skipDir(path string) error {
	base := filepath.Base(path)
	if path != "." && (strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".")) {
		return filepath.SkipDir
	}
	return nil
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n, nil
}

// countFiles counts the files directly under dir with one of exts. A
// missing dir counts zero.
func countFiles(dir string, exts []string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && slices.Contains(exts, strings.ToLower(filepath.Ext(e.Name()))) {
			n++
		}
	}
	return n
}
