// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagetool probes for and drives the external image-conversion
// tool (ImageMagick convert) used to render figure images and thumbnails.
package imagetool

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	// DefaultBinary is the conversion executable looked up on PATH.
	DefaultBinary = "convert"
	// DefaultProbeTimeout bounds the capability probe.
	DefaultProbeTimeout = 5 * time.Second

	// ThumbnailGeometry is the bounding box of generated thumbnails.
	ThumbnailGeometry = "240x179"
)

// Capability is the tri-state outcome of a probe.
type Capability int

const (
	// Unknown means the probe failed for a reason other than a missing or
	// broken tool.
	Unknown Capability = iota
	// Available means the tool ran and exited zero.
	Available
	// Unavailable means the tool is missing, exited non-zero, or timed out.
	Unavailable
)

func (c Capability) String() string {
	switch c {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Usable is the boolean gate consumed by the record assembler.
func (c Capability) Usable() bool { return c == Available }

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Tool is a handle on the conversion executable.
type Tool struct {
	bin     string
	timeout time.Duration
	exec    executor
}

// New returns a Tool for bin. Empty bin and non-positive timeout select the
// defaults.
func New(bin string, timeout time.Duration) *Tool {
	return newTool(bin, timeout, &osExecutor{})
}

func newTool(bin string, timeout time.Duration, exec executor) *Tool {
	if bin == "" {
		bin = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Tool{bin: bin, timeout: timeout, exec: exec}
}

// Name returns the executable name.
func (t *Tool) Name() string { return t.bin }

// Probe runs "<bin> -version" within the probe timeout.
func (t *Tool) Probe(ctx context.Context) Capability {
	if _, err := t.exec.LookPath(t.bin); err != nil {
		return Unavailable
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := t.exec.Run(ctx, t.bin, "-version")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Available
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return Unavailable
	case errors.As(err, &exitErr), errors.Is(err, exec.ErrNotFound):
		return Unavailable
	default:
		return Unknown
	}
}

// Convert renders the first page of src into dst, trimmed and flattened.
func (t *Tool) Convert(ctx context.Context, src, dst string) error {
	args := []string{"-density", "300", src + "[0]", "-flatten", "-fuzz", "1%", "-trim", "+repage", dst}
	if err := t.exec.Run(ctx, t.bin, args...); err != nil {
		return fmt.Errorf("converting %s with %s: %w", src, t.bin, err)
	}
	return nil
}

// Thumbnail writes a small preview of src to dst.
func (t *Tool) Thumbnail(ctx context.Context, src, dst string) error {
	if err := t.exec.Run(ctx, t.bin, "-thumbnail", ThumbnailGeometry, src, dst); err != nil {
		return fmt.Errorf("thumbnailing %s with %s: %w", src, t.bin, err)
	}
	return nil
}
