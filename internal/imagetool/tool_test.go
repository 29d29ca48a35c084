// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package imagetool

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool
	runFunc       func(ctx context.Context, name string, args ...string) error
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", exec.ErrNotFound
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) error {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	if m.runFunc != nil {
		return m.runFunc(ctx, name, args...)
	}
	return nil
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name string
		exec *mockExecutor
		want Capability
	}{
		{
			name: "tool answers",
			exec: &mockExecutor{availableBins: map[string]bool{"convert": true}},
			want: Available,
		},
		{
			name: "tool missing",
			exec: &mockExecutor{},
			want: Unavailable,
		},
		{
			name: "non-zero exit",
			exec: &mockExecutor{
				availableBins: map[string]bool{"convert": true},
				runFunc: func(context.Context, string, ...string) error {
					return &exec.ExitError{}
				},
			},
			want: Unavailable,
		},
		{
			name: "timeout",
			exec: &mockExecutor{
				availableBins: map[string]bool{"convert": true},
				runFunc: func(ctx context.Context, _ string, _ ...string) error {
					<-ctx.Done()
					return ctx.Err()
				},
			},
			want: Unavailable,
		},
		{
			name: "other failure",
			exec: &mockExecutor{
				availableBins: map[string]bool{"convert": true},
				runFunc: func(context.Context, string, ...string) error {
					return errors.New("permission denied")
				},
			},
			want: Unknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := newTool("", 20*time.Millisecond, tt.exec)
			got := tool.Probe(context.Background())
			if got != tt.want {
				t.Errorf("Probe() = %s, want %s", got, tt.want)
			}
			if got.Usable() != (tt.want == Available) {
				t.Errorf("Usable() = %v for %s", got.Usable(), got)
			}
		})
	}
}

func TestProbe_Arguments(t *testing.T) {
	m := &mockExecutor{availableBins: map[string]bool{"magick": true}}
	tool := newTool("magick", 0, m)
	tool.Probe(context.Background())

	if len(m.calls) != 1 || m.calls[0] != "magick -version" {
		t.Errorf("calls = %v, want [magick -version]", m.calls)
	}
	if tool.timeout != DefaultProbeTimeout {
		t.Errorf("timeout = %v, want %v", tool.timeout, DefaultProbeTimeout)
	}
}

func TestConvertAndThumbnail(t *testing.T) {
	m := &mockExecutor{}
	tool := newTool("", 0, m)

	if err := tool.Convert(context.Background(), "fig.pdf", "fig.png"); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := tool.Thumbnail(context.Background(), "fig.png", "thumb_fig.png"); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if !strings.Contains(m.calls[0], "fig.pdf[0]") || !strings.HasSuffix(m.calls[0], "fig.png") {
		t.Errorf("unexpected convert call %q", m.calls[0])
	}
	if m.calls[1] != "convert -thumbnail 240x179 fig.png thumb_fig.png" {
		t.Errorf("unexpected thumbnail call %q", m.calls[1])
	}

	m.runFunc = func(context.Context, string, ...string) error { return errors.New("boom") }
	err := tool.Convert(context.Background(), "fig.pdf", "fig.png")
	if err == nil || !strings.Contains(err.Error(), "fig.pdf") {
		t.Errorf("error should mention the source, got: %v", err)
	}
}

func TestCapabilityString(t *testing.T) {
	for c, want := range map[Capability]string{Available: "available", Unavailable: "unavailable", Unknown: "unknown"} {
		if c.String() != want {
			t.Errorf("%d.String() = %q, want %q", c, c.String(), want)
		}
	}
}
