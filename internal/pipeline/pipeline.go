// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a build: it discovers figure containers and prior
// records in the input directory, turns each into a Table, and appends the
// Tables to a Submission. Failures are contained per figure and tallied.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/hepdata-builder/internal/classify"
	"github.com/pdiddy/hepdata-builder/internal/ledger"
	"github.com/pdiddy/hepdata-builder/internal/logger"
	"github.com/pdiddy/hepdata-builder/internal/metadata"
	"github.com/pdiddy/hepdata-builder/internal/record"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// DefaultCanvas is the canvas looked up in native containers.
const DefaultCanvas = "c"

var (
	// ErrContainerNotFound reports a container path that does not exist.
	ErrContainerNotFound = errors.New("container not found")
	// ErrBuildPanic reports a figure whose build panicked.
	ErrBuildPanic = errors.New("figure build panicked")
)

// SourceKind tells how a discovered file is processed.
type SourceKind string

const (
	// SourceContainer is a native plot-object container.
	SourceContainer SourceKind = "container"
	// SourceRecord is a prior canonical record merged as is.
	SourceRecord SourceKind = "record"
)

// Source is one discovered input file.
type Source struct {
	Figure string
	Path   string
	Kind   SourceKind
}

// FigureError is a per-figure failure. It never aborts the batch.
type FigureError struct {
	Figure string
	Source string
	Err    error
}

func (e *FigureError) Error() string {
	return fmt.Sprintf("figure %s (%s): %v", e.Figure, e.Source, e.Err)
}

func (e *FigureError) Unwrap() error { return e.Err }

// BatchResult holds the outcome of a build run.
type BatchResult struct {
	Built   int
	Skipped int
	Failed  int
	Errors  []*FigureError
}

// Total returns the number of figures processed.
func (r BatchResult) Total() int {
	return r.Built + r.Skipped + r.Failed
}

// HasFailures reports whether any figure failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Recorder stores per-figure outcomes. It is satisfied by *ledger.Ledger.
type Recorder interface {
	RecordFigure(ctx context.Context, runID string, f ledger.Figure) error
}

// Pipeline holds everything a build run needs.
type Pipeline struct {
	InputDir   string
	ImageDir   string
	CanvasName string

	Classifier *classify.Classifier
	Metadata   *metadata.Table
	// AllowPlaceholder builds figures without metadata using placeholder
	// text instead of failing them.
	AllowPlaceholder bool
	// Record carries qualifiers, the image gate and the logger to the
	// assembler.
	Record record.Options
	// Keywords are applied to every table once all figures are processed.
	Keywords []types.Keyword
	Manifest *Manifest

	Recorder Recorder
	RunID    string
	Logger   logger.Logger
}

// FromConfig builds a Pipeline from cfg with defaults applied. imageUsable
// is the result of the run's single capability probe.
func FromConfig(cfg types.BuildConfig, meta *metadata.Table, imageUsable bool, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	rules := make([]classify.NameRule, 0, len(cfg.NameRules))
	for _, r := range cfg.NameRules {
		rules = append(rules, classify.NameRule{Figure: r.Figure, Contains: r.Contains, Excludes: r.Excludes, Label: r.Label})
	}
	overrides := make([]classify.AxisOverride, 0, len(cfg.AxisOverrides))
	for _, o := range cfg.AxisOverrides {
		overrides = append(overrides, classify.AxisOverride{Figure: o.Figure, Name: o.Name, Units: o.Units})
	}

	qualifiers := cfg.Qualifiers
	if len(qualifiers) == 0 {
		qualifiers = types.DefaultQualifiers()
	}
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = types.DefaultKeywords()
	}
	imageDir := cfg.ImageDir
	if imageDir == "" {
		imageDir = cfg.InputDir
	}

	return &Pipeline{
		InputDir:   cfg.InputDir,
		ImageDir:   imageDir,
		CanvasName: cfg.CanvasName,
		Classifier: classify.New(classify.Options{
			DedupSuffixes: cfg.DedupSuffixes,
			NameRules:     rules,
			AxisOverrides: overrides,
			StrictAxis:    cfg.StrictAxis,
		}),
		Metadata:         meta,
		AllowPlaceholder: cfg.AllowPlaceholderMetadata,
		Record: record.Options{
			Qualifiers:  qualifiers,
			ImageUsable: imageUsable,
			Logger:      log,
		},
		Keywords: keywords,
		Logger:   log,
	}
}

func (p *Pipeline) log() logger.Logger {
	if p.Logger == nil {
		return logger.Discard()
	}
	return p.Logger
}

func (p *Pipeline) canvas() string {
	if p.CanvasName == "" {
		return DefaultCanvas
	}
	return p.CanvasName
}

// Discover lists the containers and records directly under dir in
// lexicographic order. Other files and directories are ignored.
func Discover(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		var kind SourceKind
		switch ext {
		case ".json":
			kind = SourceContainer
		case ".yaml", ".yml":
			kind = SourceRecord
		default:
			continue
		}
		sources = append(sources, Source{
			Figure: strings.TrimSuffix(name, filepath.Ext(name)),
			Path:   filepath.Join(dir, name),
			Kind:   kind,
		})
	}
	sort.Slice(sources, func(i, j int) bool {
		return filepath.Base(sources[i].Path) < filepath.Base(sources[j].Path)
	})
	return sources, nil
}

// Run processes the manifest tables and then every discovered source,
// appending the resulting tables to sub and printing one status line per
// figure to w. Only an unreadable input directory or a cancelled ctx is
// returned as an error; the batch summary is printed either way.
func (p *Pipeline) Run(ctx context.Context, sub *types.Submission, w io.Writer) (BatchResult, error) {
	var result BatchResult
	claimed := make(map[string]bool)

	if p.Manifest != nil {
		for _, mt := range p.Manifest.Tables {
			if err := ctx.Err(); err != nil {
				return result, p.summarize(w, sub, result, err)
			}
			claimed[absPath(p.Manifest.resolve(mt.Container))] = true
			t, err := guard(func() (*types.Table, error) { return p.buildManifestTable(mt) })
			p.tally(ctx, &result, w, mt.Name, mt.Container, t, err, sub)
		}
	}

	sources, err := Discover(p.InputDir)
	if err != nil {
		return result, p.summarize(w, sub, result, err)
	}
	for _, src := range sources {
		if claimed[absPath(src.Path)] {
			p.log().Debug("container described by manifest", "path", src.Path)
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, p.summarize(w, sub, result, err)
		}
		t, err := guard(func() (*types.Table, error) { return p.buildSource(src) })
		p.tally(ctx, &result, w, src.Figure, src.Path, t, err, sub)
	}
	return result, p.summarize(w, sub, result, nil)
}

// summarize applies the keywords to the tables built so far and prints the
// batch summary. It returns err unchanged.
func (p *Pipeline) summarize(w io.Writer, sub *types.Submission, result BatchResult, err error) error {
	ApplyKeywords(sub, p.Keywords)
	fmt.Fprintf(w, "\nBatch summary: %d built, %d skipped, %d failed (total: %d)\n",
		result.Built, result.Skipped, result.Failed, result.Total())
	return err
}

// guard runs build, turning a panic into an error so that it stays within
// the figure being built.
func guard(build func() (*types.Table, error)) (t *types.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("%w: %v", ErrBuildPanic, r)
		}
	}()
	return build()
}

// tally records one figure outcome in result, on w, and in the ledger.
func (p *Pipeline) tally(ctx context.Context, result *BatchResult, w io.Writer, figure, source string, t *types.Table, err error, sub *types.Submission) {
	outcome := ledger.Figure{Name: figure, Source: source}
	switch {
	case err == nil:
		sub.AddTable(t)
		result.Built++
		outcome.Status = ledger.StatusSucceeded
		outcome.Tables = 1
		fmt.Fprintf(w, "built:   %s (%d dependent variables)\n", figure, len(t.Dependent))
	case errors.Is(err, record.ErrNoIndependent):
		result.Skipped++
		outcome.Status = ledger.StatusSkipped
		outcome.Error = err.Error()
		fmt.Fprintf(w, "skipped: %s (%v)\n", figure, err)
		p.log().Warn("figure skipped", "figure", figure, "error", err)
	default:
		fe := &FigureError{Figure: figure, Source: source, Err: err}
		result.Failed++
		result.Errors = append(result.Errors, fe)
		outcome.Status = ledger.StatusFailed
		outcome.Error = err.Error()
		fmt.Fprintf(w, "failed:  %s (%v)\n", figure, err)
		p.log().Error("figure failed", "figure", figure, "source", source, "error", err)
	}

	if p.Recorder != nil {
		if err := p.Recorder.RecordFigure(ctx, p.RunID, outcome); err != nil {
			p.log().Warn("recording figure outcome", "figure", figure, "error", err)
		}
	}
}

func (p *Pipeline) buildSource(src Source) (*types.Table, error) {
	switch src.Kind {
	case SourceContainer:
		return p.buildContainer(src.Figure, src.Path)
	case SourceRecord:
		return p.mergeRecord(src.Figure, src.Path)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// lookupMetadata resolves the figure entry and its default image path.
func (p *Pipeline) lookupMetadata(figure string) (metadata.Entry, error) {
	if p.Metadata == nil {
		return metadata.Entry{}, fmt.Errorf("figure %s: %w", figure, metadata.ErrMissingMetadata)
	}
	meta, err := p.Metadata.Lookup(figure, p.AllowPlaceholder)
	if err != nil {
		return metadata.Entry{}, err
	}
	switch {
	case meta.Image == "":
		meta.Image = filepath.Join(p.ImageDir, figure+".pdf")
	case !filepath.IsAbs(meta.Image):
		meta.Image = filepath.Join(p.ImageDir, meta.Image)
	}
	return meta, nil
}

func (p *Pipeline) mergeRecord(figure, path string) (*types.Table, error) {
	meta, err := p.lookupMetadata(figure)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	opts := p.Record
	opts.Logger = p.log()
	return record.Merge(data, figure, meta, opts)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ApplyKeywords sets every keyword on every table of sub, replacing values
// already present under the same name.
func ApplyKeywords(sub *types.Submission, keywords []types.Keyword) {
	for _, t := range sub.Tables {
		for _, k := range keywords {
			t.SetKeyword(k.Name, append([]string(nil), k.Values...))
		}
	}
}
