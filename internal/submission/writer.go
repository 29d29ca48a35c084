// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package submission writes a Submission to disk: an index file, one data
// file per table, rendered figure images, and a gzipped tar archive of the
// files it wrote.
package submission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"github.com/otiai10/copy"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hepdata-builder/internal/logger"
	"github.com/pdiddy/hepdata-builder/internal/record"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

const (
	// IndexFile is the submission index written into the output directory.
	IndexFile = "submission.yaml"
	// DefaultArchive is the archive written next to the output directory.
	DefaultArchive = "submission.tar.gz"
)

// ImageError reports a failure to render or copy a table image. Callers
// recover from it by stripping images and writing again.
type ImageError struct {
	Table string
	Path  string
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s of table %q: %v", e.Path, e.Table, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ErrNoImageTool reports a table image with no converter configured.
var ErrNoImageTool = errors.New("no image tool configured")

// Converter renders images. It is satisfied by *imagetool.Tool.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
	Thumbnail(ctx context.Context, src, dst string) error
}

// Writer serializes submissions into Dir and bundles them into Archive.
type Writer struct {
	Dir     string
	Archive string
	Images  Converter
	Logger  logger.Logger

	// images are the image outputs of the last write, removed before a
	// retry without images.
	images []string
	// written are the files of the last write that belong in the archive.
	written []string
}

// Result lists what a successful write produced.
type Result struct {
	// Files are the files written into the output directory, sorted.
	// Other files already in the directory are left alone and not archived.
	Files   []string
	Archive string
}

type resource struct {
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
}

type indexHeader struct {
	Comment             string     `yaml:"comment"`
	AdditionalResources []resource `yaml:"additional_resources,omitempty"`
}

type indexTable struct {
	Name                string          `yaml:"name"`
	Description         string          `yaml:"description"`
	Location            string          `yaml:"location"`
	Keywords            []types.Keyword `yaml:"keywords"`
	DataFile            string          `yaml:"data_file"`
	AdditionalResources []resource      `yaml:"additional_resources,omitempty"`
}

// Write renders sub into w.Dir and then writes the archive. Image failures
// are returned as *ImageError; anything else is a plain error.
func (w *Writer) Write(ctx context.Context, sub *types.Submission) (Result, error) {
	log := w.Logger
	if log == nil {
		log = logger.Discard()
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}
	w.images, w.written = nil, nil

	docs := []any{indexHeader{Comment: sub.Abstract, AdditionalResources: links(sub.Links)}}
	used := make(map[string]bool)
	for _, t := range sub.Tables {
		dataFile := uniqueName(slug.Make(t.Name), used) + ".yaml"
		data, err := record.Encode(t)
		if err != nil {
			return Result{}, fmt.Errorf("table %q: %w", t.Name, err)
		}
		if err := os.WriteFile(filepath.Join(w.Dir, dataFile), data, 0o644); err != nil {
			return Result{}, fmt.Errorf("writing %s: %w", dataFile, err)
		}
		w.written = append(w.written, dataFile)

		entry := indexTable{
			Name:        t.Name,
			Description: t.Description,
			Location:    t.Location,
			Keywords:    t.Keywords,
			DataFile:    dataFile,
		}
		if t.Image != "" {
			res, err := w.renderImage(ctx, t)
			if err != nil {
				return Result{}, err
			}
			entry.AdditionalResources = res
		}
		docs = append(docs, entry)
		log.Debug("table written", "table", t.Name, "file", dataFile)
	}

	if err := writeIndex(filepath.Join(w.Dir, IndexFile), docs); err != nil {
		return Result{}, err
	}
	w.written = append(w.written, IndexFile)

	archive := w.Archive
	if archive == "" {
		archive = DefaultArchive
	}
	files := append([]string(nil), w.written...)
	slices.Sort(files)
	files = slices.Compact(files)
	if err := Archive(w.Dir, archive, files); err != nil {
		return Result{}, err
	}
	return Result{Files: files, Archive: archive}, nil
}

// renderImage copies the table image into the output directory and
// derives a PNG and a thumbnail from it.
func (w *Writer) renderImage(ctx context.Context, t *types.Table) ([]resource, error) {
	base := filepath.Base(t.Image)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	png := stem + ".png"
	thumb := "thumb_" + png

	fail := func(err error) error { return &ImageError{Table: t.Name, Path: t.Image, Err: err} }
	if w.Images == nil {
		return nil, fail(ErrNoImageTool)
	}

	w.images = append(w.images, png, thumb)
	if dst := filepath.Join(w.Dir, base); filepath.Clean(dst) != filepath.Clean(t.Image) {
		w.images = append(w.images, base)
		if err := copy.Copy(t.Image, dst); err != nil {
			return nil, fail(err)
		}
	}
	w.written = append(w.written, base)
	if err := w.Images.Convert(ctx, t.Image, filepath.Join(w.Dir, png)); err != nil {
		return nil, fail(err)
	}
	if err := w.Images.Thumbnail(ctx, filepath.Join(w.Dir, png), filepath.Join(w.Dir, thumb)); err != nil {
		return nil, fail(err)
	}
	w.written = append(w.written, png, thumb)
	return []resource{
		{Description: "Image file", Location: base},
		{Description: "Image file", Location: png},
		{Description: "Thumbnail image file", Location: thumb},
	}, nil
}

// WriteWithRetry writes sub and, when the failure is image-related, strips
// every image and writes once more. The second failure is returned as is.
func WriteWithRetry(ctx context.Context, w *Writer, sub *types.Submission) (Result, error) {
	res, err := w.Write(ctx, sub)
	var imgErr *ImageError
	if err == nil || !errors.As(err, &imgErr) {
		return res, err
	}
	log := w.Logger
	if log == nil {
		log = logger.Discard()
	}
	n := sub.StripImages()
	log.Warn("image step failed, writing without images", "error", err, "stripped", n)
	for _, name := range w.images {
		_ = os.Remove(filepath.Join(w.Dir, name))
	}
	res, err = w.Write(ctx, sub)
	if err != nil {
		return Result{}, fmt.Errorf("writing without images: %w", err)
	}
	return res, nil
}

func writeIndex(path string, docs []any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", IndexFile, err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			f.Close()
			return fmt.Errorf("encoding %s: %w", IndexFile, err)
		}
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", IndexFile, err)
	}
	return f.Close()
}

func links(ls []types.Link) []resource {
	out := make([]resource, 0, len(ls))
	for _, l := range ls {
		out = append(out, resource{Description: l.Description, Location: l.Location})
	}
	return out
}

func uniqueName(base string, used map[string]bool) string {
	if base == "" {
		base = "table"
	}
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	used[name] = true
	return name
}
