// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pdiddy/hepdata-builder/internal/classify"
	"github.com/pdiddy/hepdata-builder/internal/extract"
	"github.com/pdiddy/hepdata-builder/internal/record"
	"github.com/pdiddy/hepdata-builder/internal/rootjson"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// openContainer opens path, mapping a missing file to ErrContainerNotFound.
// The caller must close the returned file.
func openContainer(path string) (*rootjson.File, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrContainerNotFound)
	}
	return rootjson.Open(path)
}

// buildContainer runs the generic canvas path for one native container:
// every plot object on the canvas is extracted, filtered, and assembled
// into one Table against the first retained series' axis.
func (p *Pipeline) buildContainer(figure, path string) (*types.Table, error) {
	log := p.log().With("figure", figure)

	meta, err := p.lookupMetadata(figure)
	if err != nil {
		return nil, err
	}

	f, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	objs, err := f.Canvas(p.canvas())
	if err != nil {
		return nil, err
	}
	series := make([]types.Series, 0, len(objs))
	for _, obj := range objs {
		s, err := extract.FromObject(obj)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", obj.Name(), err)
		}
		if s.Empty() {
			log.Debug("skipping empty object", "object", obj.Name())
			continue
		}
		series = append(series, s)
	}

	res := p.Classifier.Filter(series)
	for _, ex := range res.Excluded {
		log.Info("series excluded", "series", ex.Name, "reason", ex.Reason)
	}

	axis, err := p.Classifier.SharedAxis(figure, res.Retained)
	if err != nil {
		return nil, err
	}
	for _, m := range axis.Mismatches {
		log.Warn("axis values differ between series", "detail", m)
	}

	deps := make([]record.Dependent, 0, len(res.Retained))
	for _, s := range res.Retained {
		deps = append(deps, record.Dependent{
			Name:   p.Classifier.Name(figure, s.Name),
			Units:  classify.DependentUnits(s.YTitle),
			Series: s,
		})
	}

	opts := p.Record
	opts.Logger = p.log()
	return record.Build(figure, meta, axis, deps, opts)
}
