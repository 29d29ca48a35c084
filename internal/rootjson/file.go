// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rootjson reads figure containers stored as ROOT TBufferJSON
// dumps: a JSON document whose top-level keys are object names (optionally
// with a ";cycle" suffix) and whose values are the serialized objects.
// Decoded objects satisfy the read interfaces of package extract.
package rootjson

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/hepdata-builder/internal/extract"
)

var (
	// ErrCorrupt reports a container that is not a JSON object, or an
	// object whose arrays or counts are inconsistent.
	ErrCorrupt = errors.New("corrupt container")
	// ErrObjectNotFound reports a key missing from the container.
	ErrObjectNotFound = errors.New("object not found")
	// ErrUnsupported reports an object whose type cannot be read.
	ErrUnsupported = errors.New("unsupported object type")
	// ErrClosed reports use of a closed container.
	ErrClosed = errors.New("container closed")
)

// File is an open container. It must be closed after use.
type File struct {
	path string
	root gjson.Result
	keys []string
	open bool
}

// Open reads and validates the container at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: %w: invalid JSON", path, ErrCorrupt)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%s: %w: top level is not an object", path, ErrCorrupt)
	}

	f := &File{path: path, root: root, open: true}
	root.ForEach(func(key, _ gjson.Result) bool {
		f.keys = append(f.keys, key.String())
		return true
	})
	return f, nil
}

// Path returns the file the container was read from.
func (f *File) Path() string { return f.path }

// Close releases the parsed document. Closing twice is a no-op.
func (f *File) Close() error {
	f.root = gjson.Result{}
	f.keys = nil
	f.open = false
	return nil
}

// Keys returns the top-level keys in document order.
func (f *File) Keys() []string {
	return append([]string(nil), f.keys...)
}

// lookup resolves name to a stored key. An exact match wins; a name
// without a cycle selects the highest cycle stored under that name.
func (f *File) lookup(name string) (gjson.Result, error) {
	if !f.open {
		return gjson.Result{}, ErrClosed
	}
	best, bestCycle := "", -1
	for _, k := range f.keys {
		if k == name {
			best = k
			break
		}
		base, cycle := splitCycle(k)
		if base == name && cycle > bestCycle {
			best, bestCycle = k, cycle
		}
	}
	if best == "" {
		return gjson.Result{}, fmt.Errorf("%s in %s: %w", name, f.path, ErrObjectNotFound)
	}

	var found gjson.Result
	f.root.ForEach(func(key, value gjson.Result) bool {
		if key.String() == best {
			found = value
			return false
		}
		return true
	})
	return found, nil
}

// splitCycle splits "name;3" into ("name", 3). Keys without a numeric
// cycle return cycle 0.
func splitCycle(key string) (string, int) {
	i := strings.LastIndexByte(key, ';')
	if i < 0 {
		return key, 0
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return key, 0
	}
	return key[:i], n
}

// Object decodes the named plot object.
func (f *File) Object(name string) (extract.Object, error) {
	r, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	obj, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", name, f.path, err)
	}
	return obj, nil
}

// Canvas decodes the named canvas and returns every plot object drawn on it
// or on its sub-pads, in drawing order.
func (f *File) Canvas(name string) ([]extract.Object, error) {
	r, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	if !isPad(typeName(r)) {
		return nil, fmt.Errorf("%s in %s is a %s: %w", name, f.path, typeName(r), ErrUnsupported)
	}
	var objs []extract.Object
	if err := collect(r, &objs); err != nil {
		return nil, fmt.Errorf("%s in %s: %w", name, f.path, err)
	}
	return objs, nil
}

// collect walks a pad's primitive list depth first. Primitives of other
// types are skipped; a corrupt plot object stops the walk.
func collect(pad gjson.Result, out *[]extract.Object) error {
	var err error
	pad.Get("fPrimitives.arr").ForEach(func(_, prim gjson.Result) bool {
		tn := typeName(prim)
		switch {
		case isPad(tn):
			err = collect(prim, out)
		case isFrameHistogram(prim):
			// axis frame only
		default:
			obj, derr := decode(prim)
			switch {
			case derr == nil:
				*out = append(*out, obj)
			case !errors.Is(derr, ErrUnsupported):
				err = derr
			}
		}
		return err == nil
	})
	return err
}

func typeName(r gjson.Result) string {
	return r.Get("_typename").String()
}

func isPad(tn string) bool {
	return tn == "TCanvas" || tn == "TPad"
}

// isFrameHistogram matches the empty axis histogram ROOT draws behind
// graphs and multigraphs.
func isFrameHistogram(r gjson.Result) bool {
	return strings.HasPrefix(typeName(r), "TH1") && r.Get("fName").String() == "hframe"
}

// decode builds the extract variant matching the object's type.
func decode(r gjson.Result) (extract.Object, error) {
	var (
		obj extract.Object
		err error
	)
	switch tn := typeName(r); {
	case tn == "TEfficiency":
		obj, err = newEfficiency(r)
	case strings.HasPrefix(tn, "TH1"):
		obj, err = newHistogram(r)
	case tn == "TGraph" || tn == "TGraphErrors" || tn == "TGraphAsymmErrors":
		obj, err = newGraph(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, tn)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// maxCells bounds the length of any decoded array.
const maxCells = 1 << 24

// floats reads a numeric array in either plain form or TBufferJSON's
// compressed {"$arr": ..., "len": n, "v": [...], "p": offset} form. A
// missing array yields nil.
func floats(r gjson.Result) ([]float64, error) {
	if r.IsArray() {
		items := r.Array()
		if len(items) > maxCells {
			return nil, fmt.Errorf("%w: array of %d values", ErrCorrupt, len(items))
		}
		out := make([]float64, len(items))
		for i, v := range items {
			out[i] = v.Float()
		}
		return out, nil
	}
	if !r.IsObject() || !r.Get("$arr").Exists() {
		return nil, nil
	}
	n, p := r.Get("len").Int(), r.Get("p").Int()
	if n < 0 || n > maxCells {
		return nil, fmt.Errorf("%w: array length %d", ErrCorrupt, n)
	}
	if p < 0 || p > n {
		return nil, fmt.Errorf("%w: array offset %d outside length %d", ErrCorrupt, p, n)
	}
	out := make([]float64, n)
	v := r.Get("v")
	if v.IsArray() {
		for i, x := range v.Array() {
			if int(p)+i < len(out) {
				out[int(p)+i] = x.Float()
			}
		}
	} else if v.Exists() {
		// A scalar v repeats for the whole array.
		for i := int(p); i < len(out); i++ {
			out[i] = v.Float()
		}
	}
	return out, nil
}
