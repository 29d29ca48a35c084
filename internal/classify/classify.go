// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides which series of a figure become dependent
// variables, what they are called, and which independent axis they share.
// Filtering, naming and axis labelling are ordered rule tables evaluated
// first-match-wins.
package classify

import (
	"strings"

	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// Reason names why a series was excluded.
type Reason string

const (
	ReasonRatio     Reason = "ratio panel"
	ReasonDuplicate Reason = "duplicate"
)

// DefaultDedupSuffixes are the derivative markers stripped before duplicate
// detection.
var DefaultDedupSuffixes = []string{"_copy"}

// Candidate is a series under consideration together with its identifier
// after derivative suffixes are stripped.
type Candidate struct {
	Series types.Series
	Key    string
}

// FilterRule excludes a candidate when Match reports true. retained holds
// the keys of candidates kept so far.
type FilterRule struct {
	Reason Reason
	Match  func(c Candidate, retained map[string]bool) bool
}

// DefaultFilterRules returns the exclusion rules in priority order: ratio
// panels first, then duplicates of an already retained series.
func DefaultFilterRules() []FilterRule {
	return []FilterRule{
		{Reason: ReasonRatio, Match: isRatio},
		{Reason: ReasonDuplicate, Match: isDuplicate},
	}
}

func isRatio(c Candidate, _ map[string]bool) bool {
	return strings.Contains(strings.ToLower(c.Series.Name), "ratio") ||
		strings.Contains(c.Series.YTitle, "Data/MC")
}

func isDuplicate(c Candidate, retained map[string]bool) bool {
	return retained[c.Key]
}

// Exclusion records one dropped series.
type Exclusion struct {
	Name   string
	Reason Reason
}

// Result is the outcome of filtering one figure.
type Result struct {
	// Retained keeps the input enumeration order.
	Retained []types.Series
	Excluded []Exclusion
}

// Options configures a Classifier. Zero values select the built-in tables.
type Options struct {
	DedupSuffixes []string
	// NameRules are evaluated before the built-in naming rules.
	NameRules []NameRule
	// AxisOverrides are consulted before the built-in overrides.
	AxisOverrides []AxisOverride
	// StrictAxis fails figures whose series disagree on axis values.
	StrictAxis bool
}

// Classifier holds the rule tables for one run.
type Classifier struct {
	filters  []FilterRule
	suffixes []string
	names    []NameRule
	axes     []AxisOverride
	strict   bool
}

// New returns a Classifier with the built-in tables extended by opts.
func New(opts Options) *Classifier {
	suffixes := opts.DedupSuffixes
	if len(suffixes) == 0 {
		suffixes = DefaultDedupSuffixes
	}
	names := make([]NameRule, 0, len(opts.NameRules)+len(defaultNameRules))
	names = append(names, opts.NameRules...)
	names = append(names, defaultNameRules...)

	axes := make([]AxisOverride, 0, len(opts.AxisOverrides)+len(defaultAxisOverrides))
	axes = append(axes, opts.AxisOverrides...)
	axes = append(axes, defaultAxisOverrides...)

	return &Classifier{
		filters:  DefaultFilterRules(),
		suffixes: suffixes,
		names:    names,
		axes:     axes,
		strict:   opts.StrictAxis,
	}
}

// StripSuffixes removes trailing derivative suffixes from name until none
// applies.
func StripSuffixes(name string, suffixes []string) string {
	for {
		trimmed := name
		for _, s := range suffixes {
			if s != "" && strings.HasSuffix(trimmed, s) && len(trimmed) > len(s) {
				trimmed = strings.TrimSuffix(trimmed, s)
			}
		}
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}

// Filter applies the exclusion rules to series in enumeration order. The
// first retained series with a given stripped identifier wins.
func (c *Classifier) Filter(series []types.Series) Result {
	var res Result
	retained := make(map[string]bool)
	for _, s := range series {
		cand := Candidate{Series: s, Key: StripSuffixes(s.Name, c.suffixes)}
		excluded := false
		for _, rule := range c.filters {
			if rule.Match(cand, retained) {
				res.Excluded = append(res.Excluded, Exclusion{Name: s.Name, Reason: rule.Reason})
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		retained[cand.Key] = true
		res.Retained = append(res.Retained, s)
	}
	return res
}
