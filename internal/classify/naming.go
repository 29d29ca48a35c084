// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// NameRule assigns Label to identifiers containing every Contains substring
// and none of the Excludes substrings. A non-empty Figure restricts the rule
// to that figure.
type NameRule struct {
	Figure   string
	Contains []string
	Excludes []string
	Label    string
}

// Match reports whether the rule applies to id within figure.
func (r NameRule) Match(figure, id string) bool {
	if r.Figure != "" && r.Figure != figure {
		return false
	}
	for _, s := range r.Contains {
		if !strings.Contains(id, s) {
			return false
		}
	}
	for _, s := range r.Excludes {
		if strings.Contains(id, s) {
			return false
		}
	}
	return true
}

const (
	run2Events     = "Run 2 (2018) observed events"
	l3Efficiency   = "Run 3 (2022, L3) trigger efficiency"
	l2Efficiency   = "Run 3 (2022, L2) trigger efficiency"
	dTksEfficiency = "Run 3 (2022, L3 dTks) trigger efficiency"
)

// defaultNameRules lists figure-specific rules ahead of generic ones.
var defaultNameRules = []NameRule{
	{Figure: "Figure42c", Contains: []string{"MuonRun3HLTRun2"}, Label: run2Events},
	{Figure: "Figure42c", Contains: []string{"DisplacedL3"}, Excludes: []string{"dTks"}, Label: "Run 3 (2022, L3) observed events"},
	{Figure: "Figure42c", Contains: []string{"dTks"}, Label: "Run 3 (2022, L3 dTks) observed events"},
	{Figure: "Figure43b", Contains: []string{"MuonRun3HLTRun2"}, Label: run2Events},
	{Figure: "Figure43b", Contains: []string{"L3VetoOR"}, Label: "Run 3 (2022, L2) observed events"},
	{Figure: "Figure42a", Contains: []string{"HData2022"}, Label: l3Efficiency + " - 2022 data"},
	{Figure: "Figure42a", Contains: []string{"2023"}, Label: l3Efficiency + " - 2023 data"},

	{Contains: []string{"dTks"}, Label: dTksEfficiency},
	{Contains: []string{"DisplacedL3", "Muon"}, Label: l3Efficiency},
	{Contains: []string{"DisplacedL3", "JetMET", "2022"}, Label: l3Efficiency + " - 2022 data"},
	{Contains: []string{"DisplacedL3", "JetMET", "2023"}, Label: l3Efficiency + " - 2023 data"},
	{Contains: []string{"DisplacedL3", "JetMET"}, Label: l3Efficiency},
	{Contains: []string{"BtoJPsi"}, Label: l3Efficiency + " - simulation"},
	{Contains: []string{"COSMI", "2022"}, Label: l2Efficiency + " - 2022 data"},
	{Contains: []string{"COSMI", "2023"}, Label: l2Efficiency + " - 2023 data"},
	{Contains: []string{"COSMI"}, Label: l2Efficiency},
	{Contains: []string{"ratio"}, Label: "Data/MC ratio"},
}

// Name returns the display name of the series id in figure. Identifiers no
// rule matches get a generated name embedding the identifier.
func (c *Classifier) Name(figure, id string) string {
	for _, r := range c.names {
		if r.Match(figure, id) {
			return r.Label
		}
	}
	return fmt.Sprintf("Efficiency (%s)", id)
}

// AxisOverride fixes the independent axis name and units of one figure.
type AxisOverride struct {
	Figure string
	Name   string
	Units  string
}

var defaultAxisOverrides = []AxisOverride{
	{Figure: "Figure41a", Name: "min($p_T$)", Units: "GeV"},
	{Figure: "Figure41b", Name: "max($p_T$)", Units: "GeV"},
	{Figure: "Figure41c", Name: "min($d_0$)", Units: "cm"},
	{Figure: "Figure42a", Name: "min($d_0$)", Units: "cm"},
	{Figure: "Figure42b", Name: "min($d_0$)", Units: "cm"},
	{Figure: "Figure42c", Name: "$m_{\\mu\\mu}$", Units: "GeV"},
	{Figure: "Figure43a", Name: "min($d_0$)", Units: "cm"},
	{Figure: "Figure43b", Name: "$m_{\\mu\\mu}$", Units: "GeV"},
}

var bracketUnit = regexp.MustCompile(`^(.*?)\s*\[([^\[\]]*)\]\s*$`)

// SplitUnits separates a trailing bracketed unit from an axis title:
// "p_{T} [GeV]" gives ("p_{T}", "GeV"). Titles without one are returned
// trimmed with empty units.
func SplitUnits(title string) (name, units string) {
	title = strings.TrimSpace(title)
	if m := bracketUnit.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return title, ""
}

// AxisLabel resolves the independent axis name and units for figure from
// the override table, then from the raw title.
func (c *Classifier) AxisLabel(figure, title string) (name, units string) {
	for _, o := range c.axes {
		if o.Figure == figure {
			return o.Name, o.Units
		}
	}
	name, units = SplitUnits(title)
	if name == "" {
		name = "Variable"
	}
	return name, units
}

// DependentUnits returns the units of a dependent variable with the given
// y-axis title. Efficiencies and ratios are dimensionless.
func DependentUnits(yTitle string) string {
	lower := strings.ToLower(yTitle)
	if strings.Contains(lower, "efficiency") || strings.Contains(lower, "ratio") || strings.Contains(yTitle, "Data/MC") {
		return ""
	}
	_, units := SplitUnits(yTitle)
	return units
}
