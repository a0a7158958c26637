// Package prefs resolves the per-user appearance preferences: a strict
// {accent, density, radius} triple merged from the profile row, a local cache
// and built-in defaults.
package prefs

import (
	"encoding/json"
	"fmt"

	"github.com/tsheet/timesheet/internal/faults"
)

type Accent string

const (
	AccentBlue    Accent = "blue"
	AccentIndigo  Accent = "indigo"
	AccentEmerald Accent = "emerald"
	AccentRose    Accent = "rose"
	AccentSlate   Accent = "slate"
)

type Density string

const (
	DensityComfortable Density = "comfortable"
	DensityCompact     Density = "compact"
)

type Radius string

const (
	RadiusMD Radius = "md"
	RadiusLG Radius = "lg"
	RadiusXL Radius = "xl"
)

var (
	accents   = []Accent{AccentBlue, AccentIndigo, AccentEmerald, AccentRose, AccentSlate}
	densities = []Density{DensityComfortable, DensityCompact}
	radii     = []Radius{RadiusMD, RadiusLG, RadiusXL}
)

// Preferences is the effective, always-valid preference triple.
type Preferences struct {
	Accent  Accent  `json:"accent"`
	Density Density `json:"density"`
	Radius  Radius  `json:"radius"`
}

func Defaults() Preferences {
	return Preferences{
		Accent:  AccentBlue,
		Density: DensityComfortable,
		Radius:  RadiusLG,
	}
}

func Accents() []Accent      { return append([]Accent(nil), accents...) }
func Densities() []Density   { return append([]Density(nil), densities...) }
func RadiusTokens() []Radius { return append([]Radius(nil), radii...) }

func ParseAccent(s string) (Accent, bool) {
	for _, a := range accents {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

func ParseDensity(s string) (Density, bool) {
	for _, d := range densities {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

func ParseRadius(s string) (Radius, bool) {
	for _, r := range radii {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

func (p Preferences) IsDefault() bool {
	return p == Defaults()
}

// Validate is the strict check used on writes. Reads go through Normalize.
func (p Preferences) Validate() error {
	if _, ok := ParseAccent(string(p.Accent)); !ok {
		return faults.Validation(fmt.Sprintf("Invalid accent %q.", p.Accent))
	}
	if _, ok := ParseDensity(string(p.Density)); !ok {
		return faults.Validation(fmt.Sprintf("Invalid density %q.", p.Density))
	}
	if _, ok := ParseRadius(string(p.Radius)); !ok {
		return faults.Validation(fmt.Sprintf("Invalid radius %q.", p.Radius))
	}
	return nil
}

// JSON is the canonical serialized form stored in caches and profile rows.
func (p Preferences) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}

func (p Preferences) String() string {
	return string(p.JSON())
}
