package siteq

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/eaobservatory/omp/internal/sciprog"
)

// Conditions are the current observing conditions at the telescope.
type Conditions struct {
	Tau    float64 // 225 GHz zenith opacity
	Seeing float64 // arcsec
	Cloud  float64 // fraction of sky
}

// Band is a weather band: a named range of 225 GHz opacity.
type Band struct {
	Number int     `yaml:"band"`
	MaxTau float64 `yaml:"max_tau"` // 0 means unbounded (the worst band)
}

// DefaultBands are the canonical JCMT weather bands.
var DefaultBands = []Band{
	{Number: 1, MaxTau: 0.05},
	{Number: 2, MaxTau: 0.08},
	{Number: 3, MaxTau: 0.12},
	{Number: 4, MaxTau: 0.2},
	{Number: 5, MaxTau: 0},
}

type bandsFile struct {
	Bands []Band `yaml:"bands"`
}

// LoadBands reads a band definition file, falling back to DefaultBands when
// path is empty. Bands are returned sorted by number.
func LoadBands(path string) ([]Band, error) {
	if path == "" {
		return DefaultBands, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bands file: %w", err)
	}
	var f bandsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse bands file: %w", err)
	}
	if len(f.Bands) == 0 {
		return nil, fmt.Errorf("parse bands file: no bands defined")
	}
	sort.Slice(f.Bands, func(i, j int) bool { return f.Bands[i].Number < f.Bands[j].Number })
	return f.Bands, nil
}

// BandFromTau returns the weather band for an opacity. The last band
// catches everything above the bounded ranges.
func BandFromTau(bands []Band, tau float64) Band {
	for _, b := range bands {
		if b.MaxTau > 0 && tau <= b.MaxTau {
			return b
		}
	}
	return bands[len(bands)-1]
}

// BandConditions returns representative conditions for observing in the band:
// the worst opacity the band admits. For the unbounded band the lower
// boundary of the range is all that is known, so the previous band's limit
// is used.
func BandConditions(bands []Band, number int) (Conditions, error) {
	for i, b := range bands {
		if b.Number != number {
			continue
		}
		if b.MaxTau > 0 {
			return Conditions{Tau: b.MaxTau}, nil
		}
		if i > 0 {
			return Conditions{Tau: bands[i-1].MaxTau}, nil
		}
		return Conditions{}, nil
	}
	return Conditions{}, fmt.Errorf("unknown weather band %d", number)
}

// Observable reports whether an MSB is schedulable under the given
// conditions: it must have repeats left and its constraints, where set,
// must admit the conditions. Zero-valued limits are unconstrained.
func Observable(m sciprog.MSB, c Conditions) bool {
	if m.Removed() {
		return false
	}
	q := m.Quality
	if q == nil {
		return true
	}
	if c.Tau < q.TauMin {
		return false
	}
	if q.TauMax > 0 && c.Tau > q.TauMax {
		return false
	}
	if q.SeeingMax > 0 && c.Seeing > q.SeeingMax {
		return false
	}
	if q.CloudMax > 0 && c.Cloud > q.CloudMax {
		return false
	}
	return true
}

// QueryProgram returns the program's schedulable MSBs in document order.
func QueryProgram(p *sciprog.Program, c Conditions) []sciprog.MSB {
	var out []sciprog.MSB
	for _, m := range p.MSBs() {
		if Observable(m, c) {
			out = append(out, m)
		}
	}
	return out
}
