package audioanalysis

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// Default classifier thresholds.
const (
	DefaultFundamentalRatio = 0.2
	DefaultHarmonicRatio    = 0.15
	DefaultCryRMS           = 0.08
	DefaultCrySustained     = 0.3
	DefaultCryRhythm        = 0.4
	DefaultTransientRatio   = 1.5
	DefaultSustainedRMS     = 0.1
	DefaultLaughTransients  = 5
	DefaultLaughSustained   = 0.3
	DefaultLaughRMS         = 0.05
)

// Thresholds holds every tunable constant of the pipeline. All comparisons
// against them are strict.
type Thresholds struct {
	// Crying
	FundamentalRatio float64 `json:"fundamentalRatio" yaml:"fundamentalratio" mapstructure:"fundamentalratio"`
	HarmonicRatio    float64 `json:"harmonicRatio" yaml:"harmonicratio" mapstructure:"harmonicratio"`
	CryRMS           float64 `json:"cryRms" yaml:"cryrms" mapstructure:"cryrms"`
	CrySustained     float64 `json:"crySustained" yaml:"crysustained" mapstructure:"crysustained"`
	CryRhythm        float64 `json:"cryRhythm" yaml:"cryrhythm" mapstructure:"cryrhythm"`

	// Temporal analysis
	TransientRatio float64 `json:"transientRatio" yaml:"transientratio" mapstructure:"transientratio"`
	SustainedRMS   float64 `json:"sustainedRms" yaml:"sustainedrms" mapstructure:"sustainedrms"`

	// Laughter
	LaughTransients int     `json:"laughTransients" yaml:"laughtransients" mapstructure:"laughtransients"`
	LaughSustained  float64 `json:"laughSustained" yaml:"laughsustained" mapstructure:"laughsustained"`
	LaughRMS        float64 `json:"laughRms" yaml:"laughrms" mapstructure:"laughrms"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FundamentalRatio: DefaultFundamentalRatio,
		HarmonicRatio:    DefaultHarmonicRatio,
		CryRMS:           DefaultCryRMS,
		CrySustained:     DefaultCrySustained,
		CryRhythm:        DefaultCryRhythm,
		TransientRatio:   DefaultTransientRatio,
		SustainedRMS:     DefaultSustainedRMS,
		LaughTransients:  DefaultLaughTransients,
		LaughSustained:   DefaultLaughSustained,
		LaughRMS:         DefaultLaughRMS,
	}
}

// Validate checks that ratios and fractions are within [0, 1] and that the
// transient ratio is above 1.
func (t Thresholds) Validate() error {
	var problems []string

	unit := map[string]float64{
		"fundamentalRatio": t.FundamentalRatio,
		"harmonicRatio":    t.HarmonicRatio,
		"cryRms":           t.CryRMS,
		"crySustained":     t.CrySustained,
		"cryRhythm":        t.CryRhythm,
		"sustainedRms":     t.SustainedRMS,
		"laughSustained":   t.LaughSustained,
		"laughRms":         t.LaughRMS,
	}
	for _, name := range slices.Sorted(maps.Keys(unit)) {
		if v := unit[name]; v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be between 0 and 1, got %g", name, v))
		}
	}
	if t.TransientRatio <= 1 {
		problems = append(problems, fmt.Sprintf("transientRatio must be greater than 1, got %g", t.TransientRatio))
	}
	if t.LaughTransients < 0 {
		problems = append(problems, fmt.Sprintf("laughTransients must not be negative, got %d", t.LaughTransients))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Newf("invalid thresholds: %s", strings.Join(problems, "; ")).
		Component(componentName).
		Category(errors.CategoryConfiguration).
		Build()
}
