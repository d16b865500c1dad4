package domain

// Thresholds are the confidence cut points for the quality gate.
// A confidence below Ambiguous is unclear; below Clear it is ambiguous;
// at or above Clear it is clear (intent permitting).
type Thresholds struct {
	Clear     float64 `yaml:"clear" json:"clear"`
	Ambiguous float64 `yaml:"ambiguous" json:"ambiguous"`
}

// Limits is the physical and clinical safety envelope for adjustments.
type Limits struct {
	// Maximum per-adjustment step sizes ("unsafe jump" boundary).
	MaxSphereStep   float64 `yaml:"max_sphere_step" json:"max_sphere_step"`
	MaxCylinderStep float64 `yaml:"max_cylinder_step" json:"max_cylinder_step"`
	MaxAxisStep     int     `yaml:"max_axis_step" json:"max_axis_step"`

	// Parameter domains ("out of range" boundary).
	SphereMin   float64 `yaml:"sphere_min" json:"sphere_min"`
	SphereMax   float64 `yaml:"sphere_max" json:"sphere_max"`
	CylinderMin float64 `yaml:"cylinder_min" json:"cylinder_min"`
	CylinderMax float64 `yaml:"cylinder_max" json:"cylinder_max"`
	AxisMin     int     `yaml:"axis_min" json:"axis_min"`
	AxisMax     int     `yaml:"axis_max" json:"axis_max"`

	// Pupillary distance bounds, millimeters.
	PDMin float64 `yaml:"pd_min" json:"pd_min"`
	PDMax float64 `yaml:"pd_max" json:"pd_max"`
	// NearPDOffset is subtracted from the distance PD when no explicit
	// near PD is supplied.
	NearPDOffset float64 `yaml:"near_pd_offset" json:"near_pd_offset"`
}

// Nudges are the fixed-step refinement magnitudes, in diopters. Their
// clinical derivation is conventional rather than proven, so they are
// configuration, not invariants.
type Nudges struct {
	// Duochrome is applied as -Duochrome for "red clearer" and +Duochrome
	// for "green clearer".
	Duochrome float64 `yaml:"duochrome" json:"duochrome"`
	// Balance is applied as -Balance to the fellow eye when one eye is
	// reported clearer during binocular balance.
	Balance float64 `yaml:"balance" json:"balance"`
	// LensPair is the sphere delta between the two presented candidates.
	LensPair float64 `yaml:"lens_pair" json:"lens_pair"`
}

// Durations are the session-length breakpoints, in seconds.
type Durations struct {
	OfferBreakSeconds float64 `yaml:"offer_break_seconds" json:"offer_break_seconds"`
	WarnSeconds       float64 `yaml:"warn_seconds" json:"warn_seconds"`
	HardStopSeconds   float64 `yaml:"hard_stop_seconds" json:"hard_stop_seconds"`
}

// FatigueConfig tunes the fatigue heuristic: the rolling window size, the
// acceptable drops between the baseline and the recent window, the mean
// hesitation ceiling, and how many fatigued-sentiment turns in the window
// raise the advisory.
type FatigueConfig struct {
	Window               int     `yaml:"window" json:"window"`
	AccuracyDrop         float64 `yaml:"accuracy_drop" json:"accuracy_drop"`
	ConfidenceDrop       float64 `yaml:"confidence_drop" json:"confidence_drop"`
	MaxHesitationSeconds float64 `yaml:"max_hesitation_seconds" json:"max_hesitation_seconds"`
	SentimentCount       int     `yaml:"sentiment_count" json:"sentiment_count"`
}

// Config is the complete clinical envelope handed to the engine at
// construction. All magic numbers live here; nothing in the engine hard-codes
// a threshold.
type Config struct {
	Thresholds Thresholds     `yaml:"thresholds" json:"thresholds"`
	Limits     Limits         `yaml:"limits" json:"limits"`
	Nudges     Nudges         `yaml:"nudges" json:"nudges"`
	Durations  Durations      `yaml:"durations" json:"durations"`
	Fatigue    FatigueConfig  `yaml:"fatigue" json:"fatigue"`
	Quality    QualityTargets `yaml:"quality" json:"quality"`
}

// DefaultConfig returns the standard clinical envelope.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			Clear:     0.6,
			Ambiguous: 0.3,
		},
		Limits: Limits{
			MaxSphereStep:   0.50,
			MaxCylinderStep: 0.50,
			MaxAxisStep:     10,
			SphereMin:       -20.00,
			SphereMax:       20.00,
			CylinderMin:     -6.00,
			CylinderMax:     0.00,
			AxisMin:         0,
			AxisMax:         180,
			PDMin:           50,
			PDMax:           80,
			NearPDOffset:    3,
		},
		Nudges: Nudges{
			Duochrome: 0.125,
			Balance:   0.25,
			LensPair:  0.25,
		},
		Durations: Durations{
			OfferBreakSeconds: 720,  // 12 min
			WarnSeconds:       1200, // 20 min
			HardStopSeconds:   1500, // 25 min
		},
		Fatigue: FatigueConfig{
			Window:               5,
			AccuracyDrop:         0.2,
			ConfidenceDrop:       0.3,
			MaxHesitationSeconds: 3.0,
			SentimentCount:       2,
		},
		Quality: DefaultQualityTargets(),
	}
}

// Validate rejects configurations that cannot express a coherent envelope.
// Returns a *ConfigurationError on the first violation found.
func (c Config) Validate() error {
	switch {
	case c.Thresholds.Ambiguous <= 0 || c.Thresholds.Clear <= c.Thresholds.Ambiguous || c.Thresholds.Clear > 1:
		return &ConfigurationError{Detail: "thresholds must satisfy 0 < ambiguous < clear <= 1"}
	case c.Limits.MaxSphereStep <= 0 || c.Limits.MaxCylinderStep <= 0 || c.Limits.MaxAxisStep <= 0:
		return &ConfigurationError{Detail: "max step sizes must be positive"}
	case c.Limits.SphereMin >= c.Limits.SphereMax:
		return &ConfigurationError{Detail: "sphere domain is empty"}
	case c.Limits.CylinderMin >= c.Limits.CylinderMax:
		return &ConfigurationError{Detail: "cylinder domain is empty"}
	case c.Limits.AxisMin >= c.Limits.AxisMax:
		return &ConfigurationError{Detail: "axis domain is empty"}
	case c.Limits.PDMin >= c.Limits.PDMax:
		return &ConfigurationError{Detail: "pd domain is empty"}
	case c.Nudges.Duochrome <= 0 || c.Nudges.Balance <= 0 || c.Nudges.LensPair <= 0:
		return &ConfigurationError{Detail: "nudge magnitudes must be positive"}
	case c.Durations.OfferBreakSeconds <= 0 ||
		c.Durations.WarnSeconds <= c.Durations.OfferBreakSeconds ||
		c.Durations.HardStopSeconds <= c.Durations.WarnSeconds:
		return &ConfigurationError{Detail: "duration breakpoints must be increasing and positive"}
	case c.Fatigue.Window <= 0:
		return &ConfigurationError{Detail: "fatigue window must be positive"}
	case c.Quality.ClearRate < 0 || c.Quality.ClearRate > 1 ||
		c.Quality.MeanConfidence < 0 || c.Quality.MeanConfidence > 1 ||
		c.Quality.AcceptanceRate < 0 || c.Quality.AcceptanceRate > 1:
		return &ConfigurationError{Detail: "quality targets must be within [0, 1]"}
	}
	return nil
}
