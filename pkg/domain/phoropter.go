package domain

import "time"

// PupillaryDistance holds the instrument's PD settings in millimeters.
type PupillaryDistance struct {
	DistanceMM float64 `json:"distance_mm"`
	NearMM     float64 `json:"near_mm"`
}

// AdjustmentRecord is one applied lens change in the append-only history.
type AdjustmentRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Eye       Eye       `json:"eye"`
	Parameter Parameter `json:"parameter"`
	Magnitude float64   `json:"magnitude"`
	Result    float64   `json:"result"`
	Step      StepID    `json:"step"`
}

// PhoropterState is the mutable instrument state for one exam session.
//
// It is owned by the Controller: every mutation goes through validation, and
// every applied lens change is appended to History. Nothing else in the
// engine writes to it.
type PhoropterState struct {
	OD        LensConfiguration  `json:"od"`
	OS        LensConfiguration  `json:"os"`
	Occlusion Occlusion          `json:"occlusion"`
	PD        PupillaryDistance  `json:"pd"`
	History   []AdjustmentRecord `json:"history"`
}

// NewPhoropterState returns an instrument reset to plano lenses, both eyes
// open, and a typical adult PD.
func NewPhoropterState() PhoropterState {
	return PhoropterState{
		Occlusion: OcclusionNone,
		PD:        PupillaryDistance{DistanceMM: 63, NearMM: 60},
	}
}

// Lens returns a pointer to the configuration for the given eye.
func (p *PhoropterState) Lens(eye Eye) *LensConfiguration {
	if eye == EyeOD {
		return &p.OD
	}
	return &p.OS
}

// Clone returns a deep copy; the history slice is not shared.
func (p *PhoropterState) Clone() PhoropterState {
	out := *p
	out.History = make([]AdjustmentRecord, len(p.History))
	copy(out.History, p.History)
	return out
}
