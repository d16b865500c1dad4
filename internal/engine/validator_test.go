package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/pkg/domain"
)

func TestValidateAdjustment_Accepts(t *testing.T) {
	limits := domain.DefaultConfig().Limits
	phoropter := domain.NewPhoropterState()
	phoropter.OD.Sphere = 1.25
	phoropter.OD.Axis = 90

	cases := []struct {
		name string
		req  domain.AdjustmentRequest
		want float64
	}{
		{
			name: "sphere quarter step up",
			req:  domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: 0.25},
			want: 1.50,
		},
		{
			name: "sphere at the cap",
			req:  domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: -0.50},
			want: 0.75,
		},
		{
			name: "cylinder into minus",
			req:  domain.AdjustmentRequest{Eye: domain.EyeOS, Parameter: domain.ParameterCylinder, Magnitude: -0.50},
			want: -0.50,
		},
		{
			name: "axis within cap",
			req:  domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterAxis, Magnitude: 10},
			want: 100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, rej := validateAdjustment(limits, &phoropter, tc.req)
			require.Nil(t, rej)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestValidateAdjustment_Rejects(t *testing.T) {
	limits := domain.DefaultConfig().Limits
	phoropter := domain.NewPhoropterState()
	phoropter.OD.Sphere = 19.75
	phoropter.OS.Sphere = -19.75
	phoropter.OD.Axis = 5

	cases := []struct {
		name   string
		req    domain.AdjustmentRequest
		reason domain.RejectionReason
	}{
		{
			name:   "sphere step above cap",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOS, Parameter: domain.ParameterSphere, Magnitude: 0.75},
			reason: domain.RejectionUnsafeJump,
		},
		{
			name:   "negative step above cap",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOS, Parameter: domain.ParameterSphere, Magnitude: -0.51},
			reason: domain.RejectionUnsafeJump,
		},
		{
			name:   "cylinder step above cap",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterCylinder, Magnitude: -0.75},
			reason: domain.RejectionUnsafeJump,
		},
		{
			name:   "axis step above cap",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterAxis, Magnitude: 15},
			reason: domain.RejectionUnsafeJump,
		},
		{
			name:   "sphere above upper bound",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: 0.50},
			reason: domain.RejectionOutOfRange,
		},
		{
			name:   "sphere below lower bound",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOS, Parameter: domain.ParameterSphere, Magnitude: -0.50},
			reason: domain.RejectionOutOfRange,
		},
		{
			name:   "cylinder above zero",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterCylinder, Magnitude: 0.25},
			reason: domain.RejectionOutOfRange,
		},
		{
			// Axis does not wrap: 5 - 10 is rejected, not 175.
			name:   "axis below zero",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterAxis, Magnitude: -10},
			reason: domain.RejectionOutOfRange,
		},
		{
			name:   "unknown eye",
			req:    domain.AdjustmentRequest{Eye: "both", Parameter: domain.ParameterSphere, Magnitude: 0.25},
			reason: domain.RejectionOutOfRange,
		},
		{
			name:   "unknown parameter",
			req:    domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: "prism", Magnitude: 0.25},
			reason: domain.RejectionOutOfRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := phoropter.Clone()
			_, rej := validateAdjustment(limits, &phoropter, tc.req)
			require.NotNil(t, rej)
			assert.Equal(t, tc.reason, rej.Reason)
			assert.Equal(t, tc.req, rej.Request)
			assert.Equal(t, before, phoropter.Clone(), "validation must not mutate")
		})
	}
}

func TestValidateAdjustment_CapBeatsRange(t *testing.T) {
	// A request that violates both rules reports the step cap first.
	limits := domain.DefaultConfig().Limits
	phoropter := domain.NewPhoropterState()
	phoropter.OD.Sphere = 19.90

	_, rej := validateAdjustment(limits, &phoropter, domain.AdjustmentRequest{
		Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: 0.75,
	})
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectionUnsafeJump, rej.Reason)
}
