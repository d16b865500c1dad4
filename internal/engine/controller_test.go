package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/pkg/domain"
)

func testController(status domain.ExamStatus) (*controller, *domain.ExamState) {
	cfg := domain.DefaultConfig()
	state := domain.NewExamState("exam-ctl", "6.1")
	state.Status = status
	return &controller{
		cfg:   &cfg,
		state: state,
		now:   func() time.Time { return time.Unix(1700000000, 0).UTC() },
	}, state
}

func TestController_AdjustParameter(t *testing.T) {
	ctl, state := testController(domain.StatusActive)

	outcome, err := ctl.AdjustParameter(domain.AdjustmentRequest{
		Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: 0.25, Step: "6.1",
	})
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.InDelta(t, 0.25, outcome.NewValue, 1e-9)
	assert.InDelta(t, 0.25, state.Phoropter.OD.Sphere, 1e-9)

	require.Len(t, state.Phoropter.History, 1)
	rec := state.Phoropter.History[0]
	assert.Equal(t, domain.EyeOD, rec.Eye)
	assert.Equal(t, domain.ParameterSphere, rec.Parameter)
	assert.InDelta(t, 0.25, rec.Magnitude, 1e-9)
	assert.InDelta(t, 0.25, rec.Result, 1e-9)
	assert.Equal(t, domain.StepID("6.1"), rec.Step)
	assert.Equal(t, 1, state.AdjustmentAttempts)
}

func TestController_AdjustParameter_RejectionLeavesStateUntouched(t *testing.T) {
	ctl, state := testController(domain.StatusActive)

	outcome, err := ctl.AdjustParameter(domain.AdjustmentRequest{
		Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: 0.75, Step: "6.1",
	})
	require.NoError(t, err, "a rejection is not an error")
	assert.False(t, outcome.Accepted)
	assert.Contains(t, outcome.Message, "unsafe jump")

	assert.Zero(t, state.Phoropter.OD.Sphere)
	assert.Empty(t, state.Phoropter.History)
	assert.Equal(t, 1, state.AdjustmentAttempts, "attempts count rejections too")
}

func TestController_AdjustParameter_AxisRoundsToDetent(t *testing.T) {
	ctl, state := testController(domain.StatusActive)

	outcome, err := ctl.AdjustParameter(domain.AdjustmentRequest{
		Eye: domain.EyeOS, Parameter: domain.ParameterAxis, Magnitude: 7.4, Step: "6.4",
	})
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Equal(t, 7, state.Phoropter.OS.Axis)
}

func TestController_GuardsTerminalStates(t *testing.T) {
	for _, status := range []domain.ExamStatus{domain.StatusFinalized, domain.StatusHalted} {
		t.Run(string(status), func(t *testing.T) {
			ctl, state := testController(status)
			step := &domain.ProtocolStep{ID: "6.1", Eye: domain.EyeOD, Action: domain.StepActionLensPair}

			var ite *domain.InvalidTransitionError

			_, err := ctl.AdjustParameter(domain.AdjustmentRequest{
				Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: 0.25,
			})
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, status, ite.Status)
			assert.Empty(t, state.Phoropter.History)

			_, err = ctl.PresentLensPair(step)
			assert.ErrorAs(t, err, &ite)
			_, err = ctl.PresentJCC(step)
			assert.ErrorAs(t, err, &ite)
			_, err = ctl.PresentBalance(step)
			assert.ErrorAs(t, err, &ite)
			_, err = ctl.Finalize()
			assert.ErrorAs(t, err, &ite)
			assert.ErrorAs(t, ctl.SetOcclusion(domain.OcclusionOD), &ite)
			assert.ErrorAs(t, ctl.SetPupillaryDistance(64, 0), &ite)
		})
	}
}

func TestController_PresentLensPair(t *testing.T) {
	ctl, state := testController(domain.StatusActive)
	state.Phoropter.OD.Sphere = -1.50

	cmd, err := ctl.PresentLensPair(&domain.ProtocolStep{
		ID: "6.1", Eye: domain.EyeOD, Action: domain.StepActionLensPair, QuestionKey: "q.od_lens_pair",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CommandPresentLensPair, cmd.Kind)
	assert.Equal(t, domain.EyeOD, cmd.Eye)
	assert.Equal(t, "q.od_lens_pair", cmd.QuestionKey)
	require.NotNil(t, cmd.LensPair)
	assert.InDelta(t, -1.25, cmd.LensPair.OptionA.Sphere, 1e-9)
	assert.InDelta(t, -1.75, cmd.LensPair.OptionB.Sphere, 1e-9)
}

func TestController_PresentJCC(t *testing.T) {
	ctl, _ := testController(domain.StatusActive)

	cmd, err := ctl.PresentJCC(&domain.ProtocolStep{
		ID: "6.2", Eye: domain.EyeOD, Action: domain.StepActionJCC, QuestionKey: "q.od_jcc",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CommandPresentJCC, cmd.Kind)
	require.NotNil(t, cmd.JCC)
	assert.Equal(t, []domain.JCCPhase{
		domain.JCCPhaseAxisHorizontal,
		domain.JCCPhaseAxisVertical,
		domain.JCCPhaseDuochrome,
	}, cmd.JCC.Phases)
}

func TestController_SetPupillaryDistance(t *testing.T) {
	t.Run("near derived from distance", func(t *testing.T) {
		ctl, state := testController(domain.StatusActive)
		require.NoError(t, ctl.SetPupillaryDistance(64, 0))
		assert.Equal(t, 64.0, state.Phoropter.PD.DistanceMM)
		assert.Equal(t, 61.0, state.Phoropter.PD.NearMM)
	})

	t.Run("explicit near kept", func(t *testing.T) {
		ctl, state := testController(domain.StatusActive)
		require.NoError(t, ctl.SetPupillaryDistance(66, 62.5))
		assert.Equal(t, 62.5, state.Phoropter.PD.NearMM)
	})

	t.Run("out of range", func(t *testing.T) {
		ctl, state := testController(domain.StatusActive)
		before := state.Phoropter.PD

		err := ctl.SetPupillaryDistance(49, 0)
		assert.ErrorIs(t, err, domain.ErrPDOutOfRange)

		err = ctl.SetPupillaryDistance(81, 0)
		assert.ErrorIs(t, err, domain.ErrPDOutOfRange)

		// A distance near the floor can push the derived near PD out.
		err = ctl.SetPupillaryDistance(51, 0)
		assert.ErrorIs(t, err, domain.ErrPDOutOfRange)

		assert.Equal(t, before, state.Phoropter.PD)
	})
}

func TestController_SetOcclusion(t *testing.T) {
	ctl, state := testController(domain.StatusActive)

	require.NoError(t, ctl.SetOcclusion(domain.OcclusionOS))
	assert.Equal(t, domain.OcclusionOS, state.Phoropter.Occlusion)

	err := ctl.SetOcclusion("left")
	assert.Error(t, err)
	assert.Equal(t, domain.OcclusionOS, state.Phoropter.Occlusion)
}

func TestController_Finalize(t *testing.T) {
	ctl, state := testController(domain.StatusActive)
	state.Phoropter.Occlusion = domain.OcclusionOS

	cmd, err := ctl.Finalize()
	require.NoError(t, err)
	assert.Equal(t, domain.CommandFinalize, cmd.Kind)
	assert.Equal(t, domain.StatusFinalized, state.Status)
	assert.Equal(t, domain.OcclusionNone, state.Phoropter.Occlusion)

	_, err = ctl.Finalize()
	var ite *domain.InvalidTransitionError
	require.True(t, errors.As(err, &ite), "finalizing twice is a caller bug")
	assert.Equal(t, "finalize", ite.Op)
}

func TestController_EscalateIdempotent(t *testing.T) {
	ctl, state := testController(domain.StatusActive)
	state.CurrentStep = "3.1"

	cmd, esc := ctl.Escalate(domain.EscalationRedFlag)
	assert.Equal(t, domain.CommandEscalate, cmd.Kind)
	assert.Equal(t, domain.StatusHalted, state.Status)
	assert.Equal(t, domain.StepEscalate, state.CurrentStep)
	assert.Equal(t, domain.EscalationRedFlag, esc.Reason)
	assert.Equal(t, domain.StepID("3.1"), esc.Step, "records where the halt was triggered")

	// Second call yields the same halted state and the original reason.
	cmd2, esc2 := ctl.Escalate(domain.EscalationExternal)
	assert.Equal(t, domain.CommandEscalate, cmd2.Kind)
	assert.Equal(t, string(domain.EscalationRedFlag), cmd2.Reason)
	assert.Equal(t, domain.EscalationRedFlag, esc2.Reason)
	assert.Equal(t, domain.EscalationRedFlag, state.EscalationReason)
}
