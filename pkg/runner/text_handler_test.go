package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/pkg/domain"
)

func lensPairStep() *domain.ProtocolStep {
	return &domain.ProtocolStep{
		ID:     "6.1",
		Name:   "Right Eye Refraction",
		Action: domain.StepActionLensPair,
		Eye:    domain.EyeOD,
		RequiredSlots: []domain.SlotSpec{
			{Key: "clarity_feedback", Allowed: []string{"first_better", "second_better", "both_same"}},
		},
		Options: []string{"First lens better", "Second lens better", "Both same"},
	}
}

func TestTextHandler_PresentLensPair(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)

	cmd := domain.DeviceCommand{
		Kind: domain.CommandPresentLensPair,
		Eye:  domain.EyeOD,
		LensPair: &domain.LensPairParams{
			OptionA: domain.LensOption{Label: "Lens 1", Sphere: 0.25},
			OptionB: domain.LensOption{Label: "Lens 2", Sphere: -0.25},
		},
	}
	require.NoError(t, h.Present(context.Background(), lensPairStep(), &domain.ExamState{}, cmd))

	text := out.String()
	assert.Contains(t, text, "### Step 6.1: Right Eye Refraction")
	assert.Contains(t, text, "Comparing lenses for the right eye.")
	assert.Contains(t, text, "**Lens 1**: +0.25 D")
	assert.Contains(t, text, "**Lens 2**: -0.25 D")
	assert.Contains(t, text, "Which looks clearer?")
	assert.Contains(t, text, "1. First lens better")
	assert.Contains(t, text, "3. Both same")
}

func TestTextHandler_PresentRepeatReason(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)

	cmd := domain.DeviceCommand{
		Kind:   domain.CommandRepeatPresentation,
		Reason: "answer was ambiguous",
	}
	require.NoError(t, h.Present(context.Background(), lensPairStep(), &domain.ExamState{}, cmd))
	assert.Contains(t, out.String(), "_Repeating this step: answer was ambiguous_")
}

func TestTextHandler_PresentTerminalStates(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)

	done := &domain.ExamState{SessionID: "s1", Status: domain.StatusFinalized}
	require.NoError(t, h.Present(context.Background(), nil, done, domain.DeviceCommand{Kind: domain.CommandFinalize}))
	assert.Contains(t, out.String(), "## Exam complete")
	assert.Contains(t, out.String(), "`s1`")

	out.Reset()
	halted := &domain.ExamState{
		SessionID:        "s2",
		Status:           domain.StatusHalted,
		EscalationReason: domain.EscalationRedFlag,
	}
	require.NoError(t, h.Present(context.Background(), nil, halted, domain.DeviceCommand{Kind: domain.CommandEscalate}))
	assert.Contains(t, out.String(), "## Exam halted")
	assert.Contains(t, out.String(), "red_flag")
}

func TestTextHandler_PresentAppliesRenderer(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out,
		WithTextHandlerRenderer(func(md string) (string, error) {
			return strings.ToUpper(md), nil
		}))

	step := &domain.ProtocolStep{ID: "1.1", Name: "Warm Up"}
	require.NoError(t, h.Present(context.Background(), step, &domain.ExamState{}, domain.DeviceCommand{Kind: domain.CommandNoAction}))
	assert.Contains(t, out.String(), "### STEP 1.1: WARM UP")
}

func TestTextHandler_PresentFallsBackOnRendererError(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out,
		WithTextHandlerRenderer(func(md string) (string, error) {
			return "", io.ErrUnexpectedEOF
		}))

	step := &domain.ProtocolStep{ID: "1.1", Name: "Warm Up"}
	require.NoError(t, h.Present(context.Background(), step, &domain.ExamState{}, domain.DeviceCommand{Kind: domain.CommandNoAction}))
	assert.Contains(t, out.String(), "### Step 1.1: Warm Up")
}

func TestTextHandler_ReadClassifies(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader("the first one looked clearer\n"), &out)

	resp, err := h.Read(context.Background(), lensPairStep())
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRefractionFeedback, resp.Intent)
	assert.Equal(t, "first_better", resp.Slots["clarity_feedback"])
	assert.Contains(t, out.String(), "> ")
}

func TestTextHandler_ReadExitWords(t *testing.T) {
	for _, word := range []string{"exit", "quit"} {
		h := NewTextHandler(strings.NewReader(word+"\n"), &bytes.Buffer{})
		_, err := h.Read(context.Background(), lensPairStep())
		assert.ErrorIs(t, err, io.EOF, "word %q should end the stream", word)
	}
}

func TestTextHandler_ReadEOFWhenExhausted(t *testing.T) {
	h := NewTextHandler(strings.NewReader(""), &bytes.Buffer{})
	_, err := h.Read(context.Background(), lensPairStep())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_ReadRepromptsOnBadInput(t *testing.T) {
	// First line is invalid UTF-8, which the sanitizer rejects; the handler
	// reports the error and reads the next line.
	input := append([]byte{0xff, 0xfe, '\n'}, []byte("ready\n")...)
	var out bytes.Buffer
	h := NewTextHandler(bytes.NewReader(input), &out)

	resp, err := h.Read(context.Background(), &domain.ProtocolStep{ID: "1.1", Name: "Warm Up"})
	require.NoError(t, err)
	assert.False(t, resp.Intent.Unusable())
	assert.Contains(t, out.String(), "Please try again.")
}

func TestTextHandler_ReadHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewTextHandler(strings.NewReader("ready\n"), &bytes.Buffer{})
	_, err := h.Read(ctx, lensPairStep())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextHandler_ResultPrintsAdjustmentsAndAdvisories(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)

	result := &domain.TurnResult{
		Adjustments: []domain.AdjustmentOutcome{
			{
				Request:  domain.AdjustmentRequest{Eye: domain.EyeOD, Parameter: domain.ParameterSphere},
				Accepted: true,
				NewValue: -1.25,
			},
			{
				Request: domain.AdjustmentRequest{Eye: domain.EyeOS, Parameter: domain.ParameterSphere},
				Message: "sphere at safety limit",
			},
		},
		Advisories: []domain.Advisory{domain.AdvisoryFatigueBreak},
	}
	require.NoError(t, h.Result(context.Background(), result))

	text := out.String()
	assert.Contains(t, text, "[device] right eye sphere -> -1.25 D")
	assert.Contains(t, text, "[device] adjustment held: sphere at safety limit")
	assert.Contains(t, text, "[safety] patient fatigue detected")
}

func TestTextHandler_System(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)

	require.NoError(t, h.System(context.Background(), "exam interrupted"))
	assert.Contains(t, out.String(), "[System] exam interrupted")
}
