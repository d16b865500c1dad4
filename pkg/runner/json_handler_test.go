package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/pkg/domain"
)

func decodeEnvelopes(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var envelopes []map[string]any
	dec := json.NewDecoder(out)
	for dec.More() {
		var env map[string]any
		require.NoError(t, dec.Decode(&env))
		envelopes = append(envelopes, env)
	}
	return envelopes
}

func TestJSONHandler_EmitsEnvelopes(t *testing.T) {
	var out bytes.Buffer
	h := NewJSONHandler(strings.NewReader(""), &out)

	state := &domain.ExamState{SessionID: "s1", Status: domain.StatusActive, CurrentStep: "6.1"}
	cmd := domain.DeviceCommand{Kind: domain.CommandPresentLensPair, Eye: domain.EyeOD}
	require.NoError(t, h.Present(context.Background(), lensPairStep(), state, cmd))
	require.NoError(t, h.Result(context.Background(), &domain.TurnResult{NextStep: "6.5", Verdict: domain.ResponseVerdict{Kind: domain.VerdictClear}}))
	require.NoError(t, h.System(context.Background(), "exam interrupted"))

	envelopes := decodeEnvelopes(t, &out)
	require.Len(t, envelopes, 3)

	assert.Equal(t, "prompt", envelopes[0]["type"])
	step := envelopes[0]["step"].(map[string]any)
	assert.Equal(t, "6.1", step["id"])
	command := envelopes[0]["command"].(map[string]any)
	assert.Equal(t, "present_lens_pair", command["kind"])

	assert.Equal(t, "result", envelopes[1]["type"])
	result := envelopes[1]["result"].(map[string]any)
	assert.Equal(t, "6.5", result["next_step"])

	assert.Equal(t, "system", envelopes[2]["type"])
	assert.Equal(t, "exam interrupted", envelopes[2]["message"])
}

func TestJSONHandler_ReadObject(t *testing.T) {
	input := `{"intent":"refraction_feedback","confidence":0.9,"slots":{"clarity_feedback":"first_better"}}` + "\n"
	h := NewJSONHandler(strings.NewReader(input), &bytes.Buffer{})

	resp, err := h.Read(context.Background(), lensPairStep())
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRefractionFeedback, resp.Intent)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
	assert.Equal(t, "first_better", resp.Slots["clarity_feedback"])
}

func TestJSONHandler_ReadQuotedString(t *testing.T) {
	h := NewJSONHandler(strings.NewReader(`"the first lens was clearer"`+"\n"), &bytes.Buffer{})

	resp, err := h.Read(context.Background(), lensPairStep())
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRefractionFeedback, resp.Intent)
	assert.Equal(t, "first_better", resp.Slots["clarity_feedback"])
}

func TestJSONHandler_ReadBareString(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("second one\n"), &bytes.Buffer{})

	resp, err := h.Read(context.Background(), lensPairStep())
	require.NoError(t, err)
	assert.Equal(t, "second_better", resp.Slots["clarity_feedback"])
}

func TestJSONHandler_ReadSkipsBlankLines(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\n\n  \nboth the same\n"), &bytes.Buffer{})

	resp, err := h.Read(context.Background(), lensPairStep())
	require.NoError(t, err)
	assert.Equal(t, "both_same", resp.Slots["clarity_feedback"])
}

func TestJSONHandler_ReadMalformedObject(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("{not json}\n"), &bytes.Buffer{})

	_, err := h.Read(context.Background(), lensPairStep())
	assert.Error(t, err)
}
