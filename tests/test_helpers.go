package tests

import (
	"context"
	"testing"

	"github.com/kharven/refract"
	"github.com/kharven/refract/internal/classify"
	"github.com/kharven/refract/pkg/domain"
)

// fullExam is one scripted answer per step of the default protocol, phrased
// the way a cooperative patient would. Driving it through the classifier and
// the engine walks the exam from welcome to completion with four lens
// changes: OD +0.25 then -0.125, OS -0.25 then +0.125.
var fullExam = []string{
	"hello",
	"english",
	"ar test complete",
	"lenso done",
	"6/6",
	"clear",
	"n6",
	"eyes healthy",
	"perrla normal",
	"normal depth",
	"no deviation",
	"full motility",
	"no tropia",
	"normal convergence",
	"pd measured",
	"near pd done",
	"first lens better",
	"red clearer",
	"second lens better",
	"green clearer",
	"balanced",
	"near vision good",
	"comfortable reading",
	"feels good",
	"ready to finalize",
	"progressive",
	"anti-glare",
}

// answer classifies an utterance against the session's current step and
// submits it, the same path the interactive runner takes.
func answer(t *testing.T, eng *refract.Engine, sessionID, utterance string) *domain.TurnResult {
	t.Helper()
	ctx := context.Background()

	state, err := eng.State(ctx, sessionID)
	if err != nil {
		t.Fatalf("load state before %q: %v", utterance, err)
	}
	step, _ := eng.Protocol().Step(state.CurrentStep)

	resp, err := classify.Classify(step, utterance)
	if err != nil {
		t.Fatalf("classify %q: %v", utterance, err)
	}

	result, err := eng.Submit(ctx, sessionID, resp)
	if err != nil {
		t.Fatalf("submit %q on step %s: %v", utterance, state.CurrentStep, err)
	}
	return result
}

// stepRecorder collects step entry order through the lifecycle hooks.
type stepRecorder struct {
	entered []domain.StepID
}

func (r *stepRecorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, ev *domain.StepEvent) {
			r.entered = append(r.entered, ev.StepID)
		},
	}
}
