package refract_test

import (
	"context"
	"fmt"
	"log"

	"github.com/kharven/refract"
	"github.com/kharven/refract/pkg/domain"
)

// ExampleNew demonstrates the managed session API against the embedded
// default protocol. Begin loads or starts the session; Submit runs one
// classified turn and persists the successor state.
func ExampleNew() {
	eng, err := refract.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// 1. Begin positions the session on the protocol's first step.
	state, cmd, err := eng.Begin(ctx, "exam-demo")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("step: %s\n", state.CurrentStep)
	fmt.Printf("question: %s\n", cmd.QuestionKey)

	// 2. The patient's speech is classified by the host (NLU, operator UI);
	// the engine consumes only the classification.
	result, err := eng.Submit(ctx, "exam-demo", &domain.ClassifiedResponse{
		Intent:     domain.IntentGreeting,
		Confidence: 0.95,
		Sentiment:  domain.SentimentConfident,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("verdict: %s\n", result.Verdict.Kind)
	fmt.Printf("next: %s\n", result.NextStep)

	// Output:
	// step: 0.1
	// question: q.welcome
	// verdict: clear
	// next: 0.2
}
