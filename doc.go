/*
Package refract is a refraction decision and safety enforcement engine: the deterministic core that drives a phoropter through a scripted subjective eye exam.

It converts already-classified patient feedback (intent, confidence, slots, sentiment, safety flags) into bounded lens adjustments, gates progression through the exam protocol on response quality, and continuously enforces a clinical safety envelope that can terminate the session at any turn.

# Concept

Refract treats the exam as a validated step table walked one turn at a time. Each turn takes the current exam state plus one classified response and deterministically produces a successor state, a device command for the instrument, and a verdict. The engine never parses language and never talks to hardware; classification and device I/O belong to the host. This hexagonal split lets the same core run inside a CLI, an HTTP server, or an agent toolchain.

# Key Features

  - Deterministic Turns: Given the same state, response, and clock, the outcome is always reproducible.
  - Safety Envelope: Per-adjustment step limits, absolute parameter domains, duration hard stops, and red-flag escalation run ahead of any clinical logic.
  - Quality Gating: Steps only advance on clear, complete responses; everything else repeats the step.
  - State Persistence: Sessions survive restarts through pluggable stores (memory, JSON files, Redis).

# Usage

The zero-configuration path runs the embedded default protocol with an in-memory store:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/kharven/refract"
		"github.com/kharven/refract/pkg/domain"
	)

	func main() {
		eng, err := refract.New()
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, cmd, err := eng.Begin(ctx, "exam-123")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("step:", state.CurrentStep, "command:", cmd.Kind)

		// Main loop: classify patient speech elsewhere, then submit.
		result, err := eng.Submit(ctx, "exam-123", &domain.ClassifiedResponse{
			Intent:     domain.IntentGreeting,
			Confidence: 0.95,
			Sentiment:  domain.SentimentConfident,
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("verdict:", result.Verdict.Kind, "next:", result.NextStep)

		if result.Escalated() {
			fmt.Println("halted:", result.Escalation.Reason)
		}
	}

For callers that manage their own persistence, NewSession, Turn, and Snapshot expose the pure API: Turn never mutates its input state, so a failed turn leaves nothing to roll back.
*/
package refract
