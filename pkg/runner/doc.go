/*
Package runner implements the interactive exam loop and I/O orchestration.

It bridges the decision engine and the outside world: presenting steps and
instrument commands, collecting and classifying patient responses, stamping
the session clock onto each turn, and turning Ctrl+C into a clean
external-abort escalation.

# Key Components

  - Runner: the loop orchestrator, driving the engine's managed session API.
  - IOHandler: decouples the interaction mode from the loop.
  - TextHandler: interactive CLI usage with the keyword classifier.
  - JSONHandler: JSON-Lines for host processes with their own classifier.

# Usage

	r := runner.NewRunner(eng,
		runner.WithSessionID("patient-1"),
		runner.WithRenderer(tui.Render),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
