/*
Package dsl provides a fluent Go API for constructing exam protocols programmatically.

It allows developers to define step tables using a type-safe builder pattern instead
of relying on external YAML files. This is particularly useful for unit tests,
protocol experiments, and leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/kharven/refract/pkg/domain"
		"github.com/kharven/refract/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Add("1.1").
			Name("Warm Up").
			Ask("q.warmup").
			Options("Ready to start").
			Go("6.1")

		b.Add("6.1").
			Name("Right Eye Refraction").
			Ask("q.od_lens_pair").
			LensPair(domain.EyeOD).
			Slot("clarity_feedback", "first_better", "second_better", "both_same").
			Options("First lens better", "Second lens better", "Both same").
			End()

		// The resulting protocol can be handed to refract.New via WithProtocol.
		proto, err := b.Build()
		// ...
	}
*/
package dsl
