/*
Package classify is the reference keyword classifier for patient utterances.

It turns raw text into a domain.ClassifiedResponse: intent by priority-ordered
keyword tables, per-step slot extraction, red-flag and persona-override
detection, sentiment markers and a keyword-density confidence score. The
interactive CLI and the examples use it; the engine itself only ever consumes
already-classified responses and never imports this package.
*/
package classify
