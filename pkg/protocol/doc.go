/*
Package protocol loads and validates exam step tables.

A protocol is a YAML document declaring the ordered clinical script: one entry
per step with its successor, question key, instrument action, and required
slots. The graph over all steps is checked once at load time: every
non-terminal step must name exactly one existing successor, and the whole
table must be reachable from the start without cycles. A table that fails any
of these checks yields a fatal *domain.ConfigurationError and the engine
refuses to start.

The package ships an embedded default table covering the full exam
(0.1 through 9.2); callers can substitute their own with Load or Parse.
*/
package protocol
