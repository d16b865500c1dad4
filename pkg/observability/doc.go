/*
Package observability turns the engine's lifecycle hooks into operational
signals.

Metrics maps step entries, turns, adjustments and escalations onto Prometheus
collectors; LoggingHooks emits one structured log line per event; Chain
composes hook sets so both can run alongside application callbacks.
*/
package observability
