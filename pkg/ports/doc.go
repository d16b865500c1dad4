// Package ports defines the driven-side interfaces of the engine.
//
// A StateStore persists exam sessions between turns so an exam can stop and
// resume across process restarts, and a DistributedLocker serializes turns
// for one session when several replicas share a store. Adapters implementing
// these interfaces live under pkg/adapters.
package ports
