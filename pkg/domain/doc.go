/*
Package domain contains the core domain models for the Refract engine.

It defines the entities of a subjective refraction session: the per-eye lens
configuration, the phoropter state, classified patient responses, response
verdicts, protocol steps, device commands, and the safety snapshot. This
package is kept pure and free of I/O or persistence concerns, following
Hexagonal Architecture principles.

# Key Entities

  - LensConfiguration: The prescription under test for a single eye.
  - PhoropterState: The mutable instrument state (lenses, occlusion, PD, history).
  - ClassifiedResponse: A pre-classified patient response supplied per turn.
  - ResponseVerdict: The quality classification of a response.
  - ProtocolStep / Protocol: The immutable exam script and its step graph.
  - DeviceCommand: The abstract instrument command emitted each turn.
  - SafetySnapshot: Rolling fatigue/duration/incident bookkeeping.
*/
package domain
