package middleware

import "github.com/kharven/refract/pkg/ports"

// Middleware decorates a StateStore with a cross-cutting concern, such as
// sealing exam state at rest or masking identifiers on the way in.
type Middleware func(ports.StateStore) ports.StateStore
