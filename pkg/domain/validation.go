package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared across the package; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural constraints of a classified response plus
// vocabulary membership of its tags. Adapters call this at the boundary
// before handing the response to the engine.
func (r *ClassifiedResponse) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid classified response: %w", err)
	}
	if !r.Intent.IsValid() {
		return fmt.Errorf("invalid classified response: unrecognized intent %q", r.Intent)
	}
	if r.Sentiment != "" && !r.Sentiment.IsValid() {
		return fmt.Errorf("invalid classified response: unrecognized sentiment %q", r.Sentiment)
	}
	return nil
}
