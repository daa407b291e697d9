package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks inputs the engine refuses to price.
	ErrValidation = errors.New("pricing: invalid input")
	// ErrConfiguration marks a discount rule whose thresholds make no sense.
	ErrConfiguration = errors.New("pricing: misconfigured rule")
)

// ValidationError describes a malformed line item, coupon or cart.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("pricing: %s", e.Reason)
	}
	return fmt.Sprintf("pricing: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConfigurationError is never returned from Price or Resolve. The offending rule is
// skipped and the error is reported in the result's warnings.
type ConfigurationError struct {
	EventID      string `json:"eventId,omitempty"`
	TicketTypeID string `json:"ticketTypeId,omitempty"`
	Rule         string `json:"rule"`
	Index        int    `json:"index"`
	Reason       string `json:"reason"`
}

func (e ConfigurationError) Error() string {
	if e.EventID == "" && e.TicketTypeID == "" {
		return fmt.Sprintf("pricing: rule %d (%s): %s", e.Index, e.Rule, e.Reason)
	}
	return fmt.Sprintf("pricing: %s/%s rule %d (%s): %s", e.EventID, e.TicketTypeID, e.Index, e.Rule, e.Reason)
}

func (e ConfigurationError) Unwrap() error { return ErrConfiguration }
