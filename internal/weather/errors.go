package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the place is missing or empty.
	ErrInvalidInput = errors.New("invalid input: place must not be empty")
	// ErrMalformedResponse is returned when a successful provider response
	// lacks the expected fields.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrQuotaExceeded marks queries refused by admission control.
	ErrQuotaExceeded = errors.New("access quota exceeded")
)

// UpstreamHTTPError describes a failed exchange with the provider: a non-2xx
// status, or a transport failure (StatusCode 0) such as a timeout.
type UpstreamHTTPError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamHTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

func (e *UpstreamHTTPError) Unwrap() error {
	return e.Err
}

// Outcome classifies how a query ended.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeInvalidInput  Outcome = "invalid_input"
	OutcomeUpstream      Outcome = "upstream_error"
	OutcomeMalformed     Outcome = "malformed_response"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeUnexpected    Outcome = "unexpected"
)

// Classify maps an error to its Outcome.
func Classify(err error) Outcome {
	var upstream *UpstreamHTTPError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	case errors.Is(err, ErrQuotaExceeded):
		return OutcomeQuotaExceeded
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformed
	case errors.As(err, &upstream):
		return OutcomeUpstream
	default:
		return OutcomeUnexpected
	}
}
