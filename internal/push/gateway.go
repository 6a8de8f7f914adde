// Package push delivers notifications to device tokens through an external
// push provider and normalizes per-token outcomes.
package push

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable is returned when the provider is not configured or
// the provider call as a whole failed. Nothing should be assumed delivered.
var ErrGatewayUnavailable = errors.New("push gateway unavailable")

// FailureReason classifies a rejected token.
type FailureReason string

const (
	// ReasonInvalidToken means the provider will never accept the token again.
	ReasonInvalidToken FailureReason = "invalid_token"
	// ReasonTransient means the token may still be valid.
	ReasonTransient FailureReason = "transient"
)

// Message is the provider-independent notification payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// TokenFailure is one token the provider rejected.
type TokenFailure struct {
	Token  string
	Reason FailureReason
	Detail string
}

// DispatchResult reports the per-token outcome of a dispatch.
type DispatchResult struct {
	Attempted int
	Succeeded int
	Failures  []TokenFailure
}

// InvalidTokens returns the tokens rejected as permanently invalid.
func (r *DispatchResult) InvalidTokens() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, f := range r.Failures {
		if f.Reason == ReasonInvalidToken {
			out = append(out, f.Token)
		}
	}
	return out
}

// Gateway sends one message to a set of device tokens. On error the result
// may be non-nil and describe the tokens that were already attempted.
type Gateway interface {
	Dispatch(ctx context.Context, tokens []string, msg Message) (*DispatchResult, error)
}
