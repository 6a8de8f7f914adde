package services

import (
	"errors"
	"fmt"
	"strings"
)

// RetryPolicy decides what happens to a due reminder whose delivery failed.
// Reminders that are not abandoned stay pending and are picked up again by a
// later run.
type RetryPolicy interface {
	// Abandon reports whether the reminder should be cancelled instead of
	// retried.
	Abandon(err error) bool
	Name() string
}

var (
	// RetryUnbounded keeps every failed reminder pending forever. Cancelling or
	// rescheduling the follow-up is the only way to stop the retries.
	RetryUnbounded RetryPolicy = unboundedPolicy{}

	// RetryDropUnresolvable cancels reminders whose subject or owner is gone or
	// whose owner has no devices. Dispatch failures are still retried.
	RetryDropUnresolvable RetryPolicy = dropUnresolvablePolicy{}
)

type unboundedPolicy struct{}

func (unboundedPolicy) Abandon(error) bool { return false }
func (unboundedPolicy) Name() string       { return "unbounded" }

type dropUnresolvablePolicy struct{}

func (dropUnresolvablePolicy) Abandon(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrOwnerNotFound) ||
		errors.Is(err, ErrNoDeliverableTokens)
}

func (dropUnresolvablePolicy) Name() string { return "drop_unresolvable" }

// ParseRetryPolicy maps a configuration value to a policy.
func ParseRetryPolicy(name string) (RetryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RetryUnbounded.Name():
		return RetryUnbounded, nil
	case RetryDropUnresolvable.Name():
		return RetryDropUnresolvable, nil
	default:
		return nil, fmt.Errorf("unknown retry policy %q", name)
	}
}
