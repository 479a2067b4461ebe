package entitlement

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a referenced entity that does not exist. Store
	// implementations wrap it; callers test with errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrMalformedOverride is returned by GrantOverride when the request
	// cannot be stored at all (empty feature name, invalid JSON value).
	ErrMalformedOverride = errors.New("malformed override")
)

// ConfigurationFault means the catalog violates an invariant the engine
// relies on, such as a missing free plan. It is never downgraded to a
// permissive default.
type ConfigurationFault struct {
	Reason string
}

func (e *ConfigurationFault) Error() string {
	return "entitlement configuration fault: " + e.Reason
}

// StoreUnavailable wraps a failed or timed-out store access. The whole
// resolution fails; no partial entitlement is returned.
type StoreUnavailable struct {
	Op  string
	Err error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("entitlement store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

func IsConfigurationFault(err error) bool {
	var cf *ConfigurationFault
	return errors.As(err, &cf)
}

func IsStoreUnavailable(err error) bool {
	var su *StoreUnavailable
	return errors.As(err, &su)
}

// classify keeps NotFound and configuration faults as they are and turns
// every other failure, timeouts included, into StoreUnavailable.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsStoreUnavailable(err), IsConfigurationFault(err):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &StoreUnavailable{Op: op, Err: err}
	case errors.Is(err, ErrNotFound):
		return err
	}
	return &StoreUnavailable{Op: op, Err: err}
}

// outcome is the metric label for a resolution result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsConfigurationFault(err):
		return "configuration_fault"
	case IsStoreUnavailable(err):
		return "store_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}
