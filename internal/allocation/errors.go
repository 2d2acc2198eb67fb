package allocation

import (
	"errors"
	"fmt"

	"github.com/iliyamo/tour-backoffice/internal/model"
)

var (
	// ErrTourNotFound is returned when the ledger's tour does not exist.
	ErrTourNotFound = model.ErrTourNotFound
	// ErrNoLedger is returned when a tour has no ledger and neither its
	// prepaid gratuity nor the caller gives a pool to create one.
	ErrNoLedger = errors.New("allocation ledger not initialised")
)

// ValidationError reports an edit whose input is outside its domain.  The
// ledger passed to the operation is returned unchanged alongside it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantViolation reports a ledger that breaks one of the closure or
// agreement rules.  It means the engine has a defect or the stored row
// was edited by hand.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("allocation invariant %s violated: %s", e.Rule, e.Detail)
}

// StoreError wraps an AllocationStore failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsInvariantViolation reports whether err is an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var e *InvariantViolation
	return errors.As(err, &e)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
