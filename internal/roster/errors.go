package roster

import (
	"errors"
	"fmt"

	"github.com/iliyamo/tour-backoffice/internal/model"
)

var (
	// ErrTourNotFound is returned when the requested tour does not exist.
	ErrTourNotFound = model.ErrTourNotFound
	// ErrReservationNotFound is returned when a reservation id is not part
	// of the tour's product and date.
	ErrReservationNotFound = errors.New("reservation not found for this product and date")
	// ErrNotSiblings is returned when a reassign crosses sibling groups.
	ErrNotSiblings = errors.New("tours do not share product and date")
	// ErrGroupBusy is returned when another session holds the group lock,
	// or when concurrent writes kept winning until the retries ran out.
	ErrGroupBusy = errors.New("roster is being edited by another session")
	// ErrRosterChanged is returned by TourStore.SetReservationIDs when the
	// roster moved on since it was read.
	ErrRosterChanged = model.ErrRosterChanged
)

// AlreadyAssignedError reports that a reservation is already on another
// sibling's roster.
type AlreadyAssignedError struct {
	ReservationID string
	TourID        string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("reservation %s is already assigned to tour %s", e.ReservationID, e.TourID)
}

// PartialReassignError reports that a reassign released the reservation
// from its old tour but failed to add it to the new one.  The reservation
// is left pending.
type PartialReassignError struct {
	ReservationID string
	FromTourID    string
	ToTourID      string
	Err           error
}

func (e *PartialReassignError) Error() string {
	return fmt.Sprintf("reservation %s released from tour %s but not assigned to tour %s: %v",
		e.ReservationID, e.FromTourID, e.ToTourID, e.Err)
}

func (e *PartialReassignError) Unwrap() error { return e.Err }

// StoreError wraps a storage collaborator failure with the operation that
// triggered it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// InvariantViolation reports a roster state that breaks the partition
// rule.  It indicates a defect or a concurrent writer, never bad input.
type InvariantViolation struct {
	ReservationID string
	TourIDs       []string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("reservation %s is on more than one roster: %v", e.ReservationID, e.TourIDs)
}

// IsAlreadyAssigned reports whether err is an AlreadyAssignedError.
func IsAlreadyAssigned(err error) bool {
	var e *AlreadyAssignedError
	return errors.As(err, &e)
}

// IsPartialReassign reports whether err is a PartialReassignError.
func IsPartialReassign(err error) bool {
	var e *PartialReassignError
	return errors.As(err, &e)
}

// IsStoreError reports whether err is a StoreError.
func IsStoreError(err error) bool {
	var e *StoreError
	return errors.As(err, &e)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
