// Package roster partitions the reservations of a product and date across
// the sibling tour instances that operate it.
//
// The functions in this file are pure: they take snapshots and return new
// snapshots.  Service wraps them with store reads and writes.
package roster

import (
	"sort"

	"github.com/iliyamo/tour-backoffice/internal/model"
)

// Elsewhere is a reservation held by a sibling of the tour being viewed.
type Elsewhere struct {
	Reservation model.Reservation `json:"reservation"`
	TourID      string            `json:"tour_id"`
}

// AssignedTo returns the reservations on t's roster that count toward
// capacity.
func AssignedTo(t model.TourInstance, pool []model.Reservation) []model.Reservation {
	out := make([]model.Reservation, 0, t.ReservationIDs.Len())
	for _, r := range pool {
		if t.ReservationIDs.Has(r.ID) && r.Status.CountsTowardCapacity() {
			out = append(out, r)
		}
	}
	return out
}

// AssignedElsewhere returns what every other sibling has assigned, tagged
// with the owning tour id.
func AssignedElsewhere(t model.TourInstance, siblings []model.TourInstance, pool []model.Reservation) []Elsewhere {
	var out []Elsewhere
	for _, s := range siblings {
		if s.ID == t.ID {
			continue
		}
		for _, r := range AssignedTo(s, pool) {
			out = append(out, Elsewhere{Reservation: r, TourID: s.ID})
		}
	}
	return out
}

// Pending returns reservations in pool that are on no sibling's roster.
// Status is not filtered; a cancelled reservation can still be pending.
func Pending(siblings []model.TourInstance, pool []model.Reservation) []model.Reservation {
	var out []model.Reservation
	for _, r := range pool {
		if owner(siblings, r.ID) == "" {
			out = append(out, r)
		}
	}
	return out
}

// Assign adds id to t's roster.  It fails when another sibling already
// holds the id.  Assigning an id t already holds is a no-op.
func Assign(t model.TourInstance, siblings []model.TourInstance, id string) (model.TourInstance, error) {
	for _, s := range siblings {
		if s.ID != t.ID && s.ReservationIDs.Has(id) {
			return t, &AlreadyAssignedError{ReservationID: id, TourID: s.ID}
		}
	}
	return t.WithReservations(t.ReservationIDs.With(id)), nil
}

// AssignAll adds every id to t's roster.  If any id is held by a sibling
// nothing is added.
func AssignAll(t model.TourInstance, siblings []model.TourInstance, ids []string) (model.TourInstance, error) {
	next := t.ReservationIDs.Clone()
	for _, id := range ids {
		for _, s := range siblings {
			if s.ID != t.ID && s.ReservationIDs.Has(id) {
				return t, &AlreadyAssignedError{ReservationID: id, TourID: s.ID}
			}
		}
		next[id] = struct{}{}
	}
	return t.WithReservations(next), nil
}

// Unassign removes id from t's roster; absent ids are ignored.
func Unassign(t model.TourInstance, id string) model.TourInstance {
	return t.WithReservations(t.ReservationIDs.Without(id))
}

// UnassignAll empties t's roster.
func UnassignAll(t model.TourInstance) model.TourInstance {
	return t.WithReservations(model.NewReservationSet())
}

// CheckPartition verifies that no reservation id appears on two siblings.
func CheckPartition(siblings []model.TourInstance) error {
	seen := make(map[string]string)
	for _, s := range siblings {
		for id := range s.ReservationIDs {
			if other, ok := seen[id]; ok && other != s.ID {
				tours := []string{other, s.ID}
				sort.Strings(tours)
				return &InvariantViolation{ReservationID: id, TourIDs: tours}
			}
			seen[id] = s.ID
		}
	}
	return nil
}

// owner returns the id of the sibling holding reservation id, or "".
func owner(siblings []model.TourInstance, id string) string {
	for _, s := range siblings {
		if s.ReservationIDs.Has(id) {
			return s.ID
		}
	}
	return ""
}
