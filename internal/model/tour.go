package model

import (
    "errors"
    "sort"

    "github.com/iliyamo/tour-backoffice/internal/money"
)

var (
    // ErrTourNotFound is returned by stores when a tour id is unknown.
    ErrTourNotFound = errors.New("tour not found")
    // ErrRosterChanged is returned by a conditional roster write when the
    // stored roster no longer matches what the caller read, or when a
    // sibling already holds one of the ids being written.
    ErrRosterChanged = errors.New("roster changed by a concurrent edit")
)

// ReservationSet is an unordered set of reservation identifiers.  Callers
// must not rely on iteration order; IDs returns a sorted copy for stable
// output.
type ReservationSet map[string]struct{}

// NewReservationSet builds a set from ids, ignoring blanks and duplicates.
func NewReservationSet(ids ...string) ReservationSet {
    s := make(ReservationSet, len(ids))
    for _, id := range ids {
        if id != "" {
            s[id] = struct{}{}
        }
    }
    return s
}

// Has reports whether id is in the set.
func (s ReservationSet) Has(id string) bool {
    _, ok := s[id]
    return ok
}

// Len returns the number of ids.
func (s ReservationSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s ReservationSet) Clone() ReservationSet {
    out := make(ReservationSet, len(s))
    for id := range s {
        out[id] = struct{}{}
    }
    return out
}

// Equal reports whether both sets hold the same ids.
func (s ReservationSet) Equal(o ReservationSet) bool {
    if len(s) != len(o) {
        return false
    }
    for id := range s {
        if !o.Has(id) {
            return false
        }
    }
    return true
}

// With returns a copy of the set that also contains id.
func (s ReservationSet) With(id string) ReservationSet {
    out := s.Clone()
    out[id] = struct{}{}
    return out
}

// Without returns a copy of the set that does not contain id.
func (s ReservationSet) Without(id string) ReservationSet {
    out := s.Clone()
    delete(out, id)
    return out
}

// IDs returns the members sorted ascending.
func (s ReservationSet) IDs() []string {
    out := make([]string, 0, len(s))
    for id := range s {
        out = append(out, id)
    }
    sort.Strings(out)
    return out
}

// TourInstance is one schedulable departure of a product on a date.
// Several instances may share ProductID and TourDate; together they form
// a sibling group that splits the reservations for that product and day.
//
// Fields:
//  ID             – tour identifier.
//  ProductID      – product being operated.
//  TourDate       – calendar date in YYYY-MM-DD form.
//  ReservationIDs – roster of reservations riding on this instance.
//  GuideID        – staff member leading the tour.
//  AssistantID    – optional second staff member.
//  Gratuity       – prepaid gratuity pool collected for the tour.
type TourInstance struct {
    ID             string         // tours.id
    ProductID      string         // tours.product_id
    TourDate       string         // tours.tour_date
    ReservationIDs ReservationSet // tour_reservations rows
    GuideID        string         // tours.guide_id
    AssistantID    *string        // tours.assistant_id (nullable)
    Gratuity       money.Amount   // tours.prepaid_gratuity
}

// HasAssistant reports whether an assistant is scheduled.
func (t TourInstance) HasAssistant() bool {
    return t.AssistantID != nil && *t.AssistantID != ""
}

// SiblingOf reports whether o shares this tour's product and date.
func (t TourInstance) SiblingOf(o TourInstance) bool {
    return t.ProductID == o.ProductID && t.TourDate == o.TourDate
}

// WithReservations returns a copy of the tour carrying ids as its roster.
func (t TourInstance) WithReservations(ids ReservationSet) TourInstance {
    t.ReservationIDs = ids.Clone()
    return t
}
