package model

import (
    "fmt"
    "strings"
    "time"
)

// ReservationStatus is the lifecycle state of a customer booking.
type ReservationStatus string

const (
    StatusPending    ReservationStatus = "PENDING"
    StatusRecruiting ReservationStatus = "RECRUITING"
    StatusConfirmed  ReservationStatus = "CONFIRMED"
    StatusCompleted  ReservationStatus = "COMPLETED"
    StatusCancelled  ReservationStatus = "CANCELLED"
)

// CountsTowardCapacity reports whether reservations in this state take
// up space on a tour.  Only RECRUITING and CONFIRMED bookings do;
// everything else is excluded from headcount math even when it is still
// listed on a roster.
func (s ReservationStatus) CountsTowardCapacity() bool {
    return s == StatusRecruiting || s == StatusConfirmed
}

// ParseReservationStatus normalises a stored status value.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
    s := ReservationStatus(strings.ToUpper(strings.TrimSpace(raw)))
    switch s {
    case StatusPending, StatusRecruiting, StatusConfirmed, StatusCompleted, StatusCancelled:
        return s, nil
    }
    return "", fmt.Errorf("unknown reservation status %q", raw)
}

// TourDateLayout is the calendar-date format used for tour dates.
const TourDateLayout = "2006-01-02"

// ParseTourDate validates a YYYY-MM-DD calendar date and returns it in
// canonical form.
func ParseTourDate(raw string) (string, error) {
    t, err := time.Parse(TourDateLayout, strings.TrimSpace(raw))
    if err != nil {
        return "", fmt.Errorf("invalid tour date %q: %w", raw, err)
    }
    return t.Format(TourDateLayout), nil
}

// Reservation records a customer's booking for a product on a given
// date.  Reservations are owned by the booking system; this service only
// reads them and decides which tour instance each one rides on.
//
// Fields:
//  ID           – reservation identifier.
//  ProductID    – product (tour type) being booked.
//  TourDate     – calendar date in YYYY-MM-DD form.
//  CustomerName – lead passenger name for display.
//  Adults       – adult passenger count.
//  Children     – child passenger count.
//  Infants      – infant passenger count.
//  TotalPeople  – authoritative passenger total used for capacity.
//  Status       – booking state (PENDING, RECRUITING, CONFIRMED,
//                 COMPLETED, CANCELLED).
type Reservation struct {
    ID           string            `json:"id"`            // reservations.id
    ProductID    string            `json:"product_id"`    // reservations.product_id
    TourDate     string            `json:"tour_date"`     // reservations.tour_date
    CustomerName string            `json:"customer_name"` // reservations.customer_name
    Adults       uint32            `json:"adults"`        // reservations.adults
    Children     uint32            `json:"children"`      // reservations.children
    Infants      uint32            `json:"infants"`       // reservations.infants
    TotalPeople  uint32            `json:"total_people"`  // reservations.total_people
    Status       ReservationStatus `json:"status"`        // reservations.status
}

// Headcount is the sum of the passenger categories.  It is not used for
// capacity; TotalPeople is.  The two are expected to agree and
// HeadcountMismatch flags records where they do not.
func (r Reservation) Headcount() uint32 {
    return r.Adults + r.Children + r.Infants
}

// HeadcountMismatch reports whether the category counts disagree with
// TotalPeople.  Records with no category breakdown are not flagged.
func (r Reservation) HeadcountMismatch() bool {
    h := r.Headcount()
    return h != 0 && h != r.TotalPeople
}
