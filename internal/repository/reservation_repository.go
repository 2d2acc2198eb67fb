package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/iliyamo/tour-backoffice/internal/model"
)

// ReservationRepo reads bookings written by the booking system.  This
// service never changes a reservation; it only decides which tour a
// reservation rides on, and that lives in tour_reservations.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ListByProductAndDate returns every reservation for the product on the
// given YYYY-MM-DD date, whatever its status, ordered by id.
func (r *ReservationRepo) ListByProductAndDate(ctx context.Context, productID, tourDate string) ([]model.Reservation, error) {
    const q = `SELECT id, product_id, tour_date, customer_name, adults, children, infants, total_people, status
               FROM reservations
               WHERE product_id = ? AND tour_date = ?
               ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, productID, tourDate)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.Reservation
    for rows.Next() {
        var (
            res    model.Reservation
            date   time.Time
            status string
        )
        if err := rows.Scan(&res.ID, &res.ProductID, &date, &res.CustomerName,
            &res.Adults, &res.Children, &res.Infants, &res.TotalPeople, &status); err != nil {
            return nil, err
        }
        res.TourDate = date.Format(model.TourDateLayout)
        if res.Status, err = model.ParseReservationStatus(status); err != nil {
            return nil, fmt.Errorf("reservation %s: %w", res.ID, err)
        }
        out = append(out, res)
    }
    return out, rows.Err()
}
