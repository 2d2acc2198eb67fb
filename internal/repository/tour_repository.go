package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/tour-backoffice/internal/model"
)

// TourRepo stores tour instances and their rosters.  A roster is the set
// of tour_reservations rows for one tour.
type TourRepo struct {
    db *sql.DB
}

// NewTourRepo returns a new TourRepo bound to the given database.
func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

const tourColumns = `id, product_id, tour_date, guide_id, assistant_id, prepaid_gratuity`

func scanTour(row interface{ Scan(...any) error }) (model.TourInstance, error) {
    var (
        t         model.TourInstance
        date      time.Time
        assistant sql.NullString
    )
    if err := row.Scan(&t.ID, &t.ProductID, &date, &t.GuideID, &assistant, &t.Gratuity); err != nil {
        return model.TourInstance{}, err
    }
    t.TourDate = date.Format(model.TourDateLayout)
    if assistant.Valid && assistant.String != "" {
        a := assistant.String
        t.AssistantID = &a
    }
    t.ReservationIDs = model.NewReservationSet()
    return t, nil
}

// Get returns a tour with its roster, or model.ErrTourNotFound.
func (r *TourRepo) Get(ctx context.Context, tourID string) (model.TourInstance, error) {
    t, err := scanTour(r.db.QueryRowContext(ctx,
        `SELECT `+tourColumns+` FROM tours WHERE id = ?`, tourID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return model.TourInstance{}, model.ErrTourNotFound
        }
        return model.TourInstance{}, err
    }
    tours := []model.TourInstance{t}
    if err := r.attachRosters(ctx, tours); err != nil {
        return model.TourInstance{}, err
    }
    return tours[0], nil
}

// ListSiblings returns every tour of the product on the date, ordered by
// id, each with its roster.
func (r *TourRepo) ListSiblings(ctx context.Context, productID, tourDate string) ([]model.TourInstance, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+tourColumns+` FROM tours WHERE product_id = ? AND tour_date = ? ORDER BY id`,
        productID, tourDate)
    if err != nil {
        return nil, err
    }
    var tours []model.TourInstance
    for rows.Next() {
        t, err := scanTour(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        tours = append(tours, t)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return nil, err
    }
    rows.Close()
    if err := r.attachRosters(ctx, tours); err != nil {
        return nil, err
    }
    return tours, nil
}

// attachRosters loads tour_reservations for all tours in one query.
func (r *TourRepo) attachRosters(ctx context.Context, tours []model.TourInstance) error {
    if len(tours) == 0 {
        return nil
    }
    index := make(map[string]int, len(tours))
    args := make([]interface{}, 0, len(tours))
    for i, t := range tours {
        index[t.ID] = i
        args = append(args, t.ID)
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT tour_id, reservation_id FROM tour_reservations WHERE tour_id IN (`+placeholders(len(tours))+`)`,
        args...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var tourID, resID string
        if err := rows.Scan(&tourID, &resID); err != nil {
            return err
        }
        if i, ok := index[tourID]; ok {
            tours[i].ReservationIDs[resID] = struct{}{}
        }
    }
    return rows.Err()
}

// SetReservationIDs replaces a tour's roster with next, provided the
// stored roster still equals prev.  The tour row is locked for the whole
// transaction.  A stored roster that moved on since the caller read it,
// or an id already held by another tour, yields model.ErrRosterChanged
// and nothing is written.
func (r *TourRepo) SetReservationIDs(ctx context.Context, tourID string, prev, next model.ReservationSet) (err error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback()
        } else {
            err = tx.Commit()
        }
    }()

    // Lock the parent row; it also tells us whether the tour exists.
    var one int
    if err = tx.QueryRowContext(ctx, `SELECT 1 FROM tours WHERE id = ? FOR UPDATE`, tourID).Scan(&one); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            err = model.ErrTourNotFound
        }
        return err
    }
    current, err := rosterOf(ctx, tx, tourID)
    if err != nil {
        return err
    }
    if !current.Equal(prev) {
        return model.ErrRosterChanged
    }

    removed, added := diffRoster(current, next)
    if len(removed) > 0 {
        args := make([]interface{}, 0, len(removed)+1)
        args = append(args, tourID)
        for _, id := range removed {
            args = append(args, id)
        }
        if _, err = tx.ExecContext(ctx,
            `DELETE FROM tour_reservations WHERE tour_id = ? AND reservation_id IN (`+placeholders(len(removed))+`)`,
            args...); err != nil {
            return err
        }
    }
    if len(added) == 0 {
        return nil
    }
    query := `INSERT INTO tour_reservations (tour_id, reservation_id) VALUES `
    args := make([]interface{}, 0, len(added)*2)
    for i, id := range added {
        if i > 0 {
            query += ","
        }
        query += "(?, ?)"
        args = append(args, tourID, id)
    }
    if _, err = tx.ExecContext(ctx, query, args...); err != nil {
        if isDuplicate(err) {
            err = model.ErrRosterChanged
        }
        return err
    }
    return nil
}

func rosterOf(ctx context.Context, tx *sql.Tx, tourID string) (model.ReservationSet, error) {
    rows, err := tx.QueryContext(ctx, `SELECT reservation_id FROM tour_reservations WHERE tour_id = ?`, tourID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    set := model.NewReservationSet()
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        set[id] = struct{}{}
    }
    return set, rows.Err()
}

// diffRoster returns the ids to delete and to insert, both sorted.
func diffRoster(current, next model.ReservationSet) (removed, added []string) {
    for _, id := range current.IDs() {
        if !next.Has(id) {
            removed = append(removed, id)
        }
    }
    for _, id := range next.IDs() {
        if !current.Has(id) {
            added = append(added, id)
        }
    }
    return removed, added
}

func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.Repeat("?,", n-1) + "?"
}

// Create schedules a new tour and returns it with a generated id.
func (r *TourRepo) Create(ctx context.Context, t model.TourInstance) (model.TourInstance, error) {
    t.ID = uuid.NewString()
    var assistant interface{}
    if t.HasAssistant() {
        assistant = *t.AssistantID
    }
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO tours (id, product_id, tour_date, guide_id, assistant_id, prepaid_gratuity) VALUES (?, ?, ?, ?, ?, ?)`,
        t.ID, t.ProductID, t.TourDate, t.GuideID, assistant, t.Gratuity)
    if err != nil {
        return model.TourInstance{}, err
    }
    t.ReservationIDs = model.NewReservationSet()
    return t, nil
}

// Delete cancels a tour.  Its roster rows and ledger cascade, which puts
// every reservation it held back into pending.
func (r *TourRepo) Delete(ctx context.Context, tourID string) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, tourID)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return model.ErrTourNotFound
    }
    return nil
}
