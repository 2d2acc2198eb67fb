package roster

import "github.com/iliyamo/tour-backoffice/internal/model"

// TourCapacity is one sibling's headcount.
type TourCapacity struct {
	TourID   string `json:"tour_id"`
	Assigned uint64 `json:"assigned"`
}

// Summary is the capacity picture of a whole sibling group.
type Summary struct {
	Tours      []TourCapacity `json:"tours"`
	Total      uint64         `json:"total"`
	Unassigned int64          `json:"unassigned"`
	Pending    uint64         `json:"pending_headcount"`
}

// AssignedCount is the headcount riding on t.
func AssignedCount(t model.TourInstance, pool []model.Reservation) uint64 {
	return headcount(AssignedTo(t, pool))
}

// TotalCount is the demand for the whole product and date.
func TotalCount(pool []model.Reservation) uint64 {
	var n uint64
	for _, r := range pool {
		if r.Status.CountsTowardCapacity() {
			n += uint64(r.TotalPeople)
		}
	}
	return n
}

// UnassignedCount is TotalCount minus everything assigned across the
// group.  It is signed so that a broken partition shows up as a negative
// value rather than wrapping.
func UnassignedCount(siblings []model.TourInstance, pool []model.Reservation) int64 {
	n := int64(TotalCount(pool))
	for _, s := range siblings {
		n -= int64(AssignedCount(s, pool))
	}
	return n
}

// PendingHeadcount sums the capacity-counting pending reservations.  For a
// valid partition it equals UnassignedCount.
func PendingHeadcount(siblings []model.TourInstance, pool []model.Reservation) uint64 {
	var n uint64
	for _, r := range Pending(siblings, pool) {
		if r.Status.CountsTowardCapacity() {
			n += uint64(r.TotalPeople)
		}
	}
	return n
}

// Summarize builds the per-tour capacity rows plus group totals.
func Summarize(siblings []model.TourInstance, pool []model.Reservation) Summary {
	s := Summary{
		Tours:      make([]TourCapacity, 0, len(siblings)),
		Total:      TotalCount(pool),
		Unassigned: UnassignedCount(siblings, pool),
		Pending:    PendingHeadcount(siblings, pool),
	}
	for _, t := range siblings {
		s.Tours = append(s.Tours, TourCapacity{TourID: t.ID, Assigned: AssignedCount(t, pool)})
	}
	return s
}

func headcount(rs []model.Reservation) uint64 {
	var n uint64
	for _, r := range rs {
		n += uint64(r.TotalPeople)
	}
	return n
}
