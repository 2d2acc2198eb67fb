// Package queue defines message payloads exchanged over the message broker
// and the audit consumer that reads them back.
package queue

// Queue names.  Each doubles as the routing key on the default exchange.
const (
    RosterChangedQueue   = "tour.roster.changed"
    AllocationSavedQueue = "tour.allocation.saved"
)

// RosterChangedEvent is published after a roster write has been persisted.
// It carries the post-write roster of every tour that was touched so that
// consumers never need to query the primary database.
type RosterChangedEvent struct {
    EventID        string              `json:"event_id"`
    Action         string              `json:"action"` // assign, unassign, unassign_all, reassign
    ProductID      string              `json:"product_id"`
    TourDate       string              `json:"tour_date"`
    TourIDs        []string            `json:"tour_ids"`
    ReservationIDs []string            `json:"reservation_ids"`
    Rosters        map[string][]string `json:"rosters"`
    Partial        bool                `json:"partial,omitempty"`
    ChangedAt      string              `json:"changed_at"`
}

// AllocationSavedEvent is published after a ledger has been saved.
type AllocationSavedEvent struct {
    EventID      string  `json:"event_id"`
    TourID       string  `json:"tour_id"`
    Action       string  `json:"action"` // initialize, rebase, set_top, toggle_member, set_member
    Pool         float64 `json:"pool"`
    GuidePercent float64 `json:"guide_percent"`
    AssistantPct float64 `json:"assistant_percent"`
    OpPercent    float64 `json:"op_percent"`
    OpMembers    int     `json:"op_members"`
    SavedAt      string  `json:"saved_at"`
}
