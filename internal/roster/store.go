package roster

import (
	"context"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/queue"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go

// ReservationStore is the read-only view of the booking system.
type ReservationStore interface {
	ListByProductAndDate(ctx context.Context, productID, tourDate string) ([]model.Reservation, error)
}

// TourStore persists tour instances and their rosters.  Get returns
// ErrTourNotFound for unknown ids.  SetReservationIDs writes next only
// while the stored roster still equals prev and no other tour holds any
// of next's ids; otherwise it returns ErrRosterChanged.
type TourStore interface {
	Get(ctx context.Context, tourID string) (model.TourInstance, error)
	ListSiblings(ctx context.Context, productID, tourDate string) ([]model.TourInstance, error)
	SetReservationIDs(ctx context.Context, tourID string, prev, next model.ReservationSet) error
}

// EventPublisher announces persisted roster changes.
type EventPublisher interface {
	PublishRosterChanged(ctx context.Context, ev queue.RosterChangedEvent) error
}

// Locker serialises edits to one sibling group across sessions.  The
// returned release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
