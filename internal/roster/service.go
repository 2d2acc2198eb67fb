package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/queue"
)

// View is everything the roster screen shows for one tour.  It is always
// built from a fresh store read.
type View struct {
	Tour      model.TourInstance  `json:"-"`
	TourID    string              `json:"tour_id"`
	ProductID string              `json:"product_id"`
	TourDate  string              `json:"tour_date"`
	Assigned  []model.Reservation `json:"assigned"`
	Elsewhere []Elsewhere         `json:"assigned_elsewhere"`
	Pending   []model.Reservation `json:"pending"`
	Capacity  Summary             `json:"capacity"`
}

// Service applies roster edits against the stores.  It holds no roster
// state between calls.
type Service struct {
	reservations ReservationStore
	tours        TourStore
	events       EventPublisher
	locker       Locker
	log          *zap.Logger
}

// NewService wires a Service.  events and locker may be nil.
func NewService(reservations ReservationStore, tours TourStore, events EventPublisher, locker Locker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{reservations: reservations, tours: tours, events: events, locker: locker, log: log}
}

// group is a fresh read of a sibling group.
type group struct {
	target   model.TourInstance
	siblings []model.TourInstance
	pool     []model.Reservation
}

func (g group) sibling(id string) (model.TourInstance, bool) {
	for _, s := range g.siblings {
		if s.ID == id {
			return s, true
		}
	}
	return model.TourInstance{}, false
}

func (g group) inPool(id string) bool {
	for _, r := range g.pool {
		if r.ID == id {
			return true
		}
	}
	return false
}

// maxWriteAttempts bounds how often one edit is recomputed after the
// store reports ErrRosterChanged.
const maxWriteAttempts = 3

// GroupKey is the lock key of a sibling group.
func GroupKey(productID, tourDate string) string {
	return productID + ":" + tourDate
}

// View re-derives the roster screen for tourID.
func (s *Service) View(ctx context.Context, tourID string) (View, error) {
	g, err := s.load(ctx, tourID)
	if err != nil {
		return View{}, err
	}
	return s.view(g), nil
}

// Assign puts ids on tourID's roster.  Either all ids are added or none.
func (s *Service) Assign(ctx context.Context, tourID string, ids ...string) (View, error) {
	return s.mutate(ctx, tourID, "assign", ids, func(g group) (model.TourInstance, error) {
		for _, id := range ids {
			if !g.inPool(id) {
				return g.target, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
			}
		}
		return AssignAll(g.target, g.siblings, ids)
	})
}

// Unassign takes id off tourID's roster.  Missing ids are not an error.
func (s *Service) Unassign(ctx context.Context, tourID, id string) (View, error) {
	return s.mutate(ctx, tourID, "unassign", []string{id}, func(g group) (model.TourInstance, error) {
		return Unassign(g.target, id), nil
	})
}

// UnassignAll empties tourID's roster.
func (s *Service) UnassignAll(ctx context.Context, tourID string) (View, error) {
	return s.mutate(ctx, tourID, "unassign_all", nil, func(g group) (model.TourInstance, error) {
		return UnassignAll(g.target), nil
	})
}

// Reassign moves id from fromID to toID.  The release is written before
// the assign so that a failure between the two leaves the reservation
// pending instead of on two rosters.  The returned view is for toID, or
// for fromID when the assign did not go through.
func (s *Service) Reassign(ctx context.Context, fromID, toID, id string) (View, error) {
	if fromID == toID {
		return s.Assign(ctx, toID, id)
	}
	from, err := s.getTour(ctx, fromID)
	if err != nil {
		return View{}, err
	}
	release, err := s.lock(ctx, from)
	if err != nil {
		return View{}, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		g, err := s.loadGroup(ctx, from)
		if err != nil {
			return View{}, err
		}
		if _, ok := g.sibling(toID); !ok {
			if _, err := s.getTour(ctx, toID); err != nil {
				return View{}, err
			}
			return View{}, ErrNotSiblings
		}
		if !g.inPool(id) {
			return View{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
		}
		// The new owner must be free of conflicts apart from the old one.
		for _, sib := range g.siblings {
			if sib.ID != g.target.ID && sib.ID != toID && sib.ReservationIDs.Has(id) {
				return View{}, &AlreadyAssignedError{ReservationID: id, TourID: sib.ID}
			}
		}
		if !g.target.ReservationIDs.Has(id) {
			break
		}
		released := Unassign(g.target, id)
		err = s.tours.SetReservationIDs(ctx, released.ID, g.target.ReservationIDs, released.ReservationIDs)
		if err == nil {
			break
		}
		if errors.Is(err, ErrRosterChanged) {
			if attempt < maxWriteAttempts {
				continue
			}
			s.log.Warn("reassign release kept conflicting", zap.String("tour_id", fromID), zap.String("reservation_id", id))
			return View{}, ErrGroupBusy
		}
		s.log.Error("reassign release failed",
			zap.String("tour_id", fromID), zap.String("reservation_id", id), zap.Error(err))
		return View{}, storeErr("release reservation", err)
	}

	// Re-read before the second write; the first may have raced.
	for attempt := 1; ; attempt++ {
		g2, err := s.load(ctx, toID)
		if err != nil {
			return s.partial(ctx, fromID, toID, id, err)
		}
		assigned, err := Assign(g2.target, g2.siblings, id)
		if err != nil {
			return s.partial(ctx, fromID, toID, id, err)
		}
		err = s.tours.SetReservationIDs(ctx, assigned.ID, g2.target.ReservationIDs, assigned.ReservationIDs)
		if err == nil {
			break
		}
		if errors.Is(err, ErrRosterChanged) {
			if attempt < maxWriteAttempts {
				continue
			}
			return s.partial(ctx, fromID, toID, id, ErrGroupBusy)
		}
		return s.partial(ctx, fromID, toID, id, storeErr("assign reservation", err))
	}

	g3, err := s.load(ctx, toID)
	if err != nil {
		return View{}, err
	}
	s.publish(ctx, "reassign", g3, []string{fromID, toID}, []string{id}, false)
	s.log.Info("reservation reassigned",
		zap.String("reservation_id", id), zap.String("from_tour_id", fromID), zap.String("to_tour_id", toID))
	return s.view(g3), nil
}

func (s *Service) partial(ctx context.Context, fromID, toID, id string, cause error) (View, error) {
	perr := &PartialReassignError{ReservationID: id, FromTourID: fromID, ToTourID: toID, Err: cause}
	s.log.Warn("reassign left reservation pending",
		zap.String("reservation_id", id), zap.String("from_tour_id", fromID),
		zap.String("to_tour_id", toID), zap.Error(cause))
	g, err := s.load(ctx, fromID)
	if err != nil {
		return View{}, perr
	}
	s.publish(ctx, "reassign", g, []string{fromID, toID}, []string{id}, true)
	return s.view(g), perr
}

// mutate runs one single-write edit on tourID under the group lock and
// returns the re-derived view.  An edit that loses a race to another
// writer is recomputed from a fresh read, up to maxWriteAttempts times.
func (s *Service) mutate(ctx context.Context, tourID, action string, ids []string, edit func(group) (model.TourInstance, error)) (View, error) {
	t, err := s.getTour(ctx, tourID)
	if err != nil {
		return View{}, err
	}
	release, err := s.lock(ctx, t)
	if err != nil {
		return View{}, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		g, err := s.loadGroup(ctx, t)
		if err != nil {
			return View{}, err
		}
		next, err := edit(g)
		if err != nil {
			return View{}, err
		}
		err = s.tours.SetReservationIDs(ctx, next.ID, g.target.ReservationIDs, next.ReservationIDs)
		if err == nil {
			if action == "unassign_all" {
				ids = g.target.ReservationIDs.IDs()
			}
			break
		}
		if !errors.Is(err, ErrRosterChanged) {
			s.log.Error("roster write failed", zap.String("tour_id", tourID), zap.String("action", action), zap.Error(err))
			return View{}, storeErr("set reservation ids", err)
		}
		if attempt == maxWriteAttempts {
			s.log.Warn("roster write kept conflicting", zap.String("tour_id", tourID), zap.String("action", action))
			return View{}, ErrGroupBusy
		}
		s.log.Debug("roster changed since read; retrying", zap.String("tour_id", tourID), zap.Int("attempt", attempt))
	}

	fresh, err := s.loadGroup(ctx, t)
	if err != nil {
		return View{}, err
	}
	s.publish(ctx, action, fresh, []string{tourID}, ids, false)
	return s.view(fresh), nil
}

func (s *Service) getTour(ctx context.Context, tourID string) (model.TourInstance, error) {
	t, err := s.tours.Get(ctx, tourID)
	if err != nil {
		if errors.Is(err, ErrTourNotFound) {
			return model.TourInstance{}, ErrTourNotFound
		}
		return model.TourInstance{}, storeErr("get tour", err)
	}
	return t, nil
}

func (s *Service) load(ctx context.Context, tourID string) (group, error) {
	t, err := s.getTour(ctx, tourID)
	if err != nil {
		return group{}, err
	}
	return s.loadGroup(ctx, t)
}

// loadGroup reads the siblings and reservations of t.  The target is
// taken from the sibling list so every view shares one snapshot.
func (s *Service) loadGroup(ctx context.Context, t model.TourInstance) (group, error) {
	siblings, err := s.tours.ListSiblings(ctx, t.ProductID, t.TourDate)
	if err != nil {
		return group{}, storeErr("list siblings", err)
	}
	pool, err := s.reservations.ListByProductAndDate(ctx, t.ProductID, t.TourDate)
	if err != nil {
		return group{}, storeErr("list reservations", err)
	}
	g := group{target: t, siblings: siblings, pool: pool}
	if fresh, ok := g.sibling(t.ID); ok {
		g.target = fresh
	} else {
		g.siblings = append(g.siblings, t)
	}
	if err := CheckPartition(g.siblings); err != nil {
		s.log.Error("roster partition broken", zap.String("product_id", t.ProductID),
			zap.String("tour_date", t.TourDate), zap.Error(err))
	}
	return g, nil
}

func (s *Service) view(g group) View {
	return View{
		Tour:      g.target,
		TourID:    g.target.ID,
		ProductID: g.target.ProductID,
		TourDate:  g.target.TourDate,
		Assigned:  AssignedTo(g.target, g.pool),
		Elsewhere: AssignedElsewhere(g.target, g.siblings, g.pool),
		Pending:   Pending(g.siblings, g.pool),
		Capacity:  Summarize(g.siblings, g.pool),
	}
}

func (s *Service) lock(ctx context.Context, t model.TourInstance) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Lock(ctx, GroupKey(t.ProductID, t.TourDate))
	if err != nil {
		if errors.Is(err, ErrGroupBusy) {
			return nil, ErrGroupBusy
		}
		// Without the lock, conditional roster writes still keep each
		// reservation on at most one tour.
		s.log.Warn("group lock unavailable", zap.String("tour_id", t.ID), zap.Error(err))
		return func() {}, nil
	}
	return release, nil
}

// publish is best effort; a lost event never fails a persisted write.
func (s *Service) publish(ctx context.Context, action string, g group, tourIDs, ids []string, partial bool) {
	if s.events == nil {
		return
	}
	rosters := make(map[string][]string, len(g.siblings))
	for _, sib := range g.siblings {
		rosters[sib.ID] = sib.ReservationIDs.IDs()
	}
	ev := queue.RosterChangedEvent{
		EventID:        uuid.NewString(),
		Action:         action,
		ProductID:      g.target.ProductID,
		TourDate:       g.target.TourDate,
		TourIDs:        tourIDs,
		ReservationIDs: ids,
		Rosters:        rosters,
		Partial:        partial,
		ChangedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishRosterChanged(ctx, ev); err != nil {
		s.log.Warn("publish roster event failed", zap.String("action", action), zap.Error(err))
	}
}
