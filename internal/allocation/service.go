package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/money"
	"github.com/iliyamo/tour-backoffice/internal/queue"
)

// Store persists ledgers.  Load reports found=false when the tour has no
// ledger yet; a ledger whose member rows are missing loads with no OP
// members.  Save also records the ledger's pool as the tour's prepaid
// gratuity, so the two never disagree.
type Store interface {
	Load(ctx context.Context, tourID string) (model.AllocationLedger, bool, error)
	Save(ctx context.Context, l model.AllocationLedger) error
}

// TourReader looks up the tour a ledger belongs to.
type TourReader interface {
	Get(ctx context.Context, tourID string) (model.TourInstance, error)
}

// EventPublisher announces saved ledgers.
type EventPublisher interface {
	PublishAllocationSaved(ctx context.Context, ev queue.AllocationSavedEvent) error
}

// Service loads a ledger, applies one engine operation and saves the
// result.  Nothing is cached between calls.
type Service struct {
	store  Store
	tours  TourReader
	events EventPublisher
	log    *zap.Logger
}

// NewService wires a Service.  events may be nil.
func NewService(store Store, tours TourReader, events EventPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, tours: tours, events: events, log: log}
}

// Get returns the tour's ledger.  When none exists, the default split is
// created and saved over the tour's prepaid gratuity, or over pool when
// the caller passes one.  A missing ledger on a tour with nothing to
// split yields ErrNoLedger.
func (s *Service) Get(ctx context.Context, tourID string, pool *money.Amount) (model.AllocationLedger, error) {
	l, found, err := s.load(ctx, tourID)
	if err != nil {
		return model.AllocationLedger{}, err
	}
	if found {
		return l, nil
	}
	tour, err := s.tour(ctx, tourID)
	if err != nil {
		return model.AllocationLedger{}, err
	}
	base := tour.Gratuity
	if pool != nil {
		base = *pool
	}
	if base.IsZero() {
		return model.AllocationLedger{}, ErrNoLedger
	}
	return s.save(ctx, "initialize", Initialize(tour, base))
}

// SetPool rebases the ledger onto a new pool, creating it if needed.
func (s *Service) SetPool(ctx context.Context, tourID string, pool money.Amount) (model.AllocationLedger, error) {
	l, found, err := s.load(ctx, tourID)
	if err != nil {
		return model.AllocationLedger{}, err
	}
	if !found {
		tour, err := s.tour(ctx, tourID)
		if err != nil {
			return model.AllocationLedger{}, err
		}
		return s.save(ctx, "initialize", Initialize(tour, pool))
	}
	next, err := Rebase(l, pool)
	if err != nil {
		return s.violation(tourID, l, err)
	}
	return s.save(ctx, "rebase", next)
}

// SetTopPercent applies SetTopPercent to the stored ledger.
func (s *Service) SetTopPercent(ctx context.Context, tourID string, key model.TopKey, pct float64) (model.AllocationLedger, error) {
	return s.apply(ctx, tourID, "set_top", func(l model.AllocationLedger) (model.AllocationLedger, error) {
		return SetTopPercent(l, key, pct)
	})
}

// SetTopAmount applies SetTopAmount to the stored ledger.
func (s *Service) SetTopAmount(ctx context.Context, tourID string, key model.TopKey, amt float64) (model.AllocationLedger, error) {
	return s.apply(ctx, tourID, "set_top", func(l model.AllocationLedger) (model.AllocationLedger, error) {
		return SetTopAmount(l, key, amt)
	})
}

// ToggleOpMember applies ToggleOpMember to the stored ledger.
func (s *Service) ToggleOpMember(ctx context.Context, tourID, memberID string, included bool) (model.AllocationLedger, error) {
	return s.apply(ctx, tourID, "toggle_member", func(l model.AllocationLedger) (model.AllocationLedger, error) {
		return ToggleOpMember(l, memberID, included)
	})
}

// SetOpMemberPercent applies SetOpMemberPercent to the stored ledger.
func (s *Service) SetOpMemberPercent(ctx context.Context, tourID, memberID string, pct float64) (model.AllocationLedger, error) {
	return s.apply(ctx, tourID, "set_member", func(l model.AllocationLedger) (model.AllocationLedger, error) {
		return SetOpMemberPercent(l, memberID, pct)
	})
}

// SetOpMemberAmount applies SetOpMemberAmount to the stored ledger.
func (s *Service) SetOpMemberAmount(ctx context.Context, tourID, memberID string, amt float64) (model.AllocationLedger, error) {
	return s.apply(ctx, tourID, "set_member", func(l model.AllocationLedger) (model.AllocationLedger, error) {
		return SetOpMemberAmount(l, memberID, amt)
	})
}

func (s *Service) apply(ctx context.Context, tourID, action string, edit func(model.AllocationLedger) (model.AllocationLedger, error)) (model.AllocationLedger, error) {
	l, found, err := s.load(ctx, tourID)
	if err != nil {
		return model.AllocationLedger{}, err
	}
	if !found {
		return model.AllocationLedger{}, ErrNoLedger
	}
	next, err := edit(l)
	if err != nil {
		if IsInvariantViolation(err) {
			return s.violation(tourID, l, err)
		}
		return l, err
	}
	return s.save(ctx, action, next)
}

// violation logs an engine defect.  The caller gets the stored ledger back
// so the screen shows persisted state, not the broken result.
func (s *Service) violation(tourID string, stored model.AllocationLedger, err error) (model.AllocationLedger, error) {
	s.log.Error("allocation invariant violated", zap.String("tour_id", tourID), zap.Error(err))
	return stored, err
}

func (s *Service) load(ctx context.Context, tourID string) (model.AllocationLedger, bool, error) {
	l, found, err := s.store.Load(ctx, tourID)
	if err != nil {
		s.log.Error("load ledger failed", zap.String("tour_id", tourID), zap.Error(err))
		return model.AllocationLedger{}, false, &StoreError{Op: "load ledger", Err: err}
	}
	if found {
		if verr := Validate(l); verr != nil {
			// Stored rows that do not close are re-split from their
			// top-level percents, which is all the engine trusts.
			s.log.Warn("stored ledger does not validate; rebasing", zap.String("tour_id", tourID), zap.Error(verr))
			if fixed, rerr := Rebase(l, l.Pool); rerr == nil {
				l = fixed
			}
		}
	}
	return l, found, nil
}

func (s *Service) tour(ctx context.Context, tourID string) (model.TourInstance, error) {
	t, err := s.tours.Get(ctx, tourID)
	if err != nil {
		if errors.Is(err, ErrTourNotFound) {
			return model.TourInstance{}, ErrTourNotFound
		}
		return model.TourInstance{}, &StoreError{Op: "get tour", Err: err}
	}
	return t, nil
}

func (s *Service) save(ctx context.Context, action string, l model.AllocationLedger) (model.AllocationLedger, error) {
	l.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, l); err != nil {
		s.log.Error("save ledger failed", zap.String("tour_id", l.TourID), zap.String("action", action), zap.Error(err))
		return model.AllocationLedger{}, &StoreError{Op: "save ledger", Err: err}
	}
	s.publish(ctx, action, l)
	return l, nil
}

func (s *Service) publish(ctx context.Context, action string, l model.AllocationLedger) {
	if s.events == nil {
		return
	}
	ev := queue.AllocationSavedEvent{
		EventID:      uuid.NewString(),
		TourID:       l.TourID,
		Action:       action,
		Pool:         l.Pool.Float64(),
		GuidePercent: l.Guide.Percent.Float64(),
		OpPercent:    l.Op.Percent.Float64(),
		OpMembers:    len(l.Op.Members),
		SavedAt:      l.UpdatedAt.Format(time.RFC3339),
	}
	if l.Assistant != nil {
		ev.AssistantPct = l.Assistant.Percent.Float64()
	}
	if err := s.events.PublishAllocationSaved(ctx, ev); err != nil {
		s.log.Warn("publish allocation event failed", zap.String("tour_id", l.TourID), zap.Error(err))
	}
}
