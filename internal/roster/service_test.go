package roster_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/queue"
	"github.com/iliyamo/tour-backoffice/internal/roster"
	"github.com/iliyamo/tour-backoffice/internal/roster/mocks"
)

const (
	product = "P"
	day     = "2026-05-01"
)

// memStore is an in-memory TourStore and ReservationStore.  Writes to a
// tour listed in failOn return the configured error.  Roster writes are
// conditional like the MySQL store's.  When gate is set, the first
// gateReads calls to ListSiblings block until all of them have arrived.
type memStore struct {
	mu           sync.Mutex
	order        []string
	tours        map[string]model.TourInstance
	reservations []model.Reservation
	failOn       map[string]error
	writes       []string
	gate         *sync.WaitGroup
	gateReads    int
	reads        int
}

func newMemStore(rs ...model.Reservation) *memStore {
	return &memStore{tours: map[string]model.TourInstance{}, reservations: rs, failOn: map[string]error{}}
}

func (m *memStore) addTour(id, productID string, ids ...string) {
	m.order = append(m.order, id)
	m.tours[id] = model.TourInstance{ID: id, ProductID: productID, TourDate: day, ReservationIDs: model.NewReservationSet(ids...)}
}

func (m *memStore) Get(_ context.Context, id string) (model.TourInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tours[id]
	if !ok {
		return model.TourInstance{}, roster.ErrTourNotFound
	}
	return t.WithReservations(t.ReservationIDs), nil
}

func (m *memStore) ListSiblings(_ context.Context, productID, tourDate string) ([]model.TourInstance, error) {
	m.mu.Lock()
	var out []model.TourInstance
	for _, id := range m.order {
		t := m.tours[id]
		if t.ProductID == productID && t.TourDate == tourDate {
			out = append(out, t.WithReservations(t.ReservationIDs))
		}
	}
	m.reads++
	hold := m.gate != nil && m.reads <= m.gateReads
	gate := m.gate
	m.mu.Unlock()
	if hold {
		gate.Done()
		gate.Wait()
	}
	return out, nil
}

func (m *memStore) SetReservationIDs(_ context.Context, id string, prev, next model.ReservationSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, id)
	if err := m.failOn[id]; err != nil {
		return err
	}
	t := m.tours[id]
	if !t.ReservationIDs.Equal(prev) {
		return roster.ErrRosterChanged
	}
	for rid := range next {
		for _, other := range m.holders(rid) {
			if other != id {
				return roster.ErrRosterChanged
			}
		}
	}
	m.tours[id] = t.WithReservations(next)
	return nil
}

// pauseReads makes the next n group reads wait for each other, so n
// sessions all read before any of them writes.
func (m *memStore) pauseReads(n int) {
	m.gate = &sync.WaitGroup{}
	m.gate.Add(n)
	m.gateReads = n
}

func (m *memStore) ListByProductAndDate(_ context.Context, productID, tourDate string) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range m.reservations {
		if r.ProductID == productID && r.TourDate == tourDate {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) holders(id string) []string {
	var out []string
	for _, tid := range m.order {
		if m.tours[tid].ReservationIDs.Has(id) {
			out = append(out, tid)
		}
	}
	return out
}

func confirmed(id string, people uint32) model.Reservation {
	return model.Reservation{ID: id, ProductID: product, TourDate: day, TotalPeople: people, Status: model.StatusConfirmed}
}

func threeSiblings() *memStore {
	st := newMemStore(confirmed("R1", 2), confirmed("R2", 3), confirmed("R3", 1))
	st.addTour("A", product, "R1")
	st.addTour("B", product)
	st.addTour("C", product)
	return st
}

func viewIDs(rs []model.Reservation) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestService_ReassignMovesReservation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := threeSiblings()
	pub := mocks.NewMockEventPublisher(ctrl)
	pub.EXPECT().PublishRosterChanged(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev queue.RosterChangedEvent) error {
			assert.Equal(t, "reassign", ev.Action)
			assert.False(t, ev.Partial)
			assert.Equal(t, []string{"A", "B"}, ev.TourIDs)
			assert.Equal(t, []string{"R1"}, ev.Rosters["B"])
			assert.Empty(t, ev.Rosters["A"])
			return nil
		})

	svc := roster.NewService(st, st, pub, nil, nil)
	v, err := svc.Reassign(context.Background(), "A", "B", "R1")
	require.NoError(t, err)

	assert.Equal(t, "B", v.TourID)
	assert.Equal(t, []string{"R1"}, viewIDs(v.Assigned))
	assert.Equal(t, []string{"B"}, st.holders("R1"))
	assert.Equal(t, []string{"A", "B"}, st.writes, "release must be written before assign")

	for _, other := range []string{"A", "C"} {
		ov, err := svc.View(context.Background(), other)
		require.NoError(t, err)
		assert.Empty(t, ov.Assigned, "tour %s", other)
	}
}

func TestService_ReassignSecondWriteFailsLeavesPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := threeSiblings()
	st.failOn["B"] = errors.New("connection reset")
	pub := mocks.NewMockEventPublisher(ctrl)
	pub.EXPECT().PublishRosterChanged(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev queue.RosterChangedEvent) error {
			assert.True(t, ev.Partial)
			return nil
		})

	svc := roster.NewService(st, st, pub, nil, nil)
	v, err := svc.Reassign(context.Background(), "A", "B", "R1")

	var partial *roster.PartialReassignError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "A", partial.FromTourID)
	assert.Equal(t, "B", partial.ToTourID)
	assert.True(t, roster.IsStoreError(err))

	assert.Empty(t, st.holders("R1"), "reservation must end on no roster")
	assert.Equal(t, "A", v.TourID)
	assert.Contains(t, viewIDs(v.Pending), "R1")
	assert.Equal(t, int64(v.Capacity.Pending), v.Capacity.Unassigned)
}

func TestService_ReassignFirstWriteFailsKeepsOwner(t *testing.T) {
	st := threeSiblings()
	st.failOn["A"] = errors.New("timeout")
	svc := roster.NewService(st, st, nil, nil, nil)

	_, err := svc.Reassign(context.Background(), "A", "B", "R1")
	require.Error(t, err)
	assert.True(t, roster.IsStoreError(err))
	assert.False(t, roster.IsPartialReassign(err))
	assert.Equal(t, []string{"A"}, st.holders("R1"))
	assert.Equal(t, []string{"A"}, st.writes)
}

func TestService_ReassignRejectsOtherGroup(t *testing.T) {
	st := threeSiblings()
	st.addTour("X", "OTHER")
	svc := roster.NewService(st, st, nil, nil, nil)

	_, err := svc.Reassign(context.Background(), "A", "X", "R1")
	assert.ErrorIs(t, err, roster.ErrNotSiblings)

	_, err = svc.Reassign(context.Background(), "A", "missing", "R1")
	assert.ErrorIs(t, err, roster.ErrTourNotFound)
	assert.Empty(t, st.writes)
}

func TestService_AssignConflict(t *testing.T) {
	st := threeSiblings()
	svc := roster.NewService(st, st, nil, nil, nil)

	_, err := svc.Assign(context.Background(), "B", "R2", "R1")
	assert.True(t, roster.IsAlreadyAssigned(err))
	assert.Empty(t, st.writes)

	_, err = svc.Assign(context.Background(), "B", "R9")
	assert.ErrorIs(t, err, roster.ErrReservationNotFound)
}

func TestService_AssignUnassignFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := threeSiblings()
	pub := mocks.NewMockEventPublisher(ctrl)
	pub.EXPECT().PublishRosterChanged(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(3)

	svc := roster.NewService(st, st, pub, nil, nil)
	ctx := context.Background()

	v, err := svc.Assign(ctx, "B", "R2", "R3")
	require.NoError(t, err, "publish failures must not fail the write")
	assert.ElementsMatch(t, []string{"R2", "R3"}, viewIDs(v.Assigned))
	assert.Equal(t, uint64(6), v.Capacity.Total)
	assert.Equal(t, int64(0), v.Capacity.Unassigned)

	v, err = svc.Unassign(ctx, "B", "R3")
	require.NoError(t, err)
	assert.Equal(t, []string{"R2"}, viewIDs(v.Assigned))
	assert.Equal(t, []string{"R3"}, viewIDs(v.Pending))

	v, err = svc.UnassignAll(ctx, "B")
	require.NoError(t, err)
	assert.Empty(t, v.Assigned)
	assert.Equal(t, uint64(4), v.Capacity.Pending)
	require.Len(t, v.Elsewhere, 1)
	assert.Equal(t, "A", v.Elsewhere[0].TourID)
}

func TestService_LockBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := threeSiblings()
	locker := mocks.NewMockLocker(ctrl)
	locker.EXPECT().Lock(gomock.Any(), "P:2026-05-01").Return(nil, roster.ErrGroupBusy)

	svc := roster.NewService(st, st, nil, locker, nil)
	_, err := svc.Assign(context.Background(), "B", "R2")
	assert.ErrorIs(t, err, roster.ErrGroupBusy)
	assert.Empty(t, st.writes)
}

func TestService_LockReleased(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := threeSiblings()
	released := 0
	locker := mocks.NewMockLocker(ctrl)
	locker.EXPECT().Lock(gomock.Any(), "P:2026-05-01").Return(func() { released++ }, nil)

	svc := roster.NewService(st, st, nil, locker, nil)
	_, err := svc.Reassign(context.Background(), "A", "C", "R1")
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, []string{"C"}, st.holders("R1"))
}

func TestService_ConcurrentAssignSameReservation(t *testing.T) {
	st := threeSiblings()
	st.pauseReads(2)
	svc := roster.NewService(st, st, nil, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tourID := range []string{"B", "C"} {
		wg.Add(1)
		go func(i int, tourID string) {
			defer wg.Done()
			_, errs[i] = svc.Assign(context.Background(), tourID, "R2")
		}(i, tourID)
	}
	wg.Wait()

	require.Len(t, st.holders("R2"), 1, "R2 must end on exactly one roster")
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.True(t, roster.IsAlreadyAssigned(err), "got %v", err)
		}
	}
	assert.Equal(t, 1, failed)

	siblings, err := st.ListSiblings(context.Background(), product, day)
	require.NoError(t, err)
	assert.NoError(t, roster.CheckPartition(siblings))
}

func TestService_ConcurrentAssignSameTourKeepsBoth(t *testing.T) {
	st := threeSiblings()
	st.pauseReads(2)
	svc := roster.NewService(st, st, nil, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"R2", "R3"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Assign(context.Background(), "B", id)
		}(i, id)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, []string{"B"}, st.holders("R2"))
	assert.Equal(t, []string{"B"}, st.holders("R3"))
}

func TestService_WriteConflictsExhaustRetries(t *testing.T) {
	st := threeSiblings()
	st.failOn["B"] = roster.ErrRosterChanged
	svc := roster.NewService(st, st, nil, nil, nil)

	_, err := svc.Assign(context.Background(), "B", "R2")
	assert.ErrorIs(t, err, roster.ErrGroupBusy)
	assert.Equal(t, []string{"B", "B", "B"}, st.writes)
	assert.Empty(t, st.holders("R2"))
}

func TestService_AssignRetriesOnStaleRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := model.TourInstance{ID: "B", ProductID: product, TourDate: day, ReservationIDs: model.NewReservationSet()}
	bWithR3 := b.WithReservations(model.NewReservationSet("R3"))
	tours := mocks.NewMockTourStore(ctrl)
	res := mocks.NewMockReservationStore(ctrl)
	res.EXPECT().ListByProductAndDate(gomock.Any(), product, day).
		Return([]model.Reservation{confirmed("R2", 1), confirmed("R3", 1)}, nil).AnyTimes()
	tours.EXPECT().Get(gomock.Any(), "B").Return(b, nil)
	gomock.InOrder(
		tours.EXPECT().ListSiblings(gomock.Any(), product, day).Return([]model.TourInstance{b}, nil),
		tours.EXPECT().SetReservationIDs(gomock.Any(), "B", model.NewReservationSet(), model.NewReservationSet("R2")).
			Return(roster.ErrRosterChanged),
		tours.EXPECT().ListSiblings(gomock.Any(), product, day).Return([]model.TourInstance{bWithR3}, nil),
		tours.EXPECT().SetReservationIDs(gomock.Any(), "B", model.NewReservationSet("R3"), model.NewReservationSet("R2", "R3")).
			Return(nil),
		tours.EXPECT().ListSiblings(gomock.Any(), product, day).
			Return([]model.TourInstance{b.WithReservations(model.NewReservationSet("R2", "R3"))}, nil),
	)

	svc := roster.NewService(res, tours, nil, nil, nil)
	v, err := svc.Assign(context.Background(), "B", "R2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"R2", "R3"}, viewIDs(v.Assigned))
}
