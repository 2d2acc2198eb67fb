package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/money"
	"github.com/iliyamo/tour-backoffice/internal/queue"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, tourID string) (model.AllocationLedger, bool, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(model.AllocationLedger), args.Bool(1), args.Error(2)
}

func (m *MockStore) Save(ctx context.Context, l model.AllocationLedger) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

// MockTourReader is a mock implementation of TourReader
type MockTourReader struct {
	mock.Mock
}

func (m *MockTourReader) Get(ctx context.Context, tourID string) (model.TourInstance, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(model.TourInstance), args.Error(1)
}

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAllocationSaved(ctx context.Context, ev queue.AllocationSavedEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func TestService_GetInitialisesLazily(t *testing.T) {
	store := new(MockStore)
	tours := new(MockTourReader)
	pub := new(MockPublisher)

	store.On("Load", mock.Anything, "T1").Return(model.AllocationLedger{}, false, nil)
	tours.On("Get", mock.Anything, "T1").Return(pairTour(), nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(l model.AllocationLedger) bool {
		return l.TourID == "T1" && l.Assistant != nil && !l.UpdatedAt.IsZero()
	})).Return(nil)
	pub.On("PublishAllocationSaved", mock.Anything, mock.MatchedBy(func(ev queue.AllocationSavedEvent) bool {
		return ev.Action == "initialize" && ev.GuidePercent == 45 && ev.AssistantPct == 45
	})).Return(nil)

	svc := NewService(store, tours, pub, nil)
	pool := money.MustAmount(120)
	l, err := svc.Get(context.Background(), "T1", &pool)
	require.NoError(t, err)
	assert.InDelta(t, 54, l.Guide.Amount.Float64(), amtEps)

	store.AssertExpectations(t)
	tours.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestService_GetWithoutPool(t *testing.T) {
	store := new(MockStore)
	tours := new(MockTourReader)
	store.On("Load", mock.Anything, "T1").Return(model.AllocationLedger{}, false, nil)
	tours.On("Get", mock.Anything, "T1").Return(soloTour(), nil)

	svc := NewService(store, tours, nil, nil)
	_, err := svc.Get(context.Background(), "T1", nil)
	assert.ErrorIs(t, err, ErrNoLedger)

	zero := money.ZeroAmount
	_, err = svc.Get(context.Background(), "T1", &zero)
	assert.ErrorIs(t, err, ErrNoLedger)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_GetInitialisesFromPrepaidGratuity(t *testing.T) {
	tour := pairTour()
	tour.Gratuity = money.MustAmount(200)

	store := new(MockStore)
	tours := new(MockTourReader)
	store.On("Load", mock.Anything, "T1").Return(model.AllocationLedger{}, false, nil)
	tours.On("Get", mock.Anything, "T1").Return(tour, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(store, tours, nil, nil)
	l, err := svc.Get(context.Background(), "T1", nil)
	require.NoError(t, err)
	assert.InDelta(t, 200, l.Pool.Float64(), amtEps)
	assertPayee(t, l.Guide, 45, 90)
	assert.InDelta(t, 20, l.Op.Amount.Float64(), amtEps)

	// an explicit pool wins over the stored gratuity
	override := money.MustAmount(50)
	l, err = svc.Get(context.Background(), "T1", &override)
	require.NoError(t, err)
	assert.InDelta(t, 50, l.Pool.Float64(), amtEps)
	store.AssertNumberOfCalls(t, "Save", 2)
}

func TestService_GetUnknownTour(t *testing.T) {
	store := new(MockStore)
	tours := new(MockTourReader)
	store.On("Load", mock.Anything, "nope").Return(model.AllocationLedger{}, false, nil)
	tours.On("Get", mock.Anything, "nope").Return(model.TourInstance{}, model.ErrTourNotFound)

	svc := NewService(store, tours, nil, nil)
	pool := money.MustAmount(10)
	_, err := svc.Get(context.Background(), "nope", &pool)
	assert.ErrorIs(t, err, ErrTourNotFound)
}

func TestService_EditSavesAndPublishes(t *testing.T) {
	stored := Initialize(soloTour(), money.MustAmount(100))
	stored, err := ToggleOpMember(stored, "x", true)
	require.NoError(t, err)
	stored, err = ToggleOpMember(stored, "y", true)
	require.NoError(t, err)

	store := new(MockStore)
	pub := new(MockPublisher)
	store.On("Load", mock.Anything, "T1").Return(stored, true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishAllocationSaved", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := NewService(store, new(MockTourReader), pub, nil)
	l, err := svc.SetOpMemberAmount(context.Background(), "T1", "x", 8)
	require.NoError(t, err, "publish failure must not fail the save")
	assertPayee(t, member(t, l, "y"), 2, 2)
	assertClosed(t, l)

	saved := store.Calls[1].Arguments.Get(1).(model.AllocationLedger)
	assertPayee(t, member(t, saved, "x"), 8, 8)
}

func TestService_ValidationDoesNotSave(t *testing.T) {
	stored := Initialize(soloTour(), money.MustAmount(100))
	store := new(MockStore)
	store.On("Load", mock.Anything, "T1").Return(stored, true, nil)

	svc := NewService(store, new(MockTourReader), nil, nil)
	got, err := svc.SetOpMemberPercent(context.Background(), "T1", "ghost", 3)
	assert.True(t, IsValidation(err))
	assert.Equal(t, stored, got)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	_, err = svc.SetTopPercent(context.Background(), "T1", model.TopAssistant, 3)
	assert.True(t, IsValidation(err))
}

func TestService_StoreErrors(t *testing.T) {
	store := new(MockStore)
	store.On("Load", mock.Anything, "T1").Return(model.AllocationLedger{}, false, errors.New("db gone"))

	svc := NewService(store, new(MockTourReader), nil, nil)
	_, err := svc.ToggleOpMember(context.Background(), "T1", "x", true)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load ledger", se.Op)

	stored := Initialize(soloTour(), money.MustAmount(100))
	store2 := new(MockStore)
	store2.On("Load", mock.Anything, "T1").Return(stored, true, nil)
	store2.On("Save", mock.Anything, mock.Anything).Return(errors.New("deadlock"))
	svc = NewService(store2, new(MockTourReader), nil, nil)
	_, err = svc.SetTopAmount(context.Background(), "T1", model.TopGuide, 50)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "save ledger", se.Op)
}

func TestService_SetPoolRebases(t *testing.T) {
	stored := Initialize(pairTour(), money.MustAmount(100))
	store := new(MockStore)
	store.On("Load", mock.Anything, "T1").Return(stored, true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(store, new(MockTourReader), nil, nil)
	l, err := svc.SetPool(context.Background(), "T1", money.MustAmount(400))
	require.NoError(t, err)
	assertPayee(t, l.Guide, 45, 180)
	assertPayee(t, *l.Assistant, 45, 180)
	assert.InDelta(t, 40, l.Op.Amount.Float64(), amtEps)
}

func TestService_LoadRepairsBrokenLedger(t *testing.T) {
	stored := Initialize(soloTour(), money.MustAmount(100))
	stored.Op.Amount = money.MustAmount(3)

	store := new(MockStore)
	store.On("Load", mock.Anything, "T1").Return(stored, true, nil)

	svc := NewService(store, new(MockTourReader), nil, nil)
	l, err := svc.Get(context.Background(), "T1", nil)
	require.NoError(t, err)
	assertClosed(t, l)
	assert.InDelta(t, 10, l.Op.Amount.Float64(), amtEps)
}
