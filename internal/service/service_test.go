package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"grubdash/internal/idgen"
	"grubdash/internal/models"
	"grubdash/internal/repository"
	"grubdash/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sequence(ids ...string) idgen.Generator {
	i := 0
	return idgen.Func(func() string {
		id := ids[i]
		i++
		return id
	})
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (models.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func draft() models.Order {
	return models.Order{
		DeliverTo:    "A",
		MobileNumber: "555",
		Dishes:       []models.Dish{{"quantity": json.RawMessage(`1`)}},
	}
}

func TestOrderService_Create_DefaultsStatusAndAssignsID(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence("id-1"))
	ctx := context.Background()

	expected := draft()
	expected.ID = "id-1"
	expected.Status = models.StatusPending
	mockRepo.On("Create", ctx, expected).Return(nil).Once()

	created, err := service.Create(ctx, draft())
	require.NoError(t, err)
	assert.Equal(t, expected, created)

	mockRepo.AssertExpectations(t)
}

func TestOrderService_Create_KeepsSuppliedStatus(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence("id-1"))
	ctx := context.Background()

	in := draft()
	in.Status = models.StatusPreparing
	mockRepo.On("Create", ctx, mock.MatchedBy(func(o models.Order) bool {
		return o.Status == models.StatusPreparing
	})).Return(nil).Once()

	created, err := service.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, created.Status)
}

func TestOrderService_Create_RetriesOnIDCollision(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence("taken", "fresh"))
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.MatchedBy(func(o models.Order) bool { return o.ID == "taken" })).
		Return(repository.ErrOrderExists).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(o models.Order) bool { return o.ID == "fresh" })).
		Return(nil).Once()

	created, err := service.Create(ctx, draft())
	require.NoError(t, err)
	assert.Equal(t, "fresh", created.ID)

	mockRepo.AssertExpectations(t)
}

func TestOrderService_Create_Error(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence("id-1"))
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.Anything).Return(errors.New("database error")).Once()

	_, err := service.Create(ctx, draft())
	assert.ErrorContains(t, err, "database error")

	mockRepo.AssertExpectations(t)
}

func TestOrderService_Create_KeepsSuppliedID(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, idgen.Func(func() string {
		t.Fatal("no id should be generated")
		return ""
	}))
	ctx := context.Background()

	in := draft()
	in.ID = "from-message"
	mockRepo.On("Create", ctx, mock.MatchedBy(func(o models.Order) bool { return o.ID == "from-message" })).
		Return(nil).Once()

	created, err := service.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "from-message", created.ID)

	mockRepo.AssertExpectations(t)
}

func TestOrderService_Create_SuppliedIDIsNotReplaced(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence("fresh"))
	ctx := context.Background()

	in := draft()
	in.ID = "taken"
	mockRepo.On("Create", ctx, mock.Anything).Return(repository.ErrOrderExists).Once()

	_, err := service.Create(ctx, in)
	assert.ErrorIs(t, err, repository.ErrOrderExists)

	mockRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestOrderService_GetByID_FromRepository(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence())
	ctx := context.Background()

	order := models.Order{ID: "abc", Status: models.StatusPending}
	mockRepo.On("GetByID", ctx, "abc").Return(order, nil).Twice()

	result, err := service.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, order, result)

	// every read reaches the store
	_, err = service.GetByID(ctx, "abc")
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestOrderService_GetByID_NotFound(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence())
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, "missing").Return(models.Order{}, repository.ErrOrderNotFound).Once()

	_, err := service.GetByID(ctx, "missing")
	var notFound models.OrderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.OrderID)
	assert.Equal(t, "Order id does not exist: missing", err.Error())
}

func TestOrderService_GetByID_StoreError(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence())
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, "abc").Return(models.Order{}, errors.New("connection reset")).Once()

	_, err := service.GetByID(ctx, "abc")
	assert.EqualError(t, err, "connection reset")
}

func TestOrderService_List_Filter(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence())
	ctx := context.Background()

	orders := []models.Order{{ID: "uid1"}, {ID: "uid2"}}
	mockRepo.On("List", ctx).Return(orders, nil)

	all, err := service.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := service.List(ctx, "uid2")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "uid2", one[0].ID)

	none, err := service.List(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderService_Update_SeenByNextRead(t *testing.T) {
	repo := memory.New(models.Order{ID: "abc", Status: models.StatusPending})
	service := NewOrderService(repo, sequence())
	ctx := context.Background()

	_, err := service.GetByID(ctx, "abc")
	require.NoError(t, err)

	_, err = service.Update(ctx, models.Order{ID: "abc", Status: models.StatusPreparing})
	require.NoError(t, err)

	got, err := service.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, got.Status)
}

func TestOrderService_Update_NotFound(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence())
	ctx := context.Background()

	mockRepo.On("Update", ctx, mock.Anything).Return(repository.ErrOrderNotFound).Once()

	_, err := service.Update(ctx, models.Order{ID: "gone"})
	assert.IsType(t, models.OrderNotFoundError{}, err)
}

// blockingDeleteRepository holds Delete open until release is closed.
type blockingDeleteRepository struct {
	*memory.Repository
	entered chan struct{}
	release chan struct{}
}

func (r *blockingDeleteRepository) Delete(ctx context.Context, id string) error {
	close(r.entered)
	<-r.release
	return r.Repository.Delete(ctx, id)
}

func TestOrderService_ReadDuringDelete(t *testing.T) {
	repo := &blockingDeleteRepository{
		Repository: memory.New(models.Order{ID: "a", Status: models.StatusPending}),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	service := NewOrderService(repo, sequence())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- service.Delete(ctx, "a")
	}()

	<-repo.entered
	got, err := service.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	close(repo.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delete did not finish")
	}

	_, err = service.GetByID(ctx, "a")
	assert.IsType(t, models.OrderNotFoundError{}, err)
}

func TestOrderService_ReadsChangesMadeBehindItsBack(t *testing.T) {
	repo := memory.New(models.Order{ID: "a", Status: models.StatusPending})
	service := NewOrderService(repo, sequence())
	ctx := context.Background()

	_, err := service.GetByID(ctx, "a")
	require.NoError(t, err)

	// another instance sharing the store delivers the order
	require.NoError(t, repo.Update(ctx, models.Order{ID: "a", Status: models.StatusDelivered}))

	got, err := service.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
}

func TestOrderService_Delete_NotFound(t *testing.T) {
	mockRepo := &MockOrderRepository{}
	service := NewOrderService(mockRepo, sequence())
	ctx := context.Background()

	mockRepo.On("Delete", ctx, "gone").Return(repository.ErrOrderNotFound).Once()

	err := service.Delete(ctx, "gone")
	assert.IsType(t, models.OrderNotFoundError{}, err)
}
