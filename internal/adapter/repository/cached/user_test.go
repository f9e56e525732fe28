package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-crud-service/internal/adapter/cache"
	domain "user-crud-service/internal/domain/user"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func setupCachedRepo(t *testing.T) (*CachedUserRepository, *MockRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	dbRepo := new(MockRepository)
	repo := NewCachedUserRepository(dbRepo, cache.NewRedisUserCache(client, time.Minute, log), log)
	return repo, dbRepo, mr
}

func TestCachedUserRepository_GetByID_ReadThrough(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	john := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(john, nil).Once()

	first, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, john, first)
	assert.True(t, mr.Exists("user:1"))

	// Served from cache; the mock would fail on a second call
	second, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, john, second)

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_GetByID_NotFoundIsNotCached(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	dbRepo.On("GetByID", mock.Anything, int64(5)).Return(nil, domain.ErrUserNotFound).Twice()

	for range 2 {
		got, err := repo.GetByID(ctx, 5)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	}
	assert.False(t, mr.Exists("user:5"))

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_GetByID_CacheErrorFallsBack(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	mr.SetError("LOADING server is loading")

	john := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(john, nil).Once()

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, john, got)

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_GetByID_ConcurrentMissesShareRead(t *testing.T) {
	repo, dbRepo, _ := setupCachedRepo(t)

	john := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	dbRepo.On("GetByID", mock.Anything, int64(1)).
		WaitUntil(time.After(50*time.Millisecond)).
		Return(john, nil)

	var wg sync.WaitGroup
	results := make([]*domain.User, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := repo.GetByID(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = u
		}(i)
	}
	wg.Wait()

	for _, u := range results {
		assert.Equal(t, john, u)
	}
	// Some callers may arrive after the first read populated the cache
	calls := 0
	for _, c := range dbRepo.Calls {
		if c.Method == "GetByID" {
			calls++
		}
	}
	assert.LessOrEqual(t, calls, len(results))
	assert.GreaterOrEqual(t, calls, 1)
}

func TestCachedUserRepository_Create_PrimesCache(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	in := &domain.User{Name: "Jane", Email: "jane@example.com"}
	stored := &domain.User{ID: 3, Name: "Jane", Email: "jane@example.com"}
	dbRepo.On("Create", mock.Anything, in).Return(stored, nil).Once()

	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, stored, created)
	assert.True(t, mr.Exists("user:3"))

	got, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_Create_Error(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)

	in := &domain.User{Name: "Jane", Email: "jane@example.com"}
	dbRepo.On("Create", mock.Anything, in).Return(nil, errors.New("email already exists")).Once()

	created, err := repo.Create(context.Background(), in)
	assert.Nil(t, created)
	assert.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCachedUserRepository_Update_Evicts(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	old := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(old, nil).Once()
	_, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.True(t, mr.Exists("user:1"))

	in := &domain.User{ID: 1, Name: "John Updated", Email: "john.updated@example.com"}
	dbRepo.On("Update", mock.Anything, in).Return(in, nil).Once()

	updated, err := repo.Update(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, updated)
	assert.False(t, mr.Exists("user:1"))

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_Update_NotFoundKeepsCache(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	require.NoError(t, mr.Set("user:9", `{"id":9,"name":"x","email":"x@example.com"}`))

	in := &domain.User{ID: 9, Name: "Ghost", Email: "ghost@example.com"}
	dbRepo.On("Update", mock.Anything, in).Return(nil, domain.ErrUserNotFound).Once()

	_, err := repo.Update(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.True(t, mr.Exists("user:9"))
}

func TestCachedUserRepository_Delete_Evicts(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	john := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(john, nil).Once()
	_, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)

	dbRepo.On("Delete", mock.Anything, int64(1)).Return(john, nil).Once()
	removed, err := repo.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, john, removed)
	assert.False(t, mr.Exists("user:1"))

	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(nil, domain.ErrUserNotFound).Once()
	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_List_Passthrough(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)

	users := []domain.User{{ID: 1, Name: "A", Email: "a@example.com"}, {ID: 2, Name: "B", Email: "b@example.com"}}
	dbRepo.On("List", mock.Anything).Return(users, nil).Once()

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, users, got)
	assert.Empty(t, mr.Keys())
}

func TestCachedUserRepository_NilCache(t *testing.T) {
	dbRepo := new(MockRepository)
	repo := NewCachedUserRepository(dbRepo, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	john := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(john, nil).Twice()
	dbRepo.On("Delete", mock.Anything, int64(1)).Return(john, nil).Once()

	for range 2 {
		got, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, john, got)
	}
	_, err := repo.Delete(ctx, 1)
	require.NoError(t, err)

	dbRepo.AssertExpectations(t)
}

// startBlockedRead begins a GetByID whose database read returns stale and then
// waits for release, so a write can commit between the read and the cache fill.
func startBlockedRead(t *testing.T, repo *CachedUserRepository, dbRepo *MockRepository, stale *domain.User) (release func(), result <-chan *domain.User) {
	t.Helper()
	read := make(chan struct{})
	unblock := make(chan struct{})
	dbRepo.On("GetByID", mock.Anything, stale.ID).
		Run(func(mock.Arguments) {
			close(read)
			<-unblock
		}).
		Return(stale, nil).Once()

	out := make(chan *domain.User, 1)
	go func() {
		u, err := repo.GetByID(context.Background(), stale.ID)
		assert.NoError(t, err)
		out <- u
	}()

	select {
	case <-read:
	case <-time.After(2 * time.Second):
		t.Fatal("database read never started")
	}
	return func() { close(unblock) }, out
}

func TestCachedUserRepository_DeleteDuringReadThrough(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	john := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	release, result := startBlockedRead(t, repo, dbRepo, john)

	dbRepo.On("Delete", mock.Anything, int64(1)).Return(john, nil).Once()
	_, err := repo.Delete(ctx, 1)
	require.NoError(t, err)

	release()
	assert.Equal(t, john, <-result)
	assert.False(t, mr.Exists("user:1"), "row read before the delete must not be cached")

	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(nil, domain.ErrUserNotFound).Once()
	got, err := repo.GetByID(ctx, 1)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	dbRepo.AssertExpectations(t)
}

func TestCachedUserRepository_UpdateDuringReadThrough(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	old := &domain.User{ID: 1, Name: "John", Email: "john@example.com"}
	release, result := startBlockedRead(t, repo, dbRepo, old)

	updated := &domain.User{ID: 1, Name: "John Updated", Email: "john.updated@example.com"}
	dbRepo.On("Update", mock.Anything, updated).Return(updated, nil).Once()
	_, err := repo.Update(ctx, updated)
	require.NoError(t, err)

	release()
	<-result
	assert.False(t, mr.Exists("user:1"))

	dbRepo.On("GetByID", mock.Anything, int64(1)).Return(updated, nil).Once()
	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	// The fresh read is cached again
	assert.True(t, mr.Exists("user:1"))
	dbRepo.AssertExpectations(t)
}
