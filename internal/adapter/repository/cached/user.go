package cached

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-crud-service/internal/adapter/cache"
	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
)

// generationStripes bounds the eviction counters; ids sharing a stripe only
// cost each other an occasional skipped cache fill.
const generationStripes = 256

// CachedUserRepository decorates a persistent user.Repository with a
// read-through cache on GetByID. Writes go to the database first and then
// evict the cached entry, so a cache failure never fails a write.
//
// Every eviction bumps a per-id generation. A read-through fill only stays in
// the cache if no eviction happened between its database read and its Set,
// so a row read before an update or delete is never cached after it.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
	gens   [generationStripes]atomic.Uint64
}

var _ user.Repository = (*CachedUserRepository)(nil)

// NewCachedUserRepository wraps dbRepo. A nil cache turns every call into a passthrough.
func NewCachedUserRepository(dbRepo user.Repository, c cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  c,
		log:    log,
	}
}

// Create inserts through the database and primes the cache with the stored row.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	created, err := r.dbRepo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, created); err != nil {
			r.log.Warn("failed to cache created user", zap.Int64("id", created.ID), zap.Error(err))
		}
	}

	return created, nil
}

// GetByID retrieves a user using cache-aside. Concurrent misses for the same
// id share one database read.
func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		} else if cachedUser != nil {
			return cachedUser, nil
		}
	}

	result, err, shared := r.group.Do(cache.Key(id), func() (any, error) {
		gen := r.generation(id).Load()
		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			r.fill(ctx, u, gen)
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug("user read shared across callers", zap.Int64("id", id))
	}

	// Callers must not see each other's mutations of a shared result
	u := *result.(*domain.User)
	return &u, nil
}

// Update writes through the database and evicts the cached entry.
func (r *CachedUserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, u)
	if err != nil {
		return nil, err
	}

	r.evict(ctx, u.ID, "update")
	return updated, nil
}

// Delete removes the row from the database and evicts the cached entry.
func (r *CachedUserRepository) Delete(ctx context.Context, id int64) (*domain.User, error) {
	removed, err := r.dbRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	r.evict(ctx, id, "delete")
	return removed, nil
}

// List is not cached.
func (r *CachedUserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.List(ctx)
}

// fill caches u unless an eviction for its id happened after gen was read.
// The generation is checked again after Set: an eviction that slipped in
// between the check and the write removes the entry it could not see.
func (r *CachedUserRepository) fill(ctx context.Context, u *domain.User, gen uint64) {
	g := r.generation(u.ID)
	if g.Load() != gen {
		r.log.Debug("skipping cache fill for stale read", zap.Int64("id", u.ID))
		return
	}
	if err := r.cache.Set(ctx, u); err != nil {
		r.log.Warn("failed to cache user", zap.Int64("id", u.ID), zap.Error(err))
		return
	}
	if g.Load() != gen {
		if err := r.cache.Delete(ctx, u.ID); err != nil {
			r.log.Warn("failed to drop stale cache fill", zap.Int64("id", u.ID), zap.Error(err))
		}
	}
}

func (r *CachedUserRepository) generation(id int64) *atomic.Uint64 {
	return &r.gens[uint64(id)%generationStripes]
}

func (r *CachedUserRepository) evict(ctx context.Context, id int64, op string) {
	if r.cache == nil {
		return
	}
	// Bump before deleting so a fill racing this eviction sees the change
	// either before its Set or in its re-check.
	r.generation(id).Add(1)
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cache", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
	}
}
