package repository

import (
	"context"

	"boardtalk/infrastructure/cache"
	"boardtalk/internal/entity"
)

// cachedUserRepository serves Get from memory. Message sends resolve both
// parties on every call, and profiles change rarely.
type cachedUserRepository struct {
	UserRepository
	users *cache.MemCache[entity.User]
}

func NewCachedUserRepository(repo UserRepository, users *cache.MemCache[entity.User]) UserRepository {
	return &cachedUserRepository{
		UserRepository: repo,
		users:          users,
	}
}

func (r *cachedUserRepository) Get(ctx context.Context, userId string) (entity.User, error) {
	return r.users.GetOrLoad(userId, func() (entity.User, error) {
		return r.UserRepository.Get(ctx, userId)
	})
}
