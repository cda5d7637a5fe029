package service

import (
	"context"
	"fmt"
	"time"

	"secrets/internal/cache"
	"secrets/internal/model"
	"secrets/internal/repository"
)

const profileCacheTTL = 5 * time.Minute

// UserService exposes read access to user profiles.
type UserService interface {
	GetProfile(ctx context.Context, id uint) (*model.Profile, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and an optional cache.
// A nil cache disables caching.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("profile:%d", id)
}

// GetProfile returns the profile of user id, or errors.ErrUserNotFound.
func (s *userService) GetProfile(ctx context.Context, id uint) (*model.Profile, error) {
	var cached model.Profile
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := user.Profile()
	s.cache.SetJSON(ctx, s.cacheKey(id), profile, profileCacheTTL)
	return profile, nil
}
