// Package services – UserService
//
// This file implements the read side of user profiles.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/repo"
)

// UserProfile is the public view of a user.
type UserProfile struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	TopicsCount int64     `json:"topics_count"`
	PostsCount  int64     `json:"posts_count"`
}

// UserService serves user profiles.
type UserService struct {
	DB *gorm.DB
}

// Profile returns the public profile of user id.
func (s *UserService) Profile(ctx context.Context, id uint) (*UserProfile, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	topics, posts, err := repo.UserActivity(ctx, s.DB, u.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		ID:          u.ID,
		Name:        u.Name,
		CreatedAt:   u.CreatedAt,
		TopicsCount: topics,
		PostsCount:  posts,
	}, nil
}
