// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for posts.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/domain"
)

// CreatePost inserts a post with the given Textile source.
func CreatePost(ctx context.Context, db *gorm.DB, topicID, userID uint, content string) (*domain.Post, error) {
	p := &domain.Post{
		TopicID: topicID,
		UserID:  userID,
		Content: content,
	}
	if err := db.WithContext(ctx).Omit("Topic").Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPost fetches a post by id.
func GetPost(ctx context.Context, db *gorm.DB, id uint) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPosts returns the number of posts in a topic.
func CountPosts(ctx context.Context, db *gorm.DB, topicID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Where("topic_id = ?", topicID).Count(&n).Error
	return n, err
}

// ListPostsPage returns posts of a topic in chronological order.
func ListPostsPage(ctx context.Context, db *gorm.DB, topicID uint, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
