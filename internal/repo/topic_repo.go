// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for topics.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/domain"
)

// TopicTitle is the projection used to build the search index.
type TopicTitle struct {
	ID               uint
	Title            string
	Slug             string
	MessageboardSlug string
}

// CreateTopic inserts t. A slug collision yields ErrDuplicate.
func CreateTopic(ctx context.Context, db *gorm.DB, t *domain.Topic) error {
	if err := db.WithContext(ctx).Omit("Messageboard").Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// TopicSlugTaken reports whether slug is used by any topic, including
// soft-deleted ones (they still hold the unique index).
func TopicSlugTaken(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Unscoped().Model(&domain.Topic{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// GetTopic fetches a topic by its numeric id, with its messageboard loaded.
func GetTopic(ctx context.Context, db *gorm.DB, id uint) (*domain.Topic, error) {
	var t domain.Topic
	if err := db.WithContext(ctx).Preload("Messageboard").First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTopicBySlug fetches a topic by slug within a messageboard.
func GetTopicBySlug(ctx context.Context, db *gorm.DB, messageboardID uint, slug string) (*domain.Topic, error) {
	var t domain.Topic
	err := db.WithContext(ctx).
		Where("messageboard_id = ? AND slug = ?", messageboardID, slug).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTopics returns the number of topics in a messageboard.
func CountTopics(ctx context.Context, db *gorm.DB, messageboardID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Topic{}).Where("messageboard_id = ?", messageboardID).Count(&n).Error
	return n, err
}

// ListTopicsPage returns topics of a messageboard, most recently active first.
func ListTopicsPage(ctx context.Context, db *gorm.DB, messageboardID uint, offset, limit int) ([]domain.Topic, error) {
	var out []domain.Topic
	err := db.WithContext(ctx).
		Where("messageboard_id = ?", messageboardID).
		Order("last_post_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListTopicTitles returns every live topic with its messageboard slug.
func ListTopicTitles(ctx context.Context, db *gorm.DB) ([]TopicTitle, error) {
	var out []TopicTitle
	err := db.WithContext(ctx).
		Model(&domain.Topic{}).
		Select("topics.id, topics.title, topics.slug, messageboards.slug AS messageboard_slug").
		Joins("JOIN messageboards ON messageboards.id = topics.messageboard_id AND messageboards.deleted_at IS NULL").
		Order("topics.id ASC").
		Scan(&out).Error
	return out, err
}

// TouchTopic records a new post on a topic: the post counter is incremented
// and LastPostAt moved to at.
func TouchTopic(ctx context.Context, db *gorm.DB, topicID uint, at time.Time) error {
	res := db.WithContext(ctx).Model(&domain.Topic{}).
		Where("id = ?", topicID).
		Updates(map[string]any{
			"posts_count":  gorm.Expr("posts_count + 1"),
			"last_post_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
