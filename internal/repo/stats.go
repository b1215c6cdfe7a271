package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/domain"
)

// TopicsStats counts a board's topics and finds their latest UpdatedAt,
// which is nil for an empty board. Listing handlers derive ETags from it.
func TopicsStats(ctx context.Context, db *gorm.DB, messageboardID uint) (int64, *time.Time, error) {
	return childStats(ctx, db, &domain.Topic{}, "messageboard_id", messageboardID)
}

// PostsStats is TopicsStats for the posts of one topic.
func PostsStats(ctx context.Context, db *gorm.DB, topicID uint) (int64, *time.Time, error) {
	return childStats(ctx, db, &domain.Post{}, "topic_id", topicID)
}

// childStats reads the rows of model whose parentCol equals parentID.
// The latest timestamp is fetched by ordering rather than MAX(), which
// SQLite returns as TEXT.
func childStats(ctx context.Context, db *gorm.DB, model any, parentCol string, parentID uint) (int64, *time.Time, error) {
	scoped := func() *gorm.DB {
		return db.WithContext(ctx).Model(model).Where(parentCol+" = ?", parentID)
	}

	var n int64
	if err := scoped().Count(&n).Error; err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, nil
	}

	var latest []time.Time
	if err := scoped().Order("updated_at DESC").Limit(1).Pluck("updated_at", &latest).Error; err != nil {
		return 0, nil, err
	}
	if len(latest) == 0 {
		return n, nil, nil
	}
	return n, &latest[0], nil
}
