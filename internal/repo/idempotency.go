package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/domain"
)

// ReplyKey identifies one idempotent reply: the same user retrying the same
// key against the same topic.
type ReplyKey struct {
	UserID  string
	TopicID string
	Key     string
}

func (k ReplyKey) valid() bool {
	return strings.TrimSpace(k.UserID) != "" && strings.TrimSpace(k.TopicID) != "" && k.Key != ""
}

// FindReply returns the record for k that is still live at now, or
// ErrNotFound.
func FindReply(ctx context.Context, db *gorm.DB, k ReplyKey, now time.Time) (*domain.Idempotency, error) {
	if !k.valid() {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(&domain.Idempotency{UserID: k.UserID, TopicID: k.TopicID, Key: k.Key}).
		Where("expires_at > ?", now).
		Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// SaveReply records that k produced postID with status, live for ttl from
// now. A second save for the same key yields ErrDuplicate.
func SaveReply(ctx context.Context, db *gorm.DB, k ReplyKey, postID uint, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	now = now.UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    k.UserID,
		TopicID:   k.TopicID,
		Key:       k.Key,
		PostID:    postID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// ReleaseExpiredReply deletes k's record if it expired at or before now, so
// the key can be saved again.
func ReleaseExpiredReply(ctx context.Context, db *gorm.DB, k ReplyKey, now time.Time) error {
	return db.WithContext(ctx).
		Where(&domain.Idempotency{UserID: k.UserID, TopicID: k.TopicID, Key: k.Key}).
		Where("expires_at <= ?", now).
		Delete(&domain.Idempotency{}).Error
}

// DeleteExpiredReplies removes records that expired at or before now.
func DeleteExpiredReplies(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
