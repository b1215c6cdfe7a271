package domain

import "time"

// Idempotency records the post produced by a reply request, keyed by
// (user_id, topic_id, key). A retried reply carrying the same Idempotency-Key
// is answered with the stored post instead of creating a duplicate.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_topic_key,priority:1"`
	TopicID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_topic_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_topic_key,priority:3"`
	PostID    uint      `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
