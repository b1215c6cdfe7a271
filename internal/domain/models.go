// Package domain defines the persistence models for users, sessions, and the
// forum engine (messageboards, topics, posts). These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered forum member.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Email: login identifier, unique and stored lower-cased.
//   - Name: display name shown next to topics and posts.
//   - PasswordHash: bcrypt hash, never serialized.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           uint      `json:"id"         gorm:"primaryKey"`
	Email        string    `json:"-"          gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Name         string    `json:"name"       gorm:"type:varchar(100);not null"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Session is an opaque bearer token issued on sign-in. Expired sessions are
// ignored by lookups and removed on sign-out.
type Session struct {
	Token     string    `gorm:"type:char(36);primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Messageboard is a named forum grouping topics. Its Slug is the
// messageboard segment of every engine URL.
type Messageboard struct {
	ID          uint           `json:"id"          gorm:"primaryKey"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null"`
	Slug        string         `json:"slug"        gorm:"type:varchar(191);not null;uniqueIndex:ux_messageboards_slug"`
	Description string         `json:"description" gorm:"type:text"`
	Position    int            `json:"position"    gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Messageboard.
func (Messageboard) TableName() string { return "messageboards" }

// Topic is a discussion thread inside a messageboard. ID is stable and used by
// legacy URLs; Slug is the canonical path segment of the current URL scheme.
//
// Fields:
//   - MessageboardID: owning board (indexed with LastPostAt for listings).
//   - UserID: author of the first post.
//   - Slug: globally unique, derived from Title at creation.
//   - PostsCount / LastPostAt: denormalized counters kept by the service.
type Topic struct {
	ID             uint           `json:"id"              gorm:"primaryKey"`
	MessageboardID uint           `json:"messageboard_id" gorm:"not null;index:idx_board_topics,priority:1"`
	UserID         uint           `json:"user_id"         gorm:"not null;index"`
	Title          string         `json:"title"           gorm:"type:varchar(255);not null"`
	Slug           string         `json:"slug"            gorm:"type:varchar(191);not null;uniqueIndex:ux_topics_slug"`
	PostsCount     int            `json:"posts_count"     gorm:"not null;default:0"`
	LastPostAt     time.Time      `json:"last_post_at"    gorm:"index:idx_board_topics,priority:2"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	Messageboard Messageboard `json:"-" gorm:"foreignKey:MessageboardID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Topic.
func (Topic) TableName() string { return "topics" }

// Post is a single message in a topic. Content holds the Textile source as
// written by the author; HTML is produced at read time by the pipeline.
type Post struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	TopicID   uint           `json:"topic_id"   gorm:"not null;index:idx_topic_posts,priority:1"`
	UserID    uint           `json:"user_id"    gorm:"not null;index"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_topic_posts,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	Topic Topic `json:"-" gorm:"foreignKey:TopicID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }
