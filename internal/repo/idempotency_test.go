package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/beast-forums/internal/domain"
)

func TestFindReply(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []domain.Idempotency{
		{ID: "live", UserID: "1", TopicID: "8", Key: "k2", PostID: 11, Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "stale", UserID: "1", TopicID: "7", Key: "k1", PostID: 3, Status: 201, CreatedAt: now, ExpiresAt: now.Add(-time.Hour)},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := FindReply(ctx, db, ReplyKey{UserID: "1", TopicID: "8", Key: "k2"}, now)
	if err != nil || rec.PostID != 11 {
		t.Fatalf("live = %+v, %v", rec, err)
	}

	misses := map[string]ReplyKey{
		"expired":     {UserID: "1", TopicID: "7", Key: "k1"},
		"other user":  {UserID: "2", TopicID: "8", Key: "k2"},
		"other topic": {UserID: "1", TopicID: "9", Key: "k2"},
		"unknown key": {UserID: "1", TopicID: "8", Key: "nope"},
		"blank topic": {UserID: "1", TopicID: "  ", Key: "k2"},
		"no key":      {UserID: "1", TopicID: "8"},
	}
	for name, k := range misses {
		if rec, err := FindReply(ctx, db, k, now); rec != nil || !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: (%+v, %v)", name, rec, err)
		}
	}
}

func TestSaveReply(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	k := ReplyKey{UserID: "9", TopicID: "19", Key: "k9"}

	rec, err := SaveReply(ctx, db, k, 29, 201, now, 90*time.Minute)
	if err != nil {
		t.Fatalf("SaveReply: %v", err)
	}
	if rec.ID == "" || rec.PostID != 29 || !rec.ExpiresAt.Equal(now.Add(90*time.Minute)) {
		t.Fatalf("record = %+v", rec)
	}

	if _, err := SaveReply(ctx, db, k, 30, 201, now, time.Minute); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second save = %v; want ErrDuplicate", err)
	}
	k.TopicID = "20"
	if _, err := SaveReply(ctx, db, k, 31, 201, now, time.Minute); err != nil {
		t.Fatalf("same key on another topic: %v", err)
	}
}

func TestSaveReply_MissingTable(t *testing.T) {
	db := newTestDB(t)
	_, err := SaveReply(context.Background(), db, ReplyKey{UserID: "1", TopicID: "2", Key: "k"}, 3, 201, time.Now(), time.Minute)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v", err)
	}
}

func TestReleaseExpiredReply(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	k := ReplyKey{UserID: "4", TopicID: "14", Key: "k4"}

	if _, err := SaveReply(ctx, db, k, 40, 201, now, time.Minute); err != nil {
		t.Fatalf("SaveReply: %v", err)
	}
	if err := ReleaseExpiredReply(ctx, db, k, now); err != nil {
		t.Fatalf("release live: %v", err)
	}
	if _, err := SaveReply(ctx, db, k, 41, 201, now, time.Minute); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("live key released: %v", err)
	}

	later := now.Add(2 * time.Minute)
	if err := ReleaseExpiredReply(ctx, db, k, later); err != nil {
		t.Fatalf("release expired: %v", err)
	}
	rec, err := SaveReply(ctx, db, k, 42, 201, later, time.Minute)
	if err != nil || rec.PostID != 42 {
		t.Fatalf("resave = (%+v, %v)", rec, err)
	}
}

func TestDeleteExpiredReplies(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	for i, ttl := range []time.Duration{-time.Hour, -time.Minute, time.Hour} {
		k := ReplyKey{UserID: "1", TopicID: "1", Key: string(rune('a' + i))}
		if _, err := SaveReply(ctx, db, k, uint(i+1), 201, now, ttl); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	n, err := DeleteExpiredReplies(ctx, db, now)
	if err != nil || n != 2 {
		t.Fatalf("deleted = %d, %v", n, err)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("left = %d", left)
	}
}
