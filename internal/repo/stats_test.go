package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/beast-forums/internal/domain"
)

// newTestDB opens a private in-memory database and migrates models.
func newTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newForumDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestStats_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, _, err := TopicsStats(context.Background(), db, 1); err == nil {
		t.Fatal("TopicsStats without a topics table succeeded")
	}
	if _, _, err := PostsStats(context.Background(), db, 1); err == nil {
		t.Fatal("PostsStats without a posts table succeeded")
	}
}

func TestStats(t *testing.T) {
	db := newForumDB(t)
	ctx := context.Background()
	jan := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	may := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	for _, tp := range []*domain.Topic{
		{MessageboardID: 1, UserID: 1, Title: "b", Slug: "b", CreatedAt: mar, UpdatedAt: mar},
		{MessageboardID: 1, UserID: 1, Title: "a", Slug: "a", CreatedAt: jan, UpdatedAt: jan},
		{MessageboardID: 2, UserID: 1, Title: "x", Slug: "x", CreatedAt: may, UpdatedAt: may},
	} {
		if err := db.Omit("Messageboard").Create(tp).Error; err != nil {
			t.Fatalf("topic %s: %v", tp.Slug, err)
		}
	}
	for _, p := range []*domain.Post{
		{TopicID: 5, UserID: 1, Content: "one", CreatedAt: jan, UpdatedAt: jan},
		{TopicID: 5, UserID: 1, Content: "two", CreatedAt: jan, UpdatedAt: mar},
		{TopicID: 6, UserID: 1, Content: "other", CreatedAt: may, UpdatedAt: may},
	} {
		if err := db.Omit("Topic").Create(p).Error; err != nil {
			t.Fatalf("post %q: %v", p.Content, err)
		}
	}

	type statsFunc func(context.Context, *gorm.DB, uint) (int64, *time.Time, error)
	cases := []struct {
		name   string
		fn     statsFunc
		parent uint
		count  int64
		latest *time.Time
	}{
		{"topics of board 1", TopicsStats, 1, 2, &mar},
		{"topics of board 2", TopicsStats, 2, 1, &may},
		{"empty board", TopicsStats, 9, 0, nil},
		{"posts of topic 5", PostsStats, 5, 2, &mar},
		{"topic without posts", PostsStats, 99, 0, nil},
	}
	for _, tc := range cases {
		n, latest, err := tc.fn(ctx, db, tc.parent)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if n != tc.count {
			t.Errorf("%s: count = %d; want %d", tc.name, n, tc.count)
		}
		switch {
		case tc.latest == nil && latest != nil:
			t.Errorf("%s: latest = %v; want nil", tc.name, latest)
		case tc.latest != nil && (latest == nil || !latest.Equal(*tc.latest)):
			t.Errorf("%s: latest = %v; want %v", tc.name, latest, tc.latest)
		}
	}
}
