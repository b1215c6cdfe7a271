package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/beast-forums/internal/repo"
)

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seed_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

const sample = `
messageboards:
  - name: General
    description: Anything goes.
  - name: Crème Brûlée Club
  - name: Off Topic
    slug: off-topic
    position: 9
`

func TestParse_DerivesSlugsAndPositions(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Messageboards) != 3 {
		t.Fatalf("boards = %d", len(f.Messageboards))
	}
	cases := []struct {
		slug string
		pos  int
	}{{"general", 0}, {"creme-brulee-club", 1}, {"off-topic", 9}}
	for i, tc := range cases {
		m := f.Messageboards[i]
		if m.Slug != tc.slug || *m.Position != tc.pos {
			t.Fatalf("board %d = %s/%d; want %s/%d", i, m.Slug, *m.Position, tc.slug, tc.pos)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"reserved slug":  "messageboards:\n  - name: Search\n",
		"reserved exact": "messageboards:\n  - name: X\n    slug: topics\n",
		"bad slug":       "messageboards:\n  - name: X\n    slug: Not A Slug\n",
		"missing name":   "messageboards:\n  - slug: general\n",
		"unknown key":    "messageboards:\n  - name: X\n    colour: red\n",
		"not yaml":       "messageboards: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}

	_, err := Parse(strings.NewReader("messageboards:\n  - name: General\n  - name: general\n"))
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("err = %v; want ErrDuplicateSlug", err)
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	if err != nil || len(f.Messageboards) != 0 {
		t.Fatalf("empty doc: %+v %v", f, err)
	}
}

func TestApply_UpsertsBySlug(t *testing.T) {
	db := newSeedDB(t)
	ctx := context.Background()

	f, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n, err := Apply(ctx, db, f); err != nil || n != 3 {
		t.Fatalf("Apply = %d, %v", n, err)
	}

	// Re-seeding updates in place.
	f, err = Parse(strings.NewReader("messageboards:\n  - name: General Chat\n    slug: general\n    description: Renamed.\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Apply(ctx, db, f); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	boards, err := repo.ListMessageboards(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(boards) != 3 {
		t.Fatalf("boards = %d; want 3", len(boards))
	}
	mb, err := repo.GetMessageboardBySlug(ctx, db, "general")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if mb.Name != "General Chat" || mb.Description != "Renamed." {
		t.Fatalf("not updated: %+v", mb)
	}

	if n, err := Apply(ctx, db, nil); err != nil || n != 0 {
		t.Fatalf("nil file: %d %v", n, err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.yml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := LoadFile(path)
	if err != nil || len(f.Messageboards) != 3 {
		t.Fatalf("LoadFile: %+v %v", f, err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v", err)
	}
}
