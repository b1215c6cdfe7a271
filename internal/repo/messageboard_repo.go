// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for messageboards.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/beast-forums/internal/domain"
)

// ListMessageboards returns every messageboard ordered by position, then name.
func ListMessageboards(ctx context.Context, db *gorm.DB) ([]domain.Messageboard, error) {
	var out []domain.Messageboard
	err := db.WithContext(ctx).
		Order("position ASC").
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// GetMessageboardBySlug fetches a messageboard by its URL slug.
func GetMessageboardBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Messageboard, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, ErrNotFound
	}
	var mb domain.Messageboard
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&mb).Error; err != nil {
		return nil, err
	}
	return &mb, nil
}

// UpsertMessageboard inserts mb or, when a board with the same slug exists,
// updates its name, description and position. The stored row is returned.
func UpsertMessageboard(ctx context.Context, db *gorm.DB, mb *domain.Messageboard) (*domain.Messageboard, error) {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "position", "updated_at", "deleted_at"}),
	}).Create(mb).Error
	if err != nil {
		return nil, err
	}
	return GetMessageboardBySlug(ctx, db, mb.Slug)
}
