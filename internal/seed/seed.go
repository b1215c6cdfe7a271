// Package seed loads messageboards from a YAML file and upserts them by slug
// at start-up:
//
//	messageboards:
//	  - name: General
//	    description: Anything goes.
//	  - name: Off Topic
//	    slug: off-topic
//	    position: 2
//
// A missing slug is derived from the name. Positions default to the entry's
// index in the file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/repo"
	"github.com/tbourn/beast-forums/internal/utils"
)

// ErrDuplicateSlug is returned when two entries resolve to the same slug.
var ErrDuplicateSlug = errors.New("seed: duplicate messageboard slug")

// Messageboard is one seed entry.
type Messageboard struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Position    *int   `yaml:"position"`
}

// File is the seed document.
type File struct {
	Messageboards []Messageboard `yaml:"messageboards"`
}

// Validate checks one entry after its slug has been resolved.
func (m Messageboard) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&m.Slug,
			validation.Required,
			validation.Length(1, 191),
			validation.By(func(v any) error {
				s, _ := v.(string)
				if utils.IsReservedSlug(s) {
					return fmt.Errorf("%q is reserved", s)
				}
				if s != utils.Slugify(s) {
					return fmt.Errorf("%q is not a valid slug", s)
				}
				return nil
			}),
		),
	)
}

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("seed: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Messageboards))
	for i := range f.Messageboards {
		m := &f.Messageboards[i]
		m.Name = strings.TrimSpace(m.Name)
		m.Slug = strings.TrimSpace(m.Slug)
		if m.Slug == "" && m.Name != "" {
			m.Slug = utils.Slugify(m.Name)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("seed: messageboard %d: %w", i+1, err)
		}
		if _, dup := seen[m.Slug]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSlug, m.Slug)
		}
		seen[m.Slug] = struct{}{}
		if m.Position == nil {
			p := i
			m.Position = &p
		}
	}
	return &f, nil
}

// LoadFile parses the seed document at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Apply upserts every messageboard of f in one transaction and returns the
// number of boards written.
func Apply(ctx context.Context, db *gorm.DB, f *File) (int, error) {
	if f == nil || len(f.Messageboards) == 0 {
		return 0, nil
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range f.Messageboards {
			mb := &domain.Messageboard{
				Name:        m.Name,
				Slug:        m.Slug,
				Description: m.Description,
				Position:    *m.Position,
			}
			if _, err := repo.UpsertMessageboard(ctx, tx, mb); err != nil {
				return fmt.Errorf("seed %q: %w", m.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(f.Messageboards), nil
}
