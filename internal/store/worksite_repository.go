package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorksiteRepository stores worksites in PostgreSQL
type WorksiteRepository struct {
	db   *gorm.DB
	feed *Feed
}

// NewWorksiteRepository creates a repository
func NewWorksiteRepository(db *gorm.DB, feed *Feed) *WorksiteRepository {
	return &WorksiteRepository{db: db, feed: feed}
}

// List returns every usable worksite in creation order. Rows whose
// boundary does not validate are logged and left out.
func (r *WorksiteRepository) List(ctx context.Context) ([]geofence.Worksite, error) {
	var rows []models.Worksite
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query worksites: %w", err)
	}
	out := make([]geofence.Worksite, 0, len(rows))
	for _, row := range rows {
		site, err := toWorksite(row)
		if err != nil {
			log.Printf("⚠️ Store: skipping worksite %s (%q): %v", row.ID, row.Name, err)
			continue
		}
		out = append(out, site)
	}
	return out, nil
}

func (r *WorksiteRepository) Get(ctx context.Context, id string) (geofence.Worksite, error) {
	row, err := r.load(ctx, id)
	if err != nil {
		return geofence.Worksite{}, err
	}
	return toWorksite(row)
}

func (r *WorksiteRepository) Create(ctx context.Context, name string, boundary []geofence.Coordinate) (geofence.Worksite, error) {
	if err := validateBoundary(name, boundary); err != nil {
		return geofence.Worksite{}, err
	}
	coords, err := json.Marshal(boundary)
	if err != nil {
		return geofence.Worksite{}, err
	}
	row := models.Worksite{Name: name, Coordinates: datatypes.JSON(coords)}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return geofence.Worksite{}, fmt.Errorf("worksite %q: %w", name, ErrDuplicate)
		}
		return geofence.Worksite{}, fmt.Errorf("create worksite: %w", err)
	}
	return geofence.Worksite{ID: row.ID, Name: row.Name, Boundary: boundary}, nil
}

func (r *WorksiteRepository) Update(ctx context.Context, id, name string, boundary []geofence.Coordinate) (geofence.Worksite, error) {
	if err := validateBoundary(name, boundary); err != nil {
		return geofence.Worksite{}, err
	}
	coords, err := json.Marshal(boundary)
	if err != nil {
		return geofence.Worksite{}, err
	}
	row, err := r.load(ctx, id)
	if err != nil {
		return geofence.Worksite{}, err
	}

	row.Name = name
	row.Coordinates = datatypes.JSON(coords)
	err = r.db.WithContext(ctx).Model(&row).
		Updates(map[string]interface{}{"name": name, "coordinates": row.Coordinates}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return geofence.Worksite{}, fmt.Errorf("worksite %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return geofence.Worksite{}, fmt.Errorf("update worksite: %w", err)
	}
	return geofence.Worksite{ID: row.ID, Name: name, Boundary: boundary}, nil
}

func (r *WorksiteRepository) Delete(ctx context.Context, id string) error {
	row, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&row).Error; err != nil {
		return fmt.Errorf("delete worksite: %w", err)
	}
	return nil
}

func (r *WorksiteRepository) Subscribe(onChange func(Change)) func() {
	return r.feed.Subscribe(func(c Change) bool { return c.Collection == Worksites }, onChange)
}

func (r *WorksiteRepository) load(ctx context.Context, id string) (models.Worksite, error) {
	var row models.Worksite
	if _, err := uuid.Parse(id); err != nil {
		return row, ErrNotFound
	}
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, ErrNotFound
		}
		return row, fmt.Errorf("load worksite: %w", err)
	}
	return row, nil
}

func toWorksite(row models.Worksite) (geofence.Worksite, error) {
	var boundary []geofence.Coordinate
	if err := json.Unmarshal(row.Coordinates, &boundary); err != nil {
		return geofence.Worksite{}, fmt.Errorf("decode boundary: %w", err)
	}
	if err := validateBoundary(row.Name, boundary); err != nil {
		return geofence.Worksite{}, err
	}
	return geofence.Worksite{ID: row.ID, Name: row.Name, Boundary: boundary}, nil
}
