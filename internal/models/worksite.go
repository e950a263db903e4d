package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Worksite is a named polygon. Coordinates holds a JSON array of [lng, lat]
// pairs and is validated when read, not when stored.
type Worksite struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	Seq         int64          `gorm:"autoIncrement;not null;uniqueIndex" json:"-"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Coordinates datatypes.JSON `gorm:"type:jsonb;not null" json:"coordinates"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Worksite model
func (Worksite) TableName() string {
	return "worksites"
}

// BeforeCreate assigns an id when the caller did not
func (w *Worksite) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

func (w Worksite) FeedCollection() string { return "worksites" }
func (w Worksite) FeedID() string         { return w.ID }
func (w Worksite) FeedKey() string        { return w.Name }
