package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckIn is one attendance session. An open session has no CheckOutDateTime.
// At most one open row may exist per CheckInKey; see the partial unique
// index created by store.Migrate.
type CheckIn struct {
	ID               string     `gorm:"primaryKey;type:uuid" json:"id"`
	Seq              int64      `gorm:"autoIncrement;not null;uniqueIndex" json:"-"`
	UserID           string     `gorm:"type:uuid;not null;index" json:"userId"`
	Worksite         string     `gorm:"not null" json:"worksite"`
	CheckInDateTime  time.Time  `gorm:"not null;index" json:"checkInDateTime"`
	CheckOutDateTime *time.Time `json:"checkOutDateTime,omitempty"`
	CheckInKey       string     `gorm:"column:daily_key;not null;index" json:"checkInKey"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for CheckIn model
func (CheckIn) TableName() string {
	return "check_ins"
}

// BeforeCreate assigns an id when the caller did not
func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c CheckIn) FeedCollection() string { return "check_ins" }
func (c CheckIn) FeedID() string         { return c.ID }
func (c CheckIn) FeedKey() string        { return c.CheckInKey }
