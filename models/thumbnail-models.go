package models

import (
	"time"

	"gorm.io/gorm"
)

type Thumbnail struct {
	gorm.Model
	// Path is the storage key of the image bytes, not a URL.
	Path     string     `json:"path" gorm:"not null"`
	Size     *int       `json:"size"`
	UserID   uint       `json:"user_id" gorm:"not null;index"`
	ExpireAt *time.Time `json:"expire_at,omitempty" gorm:"index"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// IsOriginal reports whether this row holds the unresized upload.
func (t *Thumbnail) IsOriginal() bool {
	return t.Size == nil
}

// ActiveAt reports whether the thumbnail is still listed at now.
func (t *Thumbnail) ActiveAt(now time.Time) bool {
	return t.ExpireAt == nil || !t.ExpireAt.Before(now)
}

func (t *Thumbnail) Validate() error {
	if t.UserID == 0 {
		return invalid("user", "owner is required")
	}
	if t.Path == "" {
		return invalid("path", "path is required")
	}
	if t.Size != nil && *t.Size <= 0 {
		return invalid("size", "size must be a positive number of pixels")
	}
	return nil
}

func (t *Thumbnail) BeforeCreate(tx *gorm.DB) error {
	return t.Validate()
}
