package database

import (
	"context"
	"time"

	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ThumbnailRepository struct {
	db *gorm.DB
}

func NewThumbnailRepository(db *gorm.DB) *ThumbnailRepository {
	return &ThumbnailRepository{db: db}
}

// InsertBatch writes all thumbnails of one upload in a single transaction.
// Either every row is committed or none is.
func (r *ThumbnailRepository) InsertBatch(ctx context.Context, thumbnails []models.Thumbnail) error {
	if len(thumbnails) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&thumbnails).Error; err != nil {
			return oops.New(err, "failed to insert %d thumbnails", len(thumbnails))
		}
		return nil
	})
}

// ListActive returns the user's thumbnails that have no expiry or expire at or after now.
func (r *ThumbnailRepository) ListActive(ctx context.Context, userID uint, now time.Time) ([]models.Thumbnail, error) {
	// expire_at is always written in UTC, compare like with like
	now = now.UTC()

	var thumbnails []models.Thumbnail
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(r.db.Where("expire_at IS NULL").Or("expire_at >= ?", now)).
		Order("id").
		Find(&thumbnails).Error
	if err != nil {
		return nil, oops.New(err, "failed to list thumbnails")
	}
	return thumbnails, nil
}

func (r *ThumbnailRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Thumbnail{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, oops.New(err, "failed to count thumbnails")
	}
	return count, nil
}
