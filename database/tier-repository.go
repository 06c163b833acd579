package database

import (
	"context"
	"errors"

	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type TierRepository struct {
	db *gorm.DB
}

func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

// Save inserts a new tier or updates the one with the same name.
// Tier.BeforeSave rejects invalid sizes before anything is written.
func (r *TierRepository) Save(ctx context.Context, tier *models.Tier) error {
	if err := tier.Validate(); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"sizes", "store_original", "can_set_expire", "updated_at"}),
	}).Create(tier).Error
	if err != nil {
		return oops.New(err, "failed to save tier %q", tier.Name)
	}
	return nil
}

func (r *TierRepository) FindByName(ctx context.Context, name string) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.New(err, "failed to fetch tier %q", name)
	}
	return &tier, nil
}

func (r *TierRepository) List(ctx context.Context) ([]models.Tier, error) {
	var tiers []models.Tier
	if err := r.db.WithContext(ctx).Order("id").Find(&tiers).Error; err != nil {
		return nil, oops.New(err, "failed to list tiers")
	}
	return tiers, nil
}
