package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/krishkalaria12/snap-thumbs/models"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/tiers.yaml
var DefaultTiers []byte

type tierFixture struct {
	Name          string      `yaml:"name"`
	Sizes         interface{} `yaml:"sizes"`
	StoreOriginal bool        `yaml:"store_original"`
	CanSetExpire  bool        `yaml:"can_set_expire"`
}

// ParseTiers decodes a YAML list of tiers, validating each sizes entry.
func ParseTiers(data []byte) ([]models.Tier, error) {
	var fixtures []tierFixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse tiers: %w", err)
	}

	tiers := make([]models.Tier, 0, len(fixtures))
	for i, f := range fixtures {
		sizes, err := models.ValidateSizes(f.Sizes)
		if err != nil {
			return nil, fmt.Errorf("tier %d (%s): %w", i, f.Name, err)
		}
		tier := models.Tier{
			Name:          f.Name,
			Sizes:         sizes,
			StoreOriginal: f.StoreOriginal,
			CanSetExpire:  f.CanSetExpire,
		}
		if err := tier.Validate(); err != nil {
			return nil, fmt.Errorf("tier %d (%s): %w", i, f.Name, err)
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// SeedTiers upserts every tier in data by name.
func SeedTiers(ctx context.Context, repo *TierRepository, data []byte) ([]models.Tier, error) {
	tiers, err := ParseTiers(data)
	if err != nil {
		return nil, err
	}
	for i := range tiers {
		if err := repo.Save(ctx, &tiers[i]); err != nil {
			return nil, err
		}
	}
	return tiers, nil
}
