package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/krishkalaria12/snap-thumbs/config"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(config.DatabaseConfig{
		Driver:   "sqlite",
		URL:      filepath.Join(t.TempDir(), "thumbs.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, tier models.Tier) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		TierID:   tier.ID,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func intPtr(v int) *int {
	return &v
}

func TestTierRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewTierRepository(db)
	ctx := context.Background()

	tier := &models.Tier{Name: "new_tier", Sizes: models.Sizes{200, 300}, StoreOriginal: true, CanSetExpire: true}
	require.NoError(t, repo.Save(ctx, tier))

	loaded, err := repo.FindByName(ctx, "new_tier")
	require.NoError(t, err)
	assert.Equal(t, models.Sizes{200, 300}, loaded.Sizes)
	assert.True(t, loaded.StoreOriginal)
	assert.True(t, loaded.CanSetExpire)

	_, err = repo.FindByName(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTierEmptySizesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewTierRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.Tier{Name: "Archive", StoreOriginal: true}))

	loaded, err := repo.FindByName(ctx, "Archive")
	require.NoError(t, err)
	assert.Empty(t, loaded.Sizes)
	assert.Equal(t, 1, loaded.Variants())
}

func TestTierInvalidSizesNeverPersisted(t *testing.T) {
	db := openTestDB(t)
	repo := NewTierRepository(db)
	ctx := context.Background()

	err := repo.Save(ctx, &models.Tier{Name: "broken", Sizes: models.Sizes{200, -5}})
	var vErr models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "sizes[1]", vErr.Field)

	// the gorm hook guards direct writes too
	err = db.Create(&models.Tier{Name: "sneaky", Sizes: models.Sizes{0}}).Error
	assert.Error(t, err)

	tiers, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tiers)
}

func TestSeedTiers(t *testing.T) {
	db := openTestDB(t)
	repo := NewTierRepository(db)
	ctx := context.Background()

	_, err := SeedTiers(ctx, repo, DefaultTiers)
	require.NoError(t, err)
	// seeding is an upsert by name
	_, err = SeedTiers(ctx, repo, DefaultTiers)
	require.NoError(t, err)

	tiers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 3)

	basic, err := repo.FindByName(ctx, "Basic")
	require.NoError(t, err)
	assert.Equal(t, models.Sizes{200}, basic.Sizes)
	assert.False(t, basic.StoreOriginal)
	assert.False(t, basic.CanSetExpire)

	premium, err := repo.FindByName(ctx, "Premium")
	require.NoError(t, err)
	assert.Equal(t, models.Sizes{200, 400}, premium.Sizes)
	assert.True(t, premium.StoreOriginal)
	assert.False(t, premium.CanSetExpire)

	enterprise, err := repo.FindByName(ctx, "Enterprise")
	require.NoError(t, err)
	assert.Equal(t, models.Sizes{200, 400}, enterprise.Sizes)
	assert.True(t, enterprise.StoreOriginal)
	assert.True(t, enterprise.CanSetExpire)
}

func TestParseTiersRejectsBadSizes(t *testing.T) {
	_, err := ParseTiers([]byte("- name: Odd\n  sizes: [200, big]\n"))

	var vErr models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "sizes[1]", vErr.Field)
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tier := &models.Tier{Name: "Basic", Sizes: models.Sizes{200}}
	require.NoError(t, NewTierRepository(db).Save(ctx, tier))

	repo := NewUserRepository(db)
	user := createUser(t, db, "test", *tier)
	assert.Equal(t, "Basic", user.Tier.Name)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Sizes{200}, byID.Tier.Sizes)

	byName, err := repo.FindByUsername(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	err = repo.Create(ctx, &models.User{Username: "test", Email: "other@example.com", Password: "x", TierID: tier.ID})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertBatchIsAllOrNothing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tier := &models.Tier{Name: "Premium", Sizes: models.Sizes{200, 400}, StoreOriginal: true}
	require.NoError(t, NewTierRepository(db).Save(ctx, tier))
	user := createUser(t, db, "test", *tier)

	repo := NewThumbnailRepository(db)
	batch := []models.Thumbnail{
		{Path: "a/1_O_cat.jpg", UserID: user.ID},
		{Path: "a/1_200_cat.png", UserID: user.ID, Size: intPtr(200)},
		{Path: "a/1_400_cat.png", UserID: user.ID, Size: intPtr(-400)},
	}
	require.Error(t, repo.InsertBatch(ctx, batch))

	count, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	batch[2].Size = intPtr(400)
	require.NoError(t, repo.InsertBatch(ctx, batch))

	count, err = repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestListActive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tier := &models.Tier{Name: "Enterprise", Sizes: models.Sizes{200}, StoreOriginal: true, CanSetExpire: true}
	require.NoError(t, NewTierRepository(db).Save(ctx, tier))
	owner := createUser(t, db, "owner", *tier)
	other := createUser(t, db, "other", *tier)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-300 * time.Second)
	future := now.Add(300 * time.Second)

	repo := NewThumbnailRepository(db)
	require.NoError(t, repo.InsertBatch(ctx, []models.Thumbnail{
		{Path: "never.png", UserID: owner.ID, Size: intPtr(200)},
		{Path: "expired.png", UserID: owner.ID, Size: intPtr(200), ExpireAt: &past},
		{Path: "later.png", UserID: owner.ID, ExpireAt: &future},
		{Path: "exact.png", UserID: owner.ID, Size: intPtr(200), ExpireAt: &now},
		{Path: "not-mine.png", UserID: other.ID, Size: intPtr(200)},
	}))

	active, err := repo.ListActive(ctx, owner.ID, now)
	require.NoError(t, err)

	var paths []string
	for _, th := range active {
		paths = append(paths, th.Path)
	}
	assert.Equal(t, []string{"never.png", "later.png", "exact.png"}, paths)

	// expired rows are hidden, not removed
	count, err := repo.CountByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}
