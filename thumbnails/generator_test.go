package thumbnails

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/krishkalaria12/snap-thumbs/imaging"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type memoryRepo struct {
	rows    []models.Thumbnail
	err     error
	listNow time.Time
}

func (r *memoryRepo) InsertBatch(ctx context.Context, thumbnails []models.Thumbnail) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, thumbnails...)
	return nil
}

func (r *memoryRepo) ListActive(ctx context.Context, userID uint, now time.Time) ([]models.Thumbnail, error) {
	r.listNow = now
	var out []models.Thumbnail
	for _, t := range r.rows {
		if t.UserID == userID && t.ActiveAt(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

// failingStore accepts a fixed number of writes and then errors.
type failingStore struct {
	*storage.LocalStore
	remaining int
}

func (s *failingStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if s.remaining == 0 {
		return errors.New("bucket unavailable")
	}
	s.remaining--
	return s.LocalStore.Put(ctx, key, contentType, data)
}

var (
	basic      = models.Tier{Model: gorm.Model{ID: 1}, Name: "Basic", Sizes: models.Sizes{200}}
	premium    = models.Tier{Model: gorm.Model{ID: 2}, Name: "Premium", Sizes: models.Sizes{200, 400}, StoreOriginal: true}
	enterprise = models.Tier{Model: gorm.Model{ID: 3}, Name: "Enterprise", Sizes: models.Sizes{200, 400}, StoreOriginal: true, CanSetExpire: true}
)

func userOn(tier models.Tier) *models.User {
	return &models.User{Model: gorm.Model{ID: 7}, Username: "test", TierID: tier.ID, Tier: tier}
}

func jpegUpload(t *testing.T, width, height int) Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return Upload{Filename: "cat.jpg", Data: buf.Bytes()}
}

func newTestGenerator(t *testing.T) (*Generator, *memoryRepo, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	repo := &memoryRepo{}
	gen := NewGenerator(repo, store, WithClock(func() time.Time { return fixedNow }), WithKeyPrefix("thumbnails/"))
	return gen, repo, store
}

func storedFiles(t *testing.T, store *storage.LocalStore) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(store.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func sizesOf(thumbnails []models.Thumbnail) []interface{} {
	var out []interface{}
	for _, t := range thumbnails {
		if t.Size == nil {
			out = append(out, nil)
		} else {
			out = append(out, *t.Size)
		}
	}
	return out
}

func expireAfter(v int) *int {
	return &v
}

func TestGenerateVariantCountPerTier(t *testing.T) {
	tests := []struct {
		tier  models.Tier
		sizes []interface{}
	}{
		{tier: basic, sizes: []interface{}{200}},
		{tier: premium, sizes: []interface{}{nil, 200, 400}},
		{tier: enterprise, sizes: []interface{}{nil, 200, 400}},
	}

	for _, tt := range tests {
		t.Run(tt.tier.Name, func(t *testing.T) {
			gen, repo, store := newTestGenerator(t)

			created, err := gen.Generate(context.Background(), userOn(tt.tier), jpegUpload(t, 100, 100), nil)
			require.NoError(t, err)

			assert.Len(t, created, tt.tier.Variants())
			assert.Equal(t, tt.sizes, sizesOf(created))
			assert.Len(t, repo.rows, tt.tier.Variants())
			assert.Len(t, storedFiles(t, store), tt.tier.Variants())
			for _, th := range created {
				assert.Nil(t, th.ExpireAt)
				assert.EqualValues(t, 7, th.UserID)
			}
		})
	}
}

func TestGenerateTierWithoutVariants(t *testing.T) {
	gen, repo, _ := newTestGenerator(t)
	tier := models.Tier{Model: gorm.Model{ID: 9}, Name: "Nothing", Sizes: models.Sizes{}}

	created, err := gen.Generate(context.Background(), userOn(tier), jpegUpload(t, 10, 10), nil)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, repo.rows)
}

func TestGenerateKeysAndFormats(t *testing.T) {
	gen, _, store := newTestGenerator(t)

	created, err := gen.Generate(context.Background(), userOn(premium), jpegUpload(t, 400, 565), nil)
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.True(t, strings.HasPrefix(created[0].Path, "thumbnails/"))
	assert.True(t, strings.HasSuffix(created[0].Path, "/7_O_cat.jpg"), created[0].Path)
	assert.True(t, strings.HasSuffix(created[1].Path, "/7_200_cat.png"), created[1].Path)
	assert.True(t, strings.HasSuffix(created[2].Path, "/7_400_cat.png"), created[2].Path)
	assert.Equal(t, "/media/"+created[1].Path, gen.URL(created[1]))

	// one upload, one directory
	dir := func(p string) string { return p[:strings.LastIndex(p, "/")] }
	assert.Equal(t, dir(created[0].Path), dir(created[2].Path))

	resized, err := os.ReadFile(filepath.Join(store.Dir(), filepath.FromSlash(created[1].Path)))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(resized))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 141, cfg.Width)
	assert.Equal(t, 200, cfg.Height)

	original, err := os.ReadFile(filepath.Join(store.Dir(), filepath.FromSlash(created[0].Path)))
	require.NoError(t, err)
	_, format, err = image.DecodeConfig(bytes.NewReader(original))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format, "the original is kept verbatim")
}

func TestGenerateWithExpiry(t *testing.T) {
	gen, repo, _ := newTestGenerator(t)

	created, err := gen.Generate(context.Background(), userOn(enterprise), jpegUpload(t, 100, 100), expireAfter(400))
	require.NoError(t, err)
	require.Len(t, created, 3)

	want := fixedNow.Add(400 * time.Second)
	for _, th := range repo.rows {
		require.NotNil(t, th.ExpireAt)
		assert.True(t, want.Equal(*th.ExpireAt))
	}
	// computed once and shared by the whole batch
	assert.Same(t, repo.rows[0].ExpireAt, repo.rows[2].ExpireAt)
}

func TestGenerateExpiryBounds(t *testing.T) {
	for _, seconds := range []int{MinExpireAfter, MaxExpireAfter} {
		gen, repo, _ := newTestGenerator(t)
		_, err := gen.Generate(context.Background(), userOn(enterprise), jpegUpload(t, 20, 20), expireAfter(seconds))
		require.NoError(t, err, "expire_after=%d", seconds)
		assert.Len(t, repo.rows, 3)
	}

	for _, seconds := range []int{-1, 0, 200, MinExpireAfter - 1, MaxExpireAfter + 1} {
		gen, repo, store := newTestGenerator(t)
		_, err := gen.Generate(context.Background(), userOn(enterprise), jpegUpload(t, 20, 20), expireAfter(seconds))

		var vErr models.ValidationError
		require.True(t, errors.As(err, &vErr), "expire_after=%d", seconds)
		assert.Equal(t, "expire_after", vErr.Field)
		assert.Contains(t, vErr.Message, "expire_after out of range")
		assert.Empty(t, repo.rows)
		assert.Empty(t, storedFiles(t, store))
	}
}

// Tiers that cannot set an expiry silently drop the requested value rather
// than rejecting the upload.
func TestGenerateIgnoresExpiryWhenTierDisallows(t *testing.T) {
	for _, seconds := range []int{400, 200} {
		gen, repo, _ := newTestGenerator(t)

		created, err := gen.Generate(context.Background(), userOn(premium), jpegUpload(t, 50, 50), expireAfter(seconds))
		require.NoError(t, err)
		assert.Len(t, created, 3)
		for _, th := range repo.rows {
			assert.Nil(t, th.ExpireAt)
		}
	}
}

func TestGenerateRejectsUndecodableUpload(t *testing.T) {
	gen, repo, store := newTestGenerator(t)

	_, err := gen.Generate(context.Background(), userOn(premium), Upload{Filename: "notes.txt", Data: []byte("hello")}, nil)

	var dErr imaging.DecodeError
	assert.True(t, errors.As(err, &dErr))
	assert.Empty(t, repo.rows)
	assert.Empty(t, storedFiles(t, store))
}

func TestGenerateResizeFailureLeavesNothing(t *testing.T) {
	gen, repo, store := newTestGenerator(t)
	calls := 0
	gen.resize = func(src []byte, height int) ([]byte, error) {
		calls++
		if height == 400 {
			return nil, imaging.DecodeError{Err: errors.New("truncated")}
		}
		return imaging.Resize(src, height)
	}

	_, err := gen.Generate(context.Background(), userOn(premium), jpegUpload(t, 50, 50), nil)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Empty(t, repo.rows)
	assert.Empty(t, storedFiles(t, store))
}

func TestGenerateRepositoryFailureRemovesBlobs(t *testing.T) {
	gen, repo, store := newTestGenerator(t)
	repo.err = errors.New("connection reset")

	_, err := gen.Generate(context.Background(), userOn(enterprise), jpegUpload(t, 50, 50), nil)
	require.ErrorIs(t, err, repo.err)
	assert.Empty(t, repo.rows)
	assert.Empty(t, storedFiles(t, store))
}

func TestGenerateStoreFailureRemovesBlobs(t *testing.T) {
	local, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	repo := &memoryRepo{}
	gen := NewGenerator(repo, &failingStore{LocalStore: local, remaining: 2})

	_, err = gen.Generate(context.Background(), userOn(premium), jpegUpload(t, 50, 50), nil)
	require.Error(t, err)
	assert.Empty(t, repo.rows)
	assert.Empty(t, storedFiles(t, local))
}

func TestGenerateRequiresResolvedTier(t *testing.T) {
	gen, _, _ := newTestGenerator(t)
	user := &models.User{Model: gorm.Model{ID: 7}, TierID: 3}

	_, err := gen.Generate(context.Background(), user, jpegUpload(t, 10, 10), nil)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	gen, repo, _ := newTestGenerator(t)
	past := fixedNow.Add(-300 * time.Second)
	future := fixedNow.Add(300 * time.Second)
	size := 200
	repo.rows = []models.Thumbnail{
		{Path: "a.png", UserID: 7, Size: &size},
		{Path: "b.png", UserID: 7, Size: &size, ExpireAt: &past},
		{Path: "c.png", UserID: 7, ExpireAt: &future},
		{Path: "d.png", UserID: 8},
	}

	listed, err := gen.List(context.Background(), userOn(enterprise))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, repo.listNow)
	require.Len(t, listed, 2)
	assert.Equal(t, "a.png", listed[0].Path)
	assert.Equal(t, "c.png", listed[1].Path)
}
