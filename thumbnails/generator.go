package thumbnails

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/snap-thumbs/imaging"
	"github.com/krishkalaria12/snap-thumbs/logging"
	"github.com/krishkalaria12/snap-thumbs/metrics"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/oops"
	"github.com/krishkalaria12/snap-thumbs/storage"
)

const (
	MinExpireAfter = 300
	MaxExpireAfter = 30000
)

// Repository is the persistence the generator needs.
type Repository interface {
	InsertBatch(ctx context.Context, thumbnails []models.Thumbnail) error
	ListActive(ctx context.Context, userID uint, now time.Time) ([]models.Thumbnail, error)
}

// Upload is one received file. Data is owned by the generator for the
// duration of Generate and is never modified.
type Upload struct {
	Filename string
	Data     []byte
}

type Generator struct {
	repo   Repository
	store  storage.Store
	prefix string
	now    func() time.Time
	resize func(src []byte, height int) ([]byte, error)
}

type Option func(*Generator)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithKeyPrefix sets the storage key prefix, e.g. "thumbnails/".
func WithKeyPrefix(prefix string) Option {
	return func(g *Generator) { g.prefix = prefix }
}

func NewGenerator(repo Repository, store storage.Store, opts ...Option) *Generator {
	g := &Generator{
		repo:   repo,
		store:  store,
		now:    time.Now,
		resize: imaging.Resize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) URL(t models.Thumbnail) string {
	return g.store.URL(t.Path)
}

// staged is one variant waiting to be committed.
type staged struct {
	thumbnail   models.Thumbnail
	data        []byte
	contentType string
}

// Generate produces every variant the user's tier asks for and commits them
// together. On any error nothing is left behind.
func (g *Generator) Generate(ctx context.Context, user *models.User, upload Upload, expireAfter *int) ([]models.Thumbnail, error) {
	tier := user.Tier
	if tier.ID == 0 || tier.ID != user.TierID {
		return nil, oops.New(nil, "user %d has no resolved tier", user.ID)
	}

	result := "rejected"
	defer func() { metrics.UploadsTotal.WithLabelValues(tier.Name, result).Inc() }()

	expireAt, err := g.expireAt(tier, expireAfter)
	if err != nil {
		return nil, err
	}

	info, err := imaging.Inspect(upload.Data)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	filename := storage.SanitizeFilename(upload.Filename)
	var entries []staged

	if tier.StoreOriginal {
		entries = append(entries, staged{
			thumbnail: models.Thumbnail{
				Path:     g.key(batchID, user.ID, nil, filename),
				UserID:   user.ID,
				ExpireAt: expireAt,
			},
			data:        upload.Data,
			contentType: info.ContentType(),
		})
	}

	resizedName := imaging.OutputFilename(filename)
	for _, height := range tier.Sizes {
		start := time.Now()
		out, err := g.resize(upload.Data, height)
		metrics.ResizeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}

		size := height
		entries = append(entries, staged{
			thumbnail: models.Thumbnail{
				Path:     g.key(batchID, user.ID, &size, resizedName),
				Size:     &size,
				UserID:   user.ID,
				ExpireAt: expireAt,
			},
			data:        out,
			contentType: imaging.OutputContentType,
		})
	}

	// validate everything before the first write
	for i := range entries {
		if err := entries[i].thumbnail.Validate(); err != nil {
			return nil, err
		}
		if len(entries[i].data) == 0 {
			return nil, models.ValidationError{Field: "file", Message: "variant has no image data"}
		}
	}

	thumbnails, err := g.commit(ctx, entries)
	if err != nil {
		result = "failed"
		return nil, err
	}

	result = "created"
	for _, t := range thumbnails {
		variant := "resized"
		if t.IsOriginal() {
			variant = "original"
		}
		metrics.ThumbnailsCreated.WithLabelValues(tier.Name, variant).Inc()
	}
	logging.Info().
		Uint("user_id", user.ID).
		Str("tier", tier.Name).
		Str("batch", batchID).
		Int("variants", len(thumbnails)).
		Msg("thumbnails generated")

	return thumbnails, nil
}

// expireAt applies the tier gate. A requested expiry on a tier that cannot
// set one is dropped without complaint.
func (g *Generator) expireAt(tier models.Tier, expireAfter *int) (*time.Time, error) {
	if !tier.CanSetExpire || expireAfter == nil {
		return nil, nil
	}
	if *expireAfter < MinExpireAfter || *expireAfter > MaxExpireAfter {
		return nil, models.ValidationError{
			Field:   "expire_after",
			Message: fmt.Sprintf("expire_after out of range, must be between %d and %d seconds", MinExpireAfter, MaxExpireAfter),
		}
	}
	at := g.now().UTC().Add(time.Duration(*expireAfter) * time.Second)
	return &at, nil
}

// key mirrors "<user>_<size or O>_<filename>" inside a per-upload directory
// so repeated uploads of the same name never collide.
func (g *Generator) key(batchID string, userID uint, size *int, filename string) string {
	label := "O"
	if size != nil {
		label = strconv.Itoa(*size)
	}
	return fmt.Sprintf("%s%s/%d_%s_%s", g.prefix, batchID, userID, label, filename)
}

// commit writes the blobs, then the rows in one transaction. Blobs written
// before a failure are removed again.
func (g *Generator) commit(ctx context.Context, entries []staged) ([]models.Thumbnail, error) {
	var written []string
	cleanup := func() {
		for _, key := range written {
			if err := g.store.Delete(context.Background(), key); err != nil {
				logging.Error().Err(err).Str("key", key).Msg("failed to remove orphaned thumbnail")
			}
		}
	}

	for _, e := range entries {
		if err := g.store.Put(ctx, e.thumbnail.Path, e.contentType, e.data); err != nil {
			cleanup()
			return nil, oops.New(err, "failed to store thumbnail %s", e.thumbnail.Path)
		}
		written = append(written, e.thumbnail.Path)
	}

	thumbnails := make([]models.Thumbnail, len(entries))
	for i, e := range entries {
		thumbnails[i] = e.thumbnail
	}
	if err := g.repo.InsertBatch(ctx, thumbnails); err != nil {
		cleanup()
		return nil, oops.New(err, "failed to save thumbnails")
	}
	return thumbnails, nil
}

// List returns the user's thumbnails that have not expired yet.
func (g *Generator) List(ctx context.Context, user *models.User) ([]models.Thumbnail, error) {
	return g.repo.ListActive(ctx, user.ID, g.now())
}
