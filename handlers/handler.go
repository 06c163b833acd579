package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-thumbs/auth"
	"github.com/krishkalaria12/snap-thumbs/imaging"
	"github.com/krishkalaria12/snap-thumbs/logging"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/thumbnails"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type TierStore interface {
	FindByName(ctx context.Context, name string) (*models.Tier, error)
}

type Handler struct {
	auth       *auth.Service
	users      UserStore
	tiers      TierStore
	thumbnails *thumbnails.Generator
	cookieTTL  time.Duration
}

func New(authService *auth.Service, users UserStore, tiers TierStore, generator *thumbnails.Generator, cookieTTL time.Duration) *Handler {
	return &Handler{
		auth:       authService,
		users:      users,
		tiers:      tiers,
		thumbnails: generator,
		cookieTTL:  cookieTTL,
	}
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "message": "ok", "data": nil})
}

// fail writes the error envelope. Validation and decode errors are the
// client's fault, anything else is logged and hidden behind a 500.
func fail(c *fiber.Ctx, err error) error {
	var validationErr models.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": validationErr.Message,
			"data":    fiber.Map{"field": validationErr.Field},
		})
	}

	var decodeErr imaging.DecodeError
	if errors.As(err, &decodeErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
			"data":    fiber.Map{"field": "file"},
		})
	}

	logging.FromCtx(c).Error().Stack().Err(err).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "Internal server error",
		"data":    nil,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"message": "Authentication required",
		"data":    nil,
	})
}
