package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-thumbs/auth"
	"github.com/krishkalaria12/snap-thumbs/logging"
	"github.com/krishkalaria12/snap-thumbs/models"
)

const userKey = "user"

// Authenticator resolves request credentials to a user with its tier loaded.
type Authenticator interface {
	UserFromToken(ctx context.Context, token string) (*models.User, error)
	UserFromBasic(ctx context.Context, credentials string) (*models.User, error)
}

var ErrNoUser = errors.New("no authenticated user on request")

// AuthMiddleware accepts a bearer token, HTTP basic credentials or the JWT
// cookie, in that order. Requests without valid credentials stop here.
func AuthMiddleware(authenticator Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)

		// auth schemes are case-insensitive
		scheme, credentials, _ := strings.Cut(strings.TrimSpace(authHeader), " ")
		credentials = strings.TrimSpace(credentials)

		var user *models.User
		var err error

		switch {
		case strings.EqualFold(scheme, "Bearer"):
			user, err = authenticator.UserFromToken(c.UserContext(), credentials)
		case strings.EqualFold(scheme, "Basic"):
			user, err = authenticator.UserFromBasic(c.UserContext(), credentials)
		default:
			tokenStr := c.Cookies("JWT")
			if tokenStr == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"status":  "error",
					"message": "You are not authorized!",
					"data":    nil,
				})
			}
			user, err = authenticator.UserFromToken(c.UserContext(), tokenStr)
		}

		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				logging.FromCtx(c).Error().Stack().Err(err).Msg("failed to authenticate request")
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid credentials",
				"status":  "error",
				"data":    nil,
			})
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user AuthMiddleware attached to the request.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(userKey).(*models.User)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}
