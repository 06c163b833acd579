package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/krishkalaria12/snap-thumbs/auth"
	handler "github.com/krishkalaria12/snap-thumbs/handlers"
	"github.com/krishkalaria12/snap-thumbs/logging"
	"github.com/krishkalaria12/snap-thumbs/metrics"
	"github.com/krishkalaria12/snap-thumbs/middleware"
)

type Deps struct {
	Handler *handler.Handler
	Auth    *auth.Service

	// MediaDir is served under MediaPrefix when thumbnails live on local disk.
	MediaDir    string
	MediaPrefix string
}

// NewApp builds the fiber app with every route registered.
func NewApp(bodyLimit int, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "snap-thumbs",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler,
	})
	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Deps) {
	app.Use(logging.RequestLogger())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Get("/metrics", metrics.Handler())

	if deps.MediaDir != "" {
		app.Static(deps.MediaPrefix, deps.MediaDir)
	}

	// go-pkgz login/logout for the direct provider: /auth/local/login etc.
	app.All("/auth/*", adaptor.HTTPHandler(deps.Auth.Handlers()))

	api := app.Group("/api")
	api.Get("/health", handler.Health)

	// Auth
	authGroup := api.Group("/auth")
	authGroup.Post("/login", deps.Handler.Login)
	authGroup.Post("/logout", deps.Handler.Logout)

	// User
	user := api.Group("/user")
	user.Get("/:id", deps.Handler.GetUser)
	user.Post("/", deps.Handler.CreateUser)

	// Thumbnails
	thumbs := api.Group("/thumbnails", middleware.AuthMiddleware(deps.Auth))
	thumbs.Get("/", deps.Handler.ListThumbnails)
	thumbs.Post("/", deps.Handler.UploadThumbnail)
}

// ErrorHandler renders errors that escaped a handler, including fiber's own
// (unknown route, body too large), in the usual envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}
