package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishkalaria12/snap-thumbs/auth"
	"github.com/krishkalaria12/snap-thumbs/database"
	handler "github.com/krishkalaria12/snap-thumbs/handlers"
	"github.com/krishkalaria12/snap-thumbs/logging"
	"github.com/krishkalaria12/snap-thumbs/router"
	"github.com/krishkalaria12/snap-thumbs/storage"
	"github.com/krishkalaria12/snap-thumbs/thumbnails"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logging.Error().Err(err).Msg("Error closing the database connection")
		}
	}()

	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage, cfg.BaseURL)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	users := database.NewUserRepository(db)
	tiers := database.NewTierRepository(db)
	authService := auth.NewService(cfg.Auth, cfg.BaseURL, users)
	generator := thumbnails.NewGenerator(
		database.NewThumbnailRepository(db),
		store,
		thumbnails.WithKeyPrefix(cfg.Storage.UploadPrefix),
	)

	deps := router.Deps{
		Handler: handler.New(authService, users, tiers, generator, cfg.Auth.CookieDuration),
		Auth:    authService,
	}
	if local, ok := store.(*storage.LocalStore); ok {
		deps.MediaDir = local.Dir()
		deps.MediaPrefix = cfg.Storage.MediaPrefix
	}
	app := router.NewApp(cfg.MaxUploadBytes, deps)

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Address).Str("storage", cfg.Storage.Driver).Msg("Serving the API")
		serverErr <- app.Listen(cfg.Address)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
