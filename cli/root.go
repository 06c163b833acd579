package cli

import (
	"os"

	"github.com/krishkalaria12/snap-thumbs/config"
	"github.com/krishkalaria12/snap-thumbs/database"
	"github.com/krishkalaria12/snap-thumbs/logging"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// NewRootCommand serves the API when run without a subcommand.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "snap-thumbs",
		Short:        "Tiered thumbnail API",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newTiersCommand(),
		newUsersCommand(),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration, installs the logger and connects to the
// database. Callers close the returned connection.
func setup() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logging.Setup(cfg.Log)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, db, nil
}
