package cli

import (
	"errors"
	"fmt"

	"github.com/krishkalaria12/snap-thumbs/auth"
	"github.com/krishkalaria12/snap-thumbs/database"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/spf13/cobra"
)

func newUsersCommand() *cobra.Command {
	usersCommand := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var username, email, fullName, password, tierName string
	createCommand := &cobra.Command{
		Use:   "create",
		Short: "Create a user on a tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer database.Close(db)

			tier, err := database.NewTierRepository(db).FindByName(cmd.Context(), tierName)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("tier %q does not exist", tierName)
			}
			if err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			user := &models.User{
				Username: username,
				Email:    email,
				FullName: fullName,
				Password: hash,
				TierID:   tier.ID,
			}
			if err := database.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %q (id %d) on tier %s\n", user.Username, user.ID, tier.Name)
			return nil
		},
	}
	createCommand.Flags().StringVar(&username, "username", "", "Login name")
	createCommand.Flags().StringVar(&email, "email", "", "Email address")
	createCommand.Flags().StringVar(&fullName, "name", "", "Display name")
	createCommand.Flags().StringVar(&password, "password", "", "Password")
	createCommand.Flags().StringVar(&tierName, "tier", "Basic", "Tier name")
	for _, flag := range []string{"username", "email", "password"} {
		_ = createCommand.MarkFlagRequired(flag)
	}

	usersCommand.AddCommand(createCommand)
	return usersCommand
}
