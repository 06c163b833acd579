package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/krishkalaria12/snap-thumbs/database"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/spf13/cobra"
)

func newTiersCommand() *cobra.Command {
	tiersCommand := &cobra.Command{
		Use:   "tiers",
		Short: "Manage subscription tiers",
	}

	var (
		name          string
		sizes         string
		storeOriginal bool
		canSetExpire  bool
	)
	createCommand := &cobra.Command{
		Use:   "create",
		Short: "Create a tier, or update the one with the same name",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParseSizes(sizes)
			if err != nil {
				return err
			}

			_, db, err := setup()
			if err != nil {
				return err
			}
			defer database.Close(db)

			tier := &models.Tier{
				Name:          name,
				Sizes:         parsed,
				StoreOriginal: storeOriginal,
				CanSetExpire:  canSetExpire,
			}
			if err := database.NewTierRepository(db).Save(cmd.Context(), tier); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved tier %q\n", tier.Name)
			return nil
		},
	}
	createCommand.Flags().StringVar(&name, "name", "", "Tier name")
	createCommand.Flags().StringVar(&sizes, "sizes", "[]", "JSON array of thumbnail heights, e.g. [200, 400]")
	createCommand.Flags().BoolVar(&storeOriginal, "store-original", false, "Keep the uploaded original")
	createCommand.Flags().BoolVar(&canSetExpire, "can-set-expire", false, "Allow uploads to set expire_after")
	_ = createCommand.MarkFlagRequired("name")

	listCommand := &cobra.Command{
		Use:   "list",
		Short: "List tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer database.Close(db)

			tiers, err := database.NewTierRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZES\tORIGINAL\tEXPIRY")
			for _, tier := range tiers {
				encoded, _ := json.Marshal(tier.Sizes)
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", tier.ID, tier.Name, encoded, tier.StoreOriginal, tier.CanSetExpire)
			}
			return w.Flush()
		},
	}

	var file string
	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Load tiers from a YAML file (defaults to Basic, Premium and Enterprise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := database.DefaultTiers
			if file != "" {
				var err error
				data, err = os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read tiers file: %w", err)
				}
			}

			_, db, err := setup()
			if err != nil {
				return err
			}
			defer database.Close(db)

			tiers, err := database.SeedTiers(cmd.Context(), database.NewTierRepository(db), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d tiers\n", len(tiers))
			return nil
		},
	}
	seedCommand.Flags().StringVar(&file, "file", "", "YAML file with a list of tiers")

	tiersCommand.AddCommand(createCommand, listCommand, seedCommand)
	return tiersCommand
}
