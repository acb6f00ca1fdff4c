package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakridgegc/teetime-lottery/pkg/core/services"
)

// ListProfilesCmd creates the listProfiles command
func ListProfilesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listProfiles",
		Short: "List member speed tiers and current-month fairness standing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := services.ListProfiles(app.Ctx, app.Database, app.Logger, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Printf("\n%-12s %-20s %-8s %-10s %s\n", "ID", "Name", "Tier", "Fairness", "Flags")
			for _, p := range profiles {
				tier := "-"
				flags := ""
				if p.Profile != nil {
					tier = p.Profile.Tier
					if p.Profile.ManualOverride {
						flags = "override"
					}
				}
				fairness := "-"
				if p.Fairness != nil {
					fairness = fmt.Sprintf("%.2f", p.Fairness.Score)
				}
				fmt.Printf("%-12s %-20s %-8s %-10s %s\n", p.Member.ID, p.Member.Name, tier, fairness, flags)
			}
			fmt.Println()

			return nil
		},
	}
}
