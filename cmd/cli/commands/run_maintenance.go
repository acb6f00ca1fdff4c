package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakridgegc/teetime-lottery/pkg/core/services"
)

// RunMaintenanceCmd creates the runMaintenance command
func RunMaintenanceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runMaintenance",
		Short: "Run the monthly fairness reset and speed recalculation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.RunMaintenance(app.Ctx, app.Database, app.Logger, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Maintenance complete for %s\n\n", result.Month)
			if result.FairnessSkipped {
				fmt.Println("Fairness rows: already exist for this month (no-op)")
			} else {
				fmt.Printf("Fairness rows created: %d\n", result.FairnessRowsCreated)
			}
			fmt.Printf("Speed profiles updated: %d\n\n", result.ProfilesUpdated)

			return nil
		},
	}
}
