package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakridgegc/teetime-lottery/pkg/core/services"
)

// ViewStatsCmd creates the viewStats command
func ViewStatsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewStats <date>",
		Short: "Show processing statistics for a lottery date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
			}

			stats, err := services.ViewStats(app.Ctx, app.Database, app.Logger, date)
			if err != nil {
				return err
			}

			fmt.Printf("\nLottery stats for %s (run %s)\n\n", args[0], stats.Run.ID)
			fmt.Printf("Entries:          %d (%d individual, %d group)\n",
				stats.Run.TotalEntries, stats.Run.IndividualEntries, stats.Run.GroupEntries)
			fmt.Printf("Assignment rate:  %.0f%%\n", stats.AssignmentRate*100)
			fmt.Printf("Preference match: %.0f%%\n", stats.PreferenceMatchRate*100)
			fmt.Printf("Alternate rate:   %.0f%%\n", stats.AlternateRate*100)
			fmt.Printf("Fairness average: %.2f\n", stats.FairnessAverage)

			if len(stats.UnassignedReasons) > 0 {
				fmt.Println("\nUnassigned reasons:")
				for reason, count := range stats.UnassignedReasons {
					fmt.Printf("  %-12s %d\n", reason, count)
				}
			}
			if len(stats.TierDistribution) > 0 {
				fmt.Println("\nSpeed tiers:")
				for tier, count := range stats.TierDistribution {
					fmt.Printf("  %-8s %d\n", tier, count)
				}
			}
			fmt.Println()

			return nil
		},
	}
}
