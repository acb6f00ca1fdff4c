package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakridgegc/teetime-lottery/pkg/core/services"
	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// ProcessDateCmd creates the processDate command
func ProcessDateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "processDate <date>",
		Short: "Run the lottery assignment pass for a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
			}

			retract, _ := cmd.Flags().GetBool("retract")
			adminID, _ := cmd.Flags().GetString("admin")
			notes, _ := cmd.Flags().GetString("notes")

			result, err := services.ProcessLotteryDate(app.Ctx, app.Database, app.Cfg, app.Logger, date, services.ProcessDateOptions{
				Retract: retract,
				AdminID: adminID,
				Notes:   notes,
			})
			if errors.Is(err, db.ErrDuplicateRun) {
				return fmt.Errorf("another run for %s was recorded concurrently; re-run to view it", args[0])
			}
			if err != nil {
				return err
			}

			if result.AlreadyProcessed {
				fmt.Printf("\nDate %s already processed (run %s). Use --retract to replay.\n",
					args[0], result.Run.ID)
				return nil
			}

			fmt.Printf("\n✓ Lottery processed for %s\n\n", args[0])
			fmt.Printf("Run ID:      %s\n", result.Run.ID)
			fmt.Printf("Total:       %d (%d individual, %d group)\n",
				result.Run.TotalEntries, result.Run.IndividualEntries, result.Run.GroupEntries)
			fmt.Printf("Assigned:    %d\n", result.Run.AssignedEntries)
			fmt.Printf("Violations:  %d\n\n", result.Run.Violations)

			for _, r := range result.Results {
				if r.Assigned {
					marker := "preferred"
					if r.AlternateAssigned {
						marker = "alternate"
					}
					fmt.Printf("  ✓ %-12s → block %s (%s window, score %.2f)\n",
						r.Entry.ID, r.BlockID, marker, r.Score.Total)
				} else {
					fmt.Printf("  ✗ %-12s   %s", r.Entry.ID, r.Reason)
					if r.Detail != "" {
						fmt.Printf(" (%s)", r.Detail)
					}
					fmt.Println()
				}
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().Bool("retract", false, "Supersede an existing run for the date and replay")
	cmd.Flags().String("admin", "", "Admin ID to attribute this run to")
	cmd.Flags().String("notes", "", "Notes to record on the processing run")

	return cmd
}
