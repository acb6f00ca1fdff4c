package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakridgegc/teetime-lottery/pkg/core/services"
)

// PreviewWindowsCmd creates the previewWindows command
func PreviewWindowsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "previewWindows <date>",
		Short: "Show the time windows computed for a lottery date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
			}

			windows, err := services.PreviewWindows(app.Ctx, app.Database, app.Logger, date)
			if err != nil {
				return err
			}
			if len(windows) == 0 {
				fmt.Printf("\nNo time blocks published for %s\n\n", args[0])
				return nil
			}

			fmt.Printf("\nTime windows for %s\n\n", args[0])
			for _, w := range windows {
				fmt.Printf("  %d. %-13s %-10s\n", w.Index+1, w.Label, w.Position)
			}
			fmt.Println()

			return nil
		},
	}
}
