package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/commentron/commentron/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection and engagement statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := storage.GetStats()
		if err != nil {
			return err
		}

		fmt.Println("Statistics")
		fmt.Printf("  posts collected:    %d\n", stats["total_posts"])
		fmt.Printf("  posts engaged:      %d\n", stats["engaged_posts"])
		fmt.Printf("  comments recorded:  %d\n", stats["total_engagements"])
		fmt.Printf("  automation runs:    %d\n", stats["total_runs"])
		fmt.Printf("  generations today:  %d\n", stats["generations_today"])

		run, err := storage.LatestRun()
		if err == nil && run != nil {
			fmt.Println("\nLatest run")
			fmt.Printf("  id:        %s\n", run.ID)
			fmt.Printf("  active:    %t\n", run.Active)
			fmt.Printf("  quota:     %d\n", run.Quota)
			fmt.Printf("  collected: %d\n", len(run.URNs))
			if run.Reason != "" {
				fmt.Printf("  outcome:   %s (%s)\n", run.Reason, run.Message)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
