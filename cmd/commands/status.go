package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nclamvn/prismy-ultimate/config"
	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print queue depths and active jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		rt, err := newRuntime(&cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		counts, err := rt.manager.QueueStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Queues:")
		for _, stage := range models.Stages {
			fmt.Printf("  %-15s %d\n", stage, counts[stage])
		}

		jobs, err := rt.manager.ActiveJobs(ctx, 20)
		if err != nil {
			return err
		}
		fmt.Printf("\nActive jobs (%d):\n", len(jobs))
		for _, job := range jobs {
			fmt.Printf("  %s  %-15s %5.1f%%  %s -> %s\n",
				job.ID, job.Status, job.Progress, job.SourceLang, job.TargetLang)
		}
		return nil
	},
}
