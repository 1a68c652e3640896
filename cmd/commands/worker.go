package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nclamvn/prismy-ultimate/config"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
	"github.com/nclamvn/prismy-ultimate/internal/services"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run stage workers without the API server",
	Long: `Run the stage worker pools against the shared Redis queues.
Multiple worker processes may run side by side; the queues distribute
jobs between them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		rt, err := newRuntime(&cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if cfg.OutputDir != "" {
			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var wg sync.WaitGroup
		services.LaunchWorkers(ctx, &wg, rt.manager, rt.queues, cfg.PopTimeout, services.PoolConfig{
			Extraction:     cfg.ExtractionWorkers,
			Chunking:       cfg.ChunkingWorkers,
			Translation:    cfg.TranslationWorkers,
			Reconstruction: cfg.ReconstructionWorkers,
		}, rt.processors()...)

		<-ctx.Done()
		logger.Info("Shutdown signal received, draining...")
		wg.Wait()
		logger.Info("Shutdown complete")
		return nil
	},
}
