package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nclamvn/prismy-ultimate/config"
	"github.com/nclamvn/prismy-ultimate/internal/api/v1/handlers"
	"github.com/nclamvn/prismy-ultimate/internal/app"
	"github.com/nclamvn/prismy-ultimate/internal/db/archive"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
	"github.com/nclamvn/prismy-ultimate/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server with embedded stage workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		rt, err := newRuntime(&cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return err
		}
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

		if cfg.JanitorInterval > 0 {
			var arc *archive.Archive
			if cfg.ArchiveDSN != "" {
				arc, err = archive.Open(cfg.ArchiveDSN)
				if err != nil {
					return err
				}
			}
			janitor := services.NewJanitor(rt.store, rt.store, arc, cfg.JobTTL, cfg.JanitorInterval)
			wg.Add(1)
			go janitor.Run(ctx, &wg)
		}

		handler := handlers.NewJobHandler(rt.manager, cfg.UploadDir)
		srv := app.New(handler)

		errCh := make(chan error, 1)
		go func() {
			logger.Infof("API server listening on %s", cfg.ListenAddr)
			errCh <- srv.Listen(cfg.ListenAddr)
		}()

		select {
		case err := <-errCh:
			stop()
			wg.Wait()
			return err
		case <-ctx.Done():
			logger.Info("Shutdown signal received, draining...")
			if err := srv.Shutdown(); err != nil {
				logger.Errorf("Server shutdown: %v", err)
			}
			wg.Wait()
			logger.Info("Shutdown complete")
			return nil
		}
	},
}
