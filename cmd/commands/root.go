package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nclamvn/prismy-ultimate/internal/logger"
)

// RootCmd is the base command for the prismy CLI.
var RootCmd = &cobra.Command{
	Use:   "prismy",
	Short: "Prismy document translation pipeline",
	Long: `Prismy runs a multi-stage document translation pipeline:
extraction, chunking, translation and reconstruction, backed by
Redis queues and a shared job record store.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine, environment variables may be set directly.
		_ = godotenv.Load()
		logger.Initialize()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(workerCmd)
	RootCmd.AddCommand(statusCmd)
}
