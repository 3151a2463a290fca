package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/fraudguard-backend/internal/app"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "fraudguard",
		Short:   "Fraud detection backend: dataset intake, ML dispatch and result callbacks",
		Version: Version,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the dispatch relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			a, err := app.New(ctx, log)
			if err != nil {
				log.Error("Failed to initialize app", "error", err)
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("Server exited", "error", err)
				return err
			}
			log.Info("Shutdown complete")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := app.LoadConfig(log)
			if err != nil {
				return err
			}
			cfg.AutoMigrate = true
			svc, err := app.OpenDatabase(log, cfg)
			if err != nil {
				return err
			}
			return svc.Close()
		},
	}
}
