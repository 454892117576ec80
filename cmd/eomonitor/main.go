package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ExecOrdersMonitor/internal/app"
	"ExecOrdersMonitor/internal/config"
	"ExecOrdersMonitor/internal/logging"
)

var (
	configFile string
	forceRun   bool
)

var rootCmd = &cobra.Command{
	Use:   "eomonitor",
	Short: "Monitors presidential actions and publishes new ones",
	Long: `eomonitor checks the White House presidential-actions listing for
documents it has not seen before, renders each into an archival PDF and
pushes it through DocumentCloud, the Internet Archive, IPFS and Bluesky.
Each invocation performs at most one run; schedule it with cron.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one scheduled check",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configFile)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("startup failed", "error", err)
			return err
		}
		defer application.Close()

		summary, err := application.Run(cmd.Context(), forceRun)
		if err != nil {
			logger.Error("run aborted", "error", err)
			return err
		}
		if summary.SkippedRun {
			return nil
		}
		for _, item := range summary.Items {
			if !item.Done {
				logger.Warn("item not completed, will retry next run", "order", item.Order.ID)
			}
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print persisted ledger totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configFile)
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		stats, err := application.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("processed: %d\n", stats.Processed)
		fmt.Printf("announced: %d\n", stats.Announced)
		if stats.LastRunAt != nil {
			fmt.Printf("last run:  %s\n", stats.LastRunAt.Format(time.RFC3339))
		} else {
			fmt.Println("last run:  never")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML configuration file")
	runCmd.Flags().BoolVar(&forceRun, "force", false, "run even if the cadence interval has not elapsed")
	rootCmd.AddCommand(runCmd, statusCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
