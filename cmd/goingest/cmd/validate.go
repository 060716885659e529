package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and destination connectivity",
	Long: `Validate checks the configuration file and the destination database
to ensure safe execution.

Checks performed:
  - Configuration syntax and required fields
  - Cron schedules and inference options of every job
  - Table names accepted by every destination dialect
  - Destination database connectivity

Example:
  goingest validate --config goingest.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting validation checks...")

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", configFile)
	cmd.Printf("Source: %s\n", cfg.Source.Type)
	if cfg.History.Enabled {
		cmd.Printf("Run history table: %s\n", cfg.History.Table)
	} else {
		cmd.Printf("Run history: disabled\n")
	}
	cmd.Printf("Jobs found: %d\n\n", len(cfg.Jobs))

	for _, jobName := range cfg.ListJobs() {
		job, _ := cfg.GetJob(jobName)
		cmd.Printf("--- Job: %s ---\n", jobName)
		cmd.Printf("Table: %s\n", job.Table)
		if job.Schedule != "" {
			cmd.Printf("Schedule: %s\n", job.Schedule)
		}
		if _, err := pipeline.InferenceOptions(cfg.GetJobInference(jobName)); err != nil {
			return fmt.Errorf("job %s: %w", jobName, err)
		}
		cmd.Printf("✅ Job configuration valid\n\n")
	}

	dbManager := database.NewManager(cfg)
	ctx := context.Background()

	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to destination: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	cmd.Printf("✅ Destination reachable (%s)\n\n", dbManager.Driver)

	cmd.Println("=== Validation Complete ===")
	cmd.Println("✅ All jobs validated successfully")
	return nil
}
