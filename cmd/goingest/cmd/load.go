package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/lock"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/pipeline"
)

var (
	loadJob   string
	loadForce bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Fetch a job's records and replace its table",
	Long: `Load runs one ingest job end to end.

The load process follows these steps:
  1. Fetch every record from the job's source (all OData pages or the file)
  2. Infer a schema from the first sample_size records
  3. Drop and recreate the table, insert the conformed rows (one transaction)
  4. Verify the table row count

On MySQL destinations the job holds an advisory lock so that two instances
never load the same job at once.

Example:
  goingest load --config goingest.yaml --job contacts`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVarP(&loadJob, "job", "j", "",
		"Job name from configuration file (required)")
	_ = loadCmd.MarkFlagRequired("job")

	loadCmd.Flags().BoolVar(&loadForce, "force", false,
		"Force execution even if job lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := cfg.GetJob(loadJob); err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Infow("Starting load operation",
		"job", loadJob,
		"config", configFile,
	)

	dbManager := database.NewManager(cfg)

	// Setup context with signal handling
	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnw("Received shutdown signal - rolling back current load", "signal", sig.String())
	})

	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to destination: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	result, err := executeJob(ctx, cfg, loadJob, dbManager, log, loadForce)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Load operation cancelled by user")
			return nil
		}
		return err
	}

	printResult(cmd, result)
	return nil
}

// executeJob runs one job, under the job's advisory lock on MySQL.
func executeJob(ctx context.Context, cfg *config.Config, jobName string, dbManager *database.Manager, log *logger.Logger, force bool) (*pipeline.RunResult, error) {
	job, err := cfg.GetJob(jobName)
	if err != nil {
		return nil, err
	}

	orch, err := pipeline.NewOrchestrator(cfg, jobName, job, dbManager, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	orch.SetProcessing(cfg.ApplyJobOverrides(jobName, GetCLIOverrides().BatchSize))

	var result *pipeline.RunResult
	run := func() error {
		var runErr error
		result, runErr = orch.Run(ctx)
		return runErr
	}

	switch {
	case force:
		log.Warnw("Skipping advisory lock acquisition (--force flag used)", "job", jobName)
		err = run()
	case dbManager.Driver != "mysql":
		log.Infow("Advisory locks need MySQL - running without a job lock", "job", jobName, "driver", dbManager.Driver)
		err = run()
	default:
		err = lock.WithJobLock(ctx, dbManager.Destination, jobName, run)
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("job '%s' is already running on another instance (use --force to override)", jobName)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load of job %s failed: %w", jobName, err)
	}
	return result, nil
}

func printResult(cmd *cobra.Command, result *pipeline.RunResult) {
	cmd.Printf("\n=== Load Complete ===\n")
	cmd.Printf("Job: %s\n", result.JobName)
	cmd.Printf("Run ID: %s\n", result.RunID)
	cmd.Printf("Source: %s\n", result.Source)
	cmd.Printf("Duration: %s\n", result.Duration)
	cmd.Printf("Records Fetched: %d (%d page(s))\n", result.Fetch.Records, result.Fetch.Pages)
	if result.Empty {
		cmd.Printf("Table %s left untouched: source returned no records\n", result.Table)
		return
	}
	cmd.Printf("Schema: %s\n", result.Schema)
	cmd.Printf("Table: %s\n", result.Table)
	cmd.Printf("Rows Written: %d\n", result.Write.RowsWritten)
	if result.Write.RowsCoerced > 0 {
		cmd.Printf("Rows Coerced: %d\n", result.Write.RowsCoerced)
	}
	if result.Verification != nil {
		cmd.Printf("Verification: %s (match=%v)\n", result.Verification.Method, result.Verification.Match)
	}
	cmd.Printf("Success: %v\n", result.Success)
}
