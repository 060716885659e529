package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/scheduler"
)

var scheduleRunNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run every job that has a cron schedule",
	Long: `Schedule loads each job with a non-empty schedule on its standard
5-field cron expression until SIGINT or SIGTERM. A run that is still going
when the next tick fires causes that tick to be skipped.

Example:
  goingest schedule --config goingest.yaml --run-now`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false,
		"Run every scheduled job once at startup")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	jobs := cfg.ScheduledJobs()
	if len(jobs) == 0 {
		return fmt.Errorf("no job in %s has a schedule", GetConfigFile())
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnw("Received shutdown signal - waiting for running jobs", "signal", sig.String())
	})

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to destination: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	sched := scheduler.New(log)
	for _, name := range jobs {
		jobName := name
		job, _ := cfg.GetJob(jobName)
		err := sched.Add(jobName, job.Schedule, func() {
			jobLog := log.WithJob(jobName)
			result, err := executeJob(ctx, cfg, jobName, dbManager, log, false)
			if err != nil {
				jobLog.Errorw("Scheduled load failed", "error", err)
				return
			}
			jobLog.Infow("Scheduled load succeeded",
				"run_id", result.RunID,
				"records", result.Fetch.Records,
				"empty", result.Empty,
			)
		})
		if err != nil {
			return err
		}
	}

	sched.Start()
	log.Infow("Scheduler started", "jobs", sched.Jobs())
	for _, jobName := range sched.Jobs() {
		next, _ := sched.Next(jobName)
		cmd.Printf("%s: next run %s\n", jobName, next.Format("2006-01-02 15:04:05 MST"))
	}

	if scheduleRunNow {
		for _, jobName := range sched.Jobs() {
			if err := sched.RunNow(jobName); err != nil {
				return err
			}
		}
	}

	<-ctx.Done()
	log.Info("Stopping scheduler")
	<-sched.Stop().Done()
	log.Info("Scheduler stopped")
	return nil
}
