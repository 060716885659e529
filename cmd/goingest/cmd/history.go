package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/history"
)

var (
	historyJob   string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent job runs recorded on the destination",
	Long: `History prints the most recent runs from the run history table,
newest first: when each run started, how long it took, how many rows it
wrote and why it failed.

Examples:
  goingest history --config goingest.yaml
  goingest history --job contacts --limit 5`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyJob, "job", "j", "",
		"Only show runs of this job")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20,
		"Maximum number of runs to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("run history is disabled in %s", GetConfigFile())
	}
	if historyJob != "" {
		if _, err := cfg.GetJob(historyJob); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to destination: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	recorder, err := history.NewRecorder(dbManager.Destination, dbManager.Driver, cfg.History.Table, nil)
	if err != nil {
		return err
	}
	if err := recorder.InitializeTable(ctx); err != nil {
		return err
	}

	runs, err := recorder.Recent(ctx, historyJob, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded")
		return nil
	}

	rows := [][]string{{"STARTED", "JOB", "STATUS", "DURATION", "RECORDS", "ROWS", "ERROR"}}
	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.JobName,
			string(run.Status),
			duration,
			strconv.FormatInt(run.Records, 10),
			strconv.FormatInt(run.RowsWritten, 10),
			run.ErrorMessage,
		})
	}

	for _, line := range alignColumns(rows) {
		cmd.Println(line)
	}
	return nil
}
