package cmd

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/config"
)

var listJobsCmd = &cobra.Command{
	Use:   "list-jobs",
	Short: "List all jobs defined in configuration",
	Long: `List-jobs displays all ingest jobs defined in the configuration file
as a table of name, source, destination table and schedule.

Example:
  goingest list-jobs --config goingest.yaml`,
	RunE: runListJobs,
}

func init() {
	rootCmd.AddCommand(listJobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobNames := cfg.ListJobs()
	if len(jobNames) == 0 {
		cmd.Printf("No jobs defined in %s\n", configFile)
		return nil
	}

	rows := [][]string{{"NAME", "SOURCE", "TABLE", "SCHEDULE"}}
	for _, jobName := range jobNames {
		job, err := cfg.GetJob(jobName)
		if err != nil {
			return fmt.Errorf("failed to get job %q: %w", jobName, err)
		}
		schedule := job.Schedule
		if schedule == "" {
			schedule = "-"
		}
		rows = append(rows, []string{jobName, describeSource(cfg.Source, job), job.Table, schedule})
	}

	cmd.Printf("Jobs defined in %s:\n\n", configFile)
	for _, line := range alignColumns(rows) {
		cmd.Println(line)
	}
	cmd.Printf("\nTotal: %d job(s)\n", len(jobNames))
	return nil
}

// describeSource names where a job reads from, e.g. "odata:contacts".
func describeSource(src config.SourceConfig, job *config.JobConfig) string {
	if src.Type == "file" {
		return "file:" + job.Path
	}
	return "odata:" + job.Entity
}

// alignColumns pads cells to the display width of the widest cell per column.
func alignColumns(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		lines[r] = strings.Join(cells, "  ")
	}
	return lines
}
