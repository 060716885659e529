package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/pipeline"
	"github.com/dbsmedya/goingest/internal/schema"
	"github.com/dbsmedya/goingest/internal/source"
)

var (
	inferSample      string
	inferJob         string
	inferSamples     int
	inferMaxLevel    int
	inferStringify   []string
	inferSkip        []string
	inferPropagation string
	inferFormat      string
	inferColor       bool
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer and print the schema of a sample or a job's records",
	Long: `Infer builds a Spark-style schema from sample records and prints it.

With --sample the records come from a local JSON file: an array, an NDJSON
stream (.ndjson, .jsonl) or a single object. With --job they are fetched
through the job's configured source and the job's inference settings apply.
Flags given explicitly override the configured settings.

The schema is written to stdout; logs go to stderr.

Examples:
  goingest infer --sample contact.json --max-level 2 --stringify notes
  goingest infer --job contacts --samples 50 --format ddl`,
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().StringVar(&inferSample, "sample", "",
		"Local JSON file to infer from")
	inferCmd.Flags().StringVarP(&inferJob, "job", "j", "",
		"Job name from configuration file")
	inferCmd.MarkFlagsMutuallyExclusive("sample", "job")
	inferCmd.MarkFlagsOneRequired("sample", "job")

	inferCmd.Flags().IntVar(&inferSamples, "samples", 0,
		"Number of leading records to infer from (default: configured sample_size, or 1)")
	inferCmd.Flags().IntVar(&inferMaxLevel, "max-level", 0,
		"Nesting level at which fields become strings (0 = unlimited)")
	inferCmd.Flags().StringSliceVar(&inferStringify, "stringify", nil,
		"Field names forced to string")
	inferCmd.Flags().StringSliceVar(&inferSkip, "skip", nil,
		"Field names left out of the schema")
	inferCmd.Flags().StringVar(&inferPropagation, "propagation", "",
		"Option propagation into nested values (legacy, uniform)")
	inferCmd.Flags().StringVarP(&inferFormat, "format", "f", "tree",
		"Output format (ddl, json, pyspark, tree)")
	inferCmd.Flags().BoolVar(&inferColor, "color", false,
		"Colour type names in tree output")

	rootCmd.AddCommand(inferCmd)
}

func runInfer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var s *schema.StructNode
	var err error
	if inferJob != "" {
		s, err = inferFromJob(ctx, cmd)
	} else {
		s, err = inferFromSample(ctx, cmd)
	}
	if err != nil {
		return err
	}

	out, err := schema.Render(inferFormat, s, schema.RenderOptions{Color: inferColor})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func inferFromSample(ctx context.Context, cmd *cobra.Command) (*schema.StructNode, error) {
	inf := applyInferFlags(cmd, config.InferenceConfig{SampleSize: 1})
	opts, err := pipeline.InferenceOptions(inf)
	if err != nil {
		return nil, err
	}

	records, _, err := source.NewFileSource(inferSample, "").Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", inferSample, pipeline.ErrNoRecords)
	}

	return schema.Suggest(pipeline.Sample(records, inf.SampleSize), opts)
}

func inferFromJob(ctx context.Context, cmd *cobra.Command) (*schema.StructNode, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	job, err := cfg.GetJob(inferJob)
	if err != nil {
		return nil, err
	}

	// stdout carries the schema
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	orch, err := pipeline.NewOrchestrator(cfg, inferJob, job, nil, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	orch.SetInference(applyInferFlags(cmd, cfg.GetJobInference(inferJob)))

	result, err := orch.InferOnly(ctx)
	if err != nil {
		return nil, err
	}
	return result.Schema, nil
}

// applyInferFlags overlays the flags the user set on base.
func applyInferFlags(cmd *cobra.Command, base config.InferenceConfig) config.InferenceConfig {
	flags := cmd.Flags()
	if flags.Changed("samples") {
		base.SampleSize = inferSamples
	}
	if flags.Changed("max-level") {
		base.MaxLevel = inferMaxLevel
	}
	if flags.Changed("stringify") {
		base.StringifyFields = inferStringify
	}
	if flags.Changed("skip") {
		base.SkipFields = inferSkip
	}
	if flags.Changed("propagation") {
		base.Propagation = inferPropagation
	}
	return base
}
