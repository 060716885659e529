package config

import (
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test source defaults
	if cfg.Source.Type != "odata" {
		t.Errorf("expected source type 'odata', got %s", cfg.Source.Type)
	}
	if cfg.Source.TimeoutSeconds != 60 {
		t.Errorf("expected timeout_seconds 60, got %d", cfg.Source.TimeoutSeconds)
	}
	if cfg.Source.RecordsField != "value" {
		t.Errorf("expected records_field 'value', got %s", cfg.Source.RecordsField)
	}
	if cfg.Source.NextLinkField != "@odata.nextLink" {
		t.Errorf("expected next_link_field '@odata.nextLink', got %s", cfg.Source.NextLinkField)
	}

	// Test destination defaults
	if cfg.Destination.Driver != "mysql" {
		t.Errorf("expected destination driver 'mysql', got %s", cfg.Destination.Driver)
	}
	if cfg.Destination.TLS != "preferred" {
		t.Errorf("expected destination TLS 'preferred', got %s", cfg.Destination.TLS)
	}
	if cfg.Destination.MaxConnections != 10 {
		t.Errorf("expected destination max_connections 10, got %d", cfg.Destination.MaxConnections)
	}

	// Test inference defaults
	if cfg.Inference.SampleSize != 1 {
		t.Errorf("expected sample_size 1, got %d", cfg.Inference.SampleSize)
	}
	if cfg.Inference.MaxLevel != 0 {
		t.Errorf("expected unlimited max_level, got %d", cfg.Inference.MaxLevel)
	}
	if cfg.Inference.Propagation != "legacy" {
		t.Errorf("expected propagation 'legacy', got %s", cfg.Inference.Propagation)
	}

	// Test processing defaults
	if cfg.Processing.BatchSize != 1000 {
		t.Errorf("expected batch_size 1000, got %d", cfg.Processing.BatchSize)
	}
	if cfg.Processing.OnMismatch != "fail" {
		t.Errorf("expected on_mismatch 'fail', got %s", cfg.Processing.OnMismatch)
	}

	// Test verification defaults
	if cfg.Verification.Method != "count" {
		t.Errorf("expected verification method 'count', got %s", cfg.Verification.Method)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format 'json', got %s", cfg.Logging.Format)
	}
}

func TestGetJobInference(t *testing.T) {
	global := InferenceConfig{
		MaxLevel:        4,
		StringifyFields: []string{"raw"},
		SampleSize:      1,
		Propagation:     "legacy",
	}

	job := JobConfig{Table: "t"}
	if got := job.GetJobInference(global); !reflect.DeepEqual(got, global) {
		t.Errorf("expected global inference without overrides, got %+v", got)
	}

	job.Inference = &JobInferenceConfig{
		SkipFields:  []string{"secret"},
		SampleSize:  25,
		Propagation: "uniform",
	}
	got := job.GetJobInference(global)
	want := InferenceConfig{
		MaxLevel:        4,
		StringifyFields: []string{"raw"},
		SkipFields:      []string{"secret"},
		SampleSize:      25,
		Propagation:     "uniform",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetJobInference = %+v, expected %+v", got, want)
	}

	// an explicitly empty list clears the global one
	job.Inference = &JobInferenceConfig{StringifyFields: []string{}}
	if got := job.GetJobInference(global); len(got.StringifyFields) != 0 {
		t.Errorf("expected stringify_fields cleared, got %v", got.StringifyFields)
	}

	// an explicit max_level of 0 lifts the global limit
	unlimited := 0
	job.Inference = &JobInferenceConfig{MaxLevel: &unlimited}
	if got := job.GetJobInference(global); got.MaxLevel != 0 {
		t.Errorf("expected unlimited max_level, got %d", got.MaxLevel)
	}

	deeper := 6
	job.Inference = &JobInferenceConfig{MaxLevel: &deeper}
	if got := job.GetJobInference(global); got.MaxLevel != 6 {
		t.Errorf("expected max_level 6, got %d", got.MaxLevel)
	}
}

func TestGetJobProcessing(t *testing.T) {
	global := ProcessingConfig{BatchSize: 1000, OnMismatch: "fail"}

	job := JobConfig{}
	if got := job.GetJobProcessing(global); got != global {
		t.Errorf("expected global processing, got %+v", got)
	}

	job.Processing = &ProcessingConfig{OnMismatch: "null"}
	got := job.GetJobProcessing(global)
	if got.BatchSize != 1000 || got.OnMismatch != "null" {
		t.Errorf("unexpected merged processing %+v", got)
	}

	job.Processing = &ProcessingConfig{BatchSize: 50}
	got = job.GetJobProcessing(global)
	if got.BatchSize != 50 || got.OnMismatch != "fail" {
		t.Errorf("unexpected merged processing %+v", got)
	}
}

func TestGetJobVerification(t *testing.T) {
	global := VerificationConfig{Method: "count"}

	job := JobConfig{Verification: &VerificationConfig{Method: "skip"}}
	got := job.GetJobVerification(global)
	if got.Method != "skip" || !got.Skip() {
		t.Errorf("expected job method skip, got %+v", got)
	}

	job.Verification = &VerificationConfig{}
	got = job.GetJobVerification(VerificationConfig{Method: "count", SkipVerification: true})
	if !got.Skip() {
		t.Error("global skip_verification should carry into the job")
	}
}

func TestConfigJobAccessors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jobs = map[string]JobConfig{
		"contacts": {
			Table:      "contacts",
			Processing: &ProcessingConfig{BatchSize: 10},
		},
	}

	if got := cfg.GetJobProcessing("contacts").BatchSize; got != 10 {
		t.Errorf("expected job batch size 10, got %d", got)
	}
	if got := cfg.GetJobProcessing("missing").BatchSize; got != 1000 {
		t.Errorf("expected global batch size for unknown job, got %d", got)
	}
	if got := cfg.GetJobInference("missing").SampleSize; got != 1 {
		t.Errorf("expected global sample size for unknown job, got %d", got)
	}
	if got := cfg.GetJobVerification("contacts").Method; got != "count" {
		t.Errorf("expected global verification method, got %s", got)
	}
}

func TestVerificationSkip(t *testing.T) {
	tests := []struct {
		cfg  VerificationConfig
		want bool
	}{
		{VerificationConfig{Method: "count"}, false},
		{VerificationConfig{Method: ""}, false},
		{VerificationConfig{Method: "skip"}, true},
		{VerificationConfig{Method: "count", SkipVerification: true}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.Skip(); got != tt.want {
			t.Errorf("%+v.Skip() = %v, expected %v", tt.cfg, got, tt.want)
		}
	}
}

func TestDefaultHistory(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.History.Enabled {
		t.Error("expected run history to be enabled by default")
	}
	if cfg.History.Table != "goingest_runs" {
		t.Errorf("expected history table 'goingest_runs', got %s", cfg.History.Table)
	}
}
