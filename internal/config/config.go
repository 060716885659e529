// Package config provides configuration structures and loading for GoIngest.
package config

// Config represents the complete application configuration.
type Config struct {
	Source       SourceConfig         `yaml:"source" mapstructure:"source"`
	Destination  DatabaseConfig       `yaml:"destination" mapstructure:"destination"`
	Jobs         map[string]JobConfig `yaml:"jobs" mapstructure:"jobs"`
	Inference    InferenceConfig      `yaml:"inference" mapstructure:"inference"`
	Processing   ProcessingConfig     `yaml:"processing" mapstructure:"processing"`
	Verification VerificationConfig   `yaml:"verification" mapstructure:"verification"`
	History      HistoryConfig        `yaml:"history" mapstructure:"history"`
	Logging      LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig describes where records are fetched from.
type SourceConfig struct {
	Type           string `yaml:"type" mapstructure:"type"` // odata or file
	URL            string `yaml:"url" mapstructure:"url"`
	Token          string `yaml:"token" mapstructure:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	PageSize       int    `yaml:"page_size" mapstructure:"page_size"` // sent as Prefer: odata.maxpagesize
	MaxPages       int    `yaml:"max_pages" mapstructure:"max_pages"` // 0 means unlimited
	RecordsField   string `yaml:"records_field" mapstructure:"records_field"`
	NextLinkField  string `yaml:"next_link_field" mapstructure:"next_link_field"`
}

// DatabaseConfig represents the destination database connection.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mysql, postgres, sqlite
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"` // 0 selects the driver default
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
	Path               string `yaml:"path" mapstructure:"path"` // sqlite file, or :memory:
}

// JobConfig represents one ingest job: a source entity loaded into a table.
type JobConfig struct {
	Entity       string              `yaml:"entity" mapstructure:"entity"` // OData entity set
	Path         string              `yaml:"path" mapstructure:"path"`     // file source path
	Table        string              `yaml:"table" mapstructure:"table"`
	Schedule     string              `yaml:"schedule" mapstructure:"schedule"` // standard 5-field cron expression
	Inference    *JobInferenceConfig `yaml:"inference,omitempty" mapstructure:"inference"`
	Processing   *ProcessingConfig   `yaml:"processing,omitempty" mapstructure:"processing"`
	Verification *VerificationConfig `yaml:"verification,omitempty" mapstructure:"verification"`
}

// InferenceConfig controls schema inference.
type InferenceConfig struct {
	MaxLevel        int      `yaml:"max_level" mapstructure:"max_level"` // 0 means unlimited
	StringifyFields []string `yaml:"stringify_fields" mapstructure:"stringify_fields"`
	SkipFields      []string `yaml:"skip_fields" mapstructure:"skip_fields"`
	SampleSize      int      `yaml:"sample_size" mapstructure:"sample_size"`
	Propagation     string   `yaml:"propagation" mapstructure:"propagation"` // legacy or uniform
}

// JobInferenceConfig overrides InferenceConfig for one job. A nil MaxLevel
// keeps the global limit; an explicit 0 makes the job unlimited.
type JobInferenceConfig struct {
	MaxLevel        *int     `yaml:"max_level,omitempty" mapstructure:"max_level"`
	StringifyFields []string `yaml:"stringify_fields" mapstructure:"stringify_fields"`
	SkipFields      []string `yaml:"skip_fields" mapstructure:"skip_fields"`
	SampleSize      int      `yaml:"sample_size" mapstructure:"sample_size"`
	Propagation     string   `yaml:"propagation" mapstructure:"propagation"`
}

// ProcessingConfig represents write settings.
type ProcessingConfig struct {
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
	OnMismatch string `yaml:"on_mismatch" mapstructure:"on_mismatch"` // fail or null
}

// VerificationConfig represents post-load verification settings.
type VerificationConfig struct {
	Method           string `yaml:"method" mapstructure:"method"` // "count" or "skip"
	SkipVerification bool   `yaml:"skip_verification" mapstructure:"skip_verification"`
}

// HistoryConfig controls the run history table kept on the destination.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Table   string `yaml:"table" mapstructure:"table"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:           "odata",
			TimeoutSeconds: 60,
			RecordsField:   "value",
			NextLinkField:  "@odata.nextLink",
		},
		Destination: DatabaseConfig{
			Driver:             "mysql",
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Inference: InferenceConfig{
			SampleSize:  1,
			Propagation: "legacy",
		},
		Processing: ProcessingConfig{
			BatchSize:  1000,
			OnMismatch: "fail",
		},
		Verification: VerificationConfig{
			Method:           "count",
			SkipVerification: false,
		},
		History: HistoryConfig{
			Enabled: true,
			Table:   "goingest_runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// GetJobInference returns the inference config for a job by name, falling back to global if not set.
func (c *Config) GetJobInference(jobName string) InferenceConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Inference
	}
	return job.GetJobInference(c.Inference)
}

// GetJobProcessing returns the processing config for a job by name, falling back to global if not set.
func (c *Config) GetJobProcessing(jobName string) ProcessingConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Processing
	}
	return job.GetJobProcessing(c.Processing)
}

// GetJobVerification returns the verification config for a job by name, falling back to global if not set.
func (c *Config) GetJobVerification(jobName string) VerificationConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Verification
	}
	return job.GetJobVerification(c.Verification)
}

// GetJobInference merges the job's inference settings over global.
// Field lists replace the global lists when set.
func (jc *JobConfig) GetJobInference(global InferenceConfig) InferenceConfig {
	if jc.Inference == nil {
		return global
	}

	result := global
	if jc.Inference.MaxLevel != nil {
		result.MaxLevel = *jc.Inference.MaxLevel
	}
	if jc.Inference.StringifyFields != nil {
		result.StringifyFields = jc.Inference.StringifyFields
	}
	if jc.Inference.SkipFields != nil {
		result.SkipFields = jc.Inference.SkipFields
	}
	if jc.Inference.SampleSize > 0 {
		result.SampleSize = jc.Inference.SampleSize
	}
	if jc.Inference.Propagation != "" {
		result.Propagation = jc.Inference.Propagation
	}
	return result
}

// GetJobProcessing returns the processing config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobProcessing(global ProcessingConfig) ProcessingConfig {
	if jc.Processing == nil {
		return global
	}

	result := global
	if jc.Processing.BatchSize > 0 {
		result.BatchSize = jc.Processing.BatchSize
	}
	if jc.Processing.OnMismatch != "" {
		result.OnMismatch = jc.Processing.OnMismatch
	}
	return result
}

// GetJobVerification returns the verification config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobVerification(global VerificationConfig) VerificationConfig {
	if jc.Verification == nil {
		return global
	}

	result := global
	if jc.Verification.Method != "" {
		result.Method = jc.Verification.Method
	}
	result.SkipVerification = jc.Verification.SkipVerification || global.SkipVerification
	return result
}

// Skip reports whether verification is disabled.
func (v VerificationConfig) Skip() bool {
	return v.SkipVerification || v.Method == "skip"
}
