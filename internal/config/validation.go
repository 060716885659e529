package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	// Validate record source
	if err := c.validateSource(); err != nil {
		errors = append(errors, err...)
	}

	// Validate destination database
	if err := c.validateDatabase("destination", &c.Destination); err != nil {
		errors = append(errors, err...)
	}

	// Validate jobs
	if len(c.Jobs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "jobs",
			Message: "at least one job must be defined",
		})
	}
	for _, name := range c.ListJobs() {
		job := c.Jobs[name]
		if err := c.validateJob(name, &job); err != nil {
			errors = append(errors, err...)
		}
	}

	// Validate inference settings
	if err := validateInference("inference", &c.Inference); err != nil {
		errors = append(errors, err...)
	}

	// Validate processing settings
	if err := validateProcessing("processing", &c.Processing); err != nil {
		errors = append(errors, err...)
	}

	// Validate verification settings
	if err := validateVerification("verification", &c.Verification); err != nil {
		errors = append(errors, err...)
	}

	// Validate run history settings
	if err := c.validateHistory(); err != nil {
		errors = append(errors, err...)
	}

	// Validate logging settings
	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSource() ValidationErrors {
	var errors ValidationErrors

	switch c.Source.Type {
	case "odata":
		if c.Source.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "source.url",
				Message: "url is required for odata sources",
			})
		} else if u, err := url.Parse(c.Source.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "source.url",
				Message: "url must be an absolute http or https URL",
			})
		}
	case "file":
	default:
		errors = append(errors, ValidationError{
			Field:   "source.type",
			Message: "type must be 'odata' or 'file'",
		})
	}

	if c.Source.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.timeout_seconds",
			Message: "timeout_seconds cannot be negative",
		})
	}

	if c.Source.PageSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.page_size",
			Message: "page_size cannot be negative",
		})
	}

	if c.Source.MaxPages < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.max_pages",
			Message: "max_pages cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	switch db.Driver {
	case "mysql", "postgres":
	case "sqlite":
		if db.Path == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".path",
				Message: "path is required for sqlite",
			})
		}
		return errors
	default:
		errors = append(errors, ValidationError{
			Field:   prefix + ".driver",
			Message: "driver must be 'mysql', 'postgres', or 'sqlite'",
		})
		return errors
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port < 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateJob(name string, job *JobConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("jobs.%s", name)

	if job.Table == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table",
			Message: "table is required",
		})
	} else if !sqlutil.IsValidIdentifier(job.Table) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table",
			Message: fmt.Sprintf("invalid table name %q", job.Table),
		})
	}

	switch c.Source.Type {
	case "odata":
		if job.Entity == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".entity",
				Message: "entity is required for odata sources",
			})
		}
	case "file":
		if job.Path == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".path",
				Message: "path is required for file sources",
			})
		}
	}

	if job.Schedule != "" {
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			errors = append(errors, ValidationError{
				Field:   prefix + ".schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	if job.Inference != nil {
		inf := InferenceConfig{
			StringifyFields: job.Inference.StringifyFields,
			SkipFields:      job.Inference.SkipFields,
			SampleSize:      job.Inference.SampleSize,
			Propagation:     job.Inference.Propagation,
		}
		if job.Inference.MaxLevel != nil {
			inf.MaxLevel = *job.Inference.MaxLevel
		}
		errors = append(errors, validateInference(prefix+".inference", &inf)...)
	}
	if job.Processing != nil {
		errors = append(errors, validateProcessing(prefix+".processing", job.Processing)...)
	}
	if job.Verification != nil {
		errors = append(errors, validateVerification(prefix+".verification", job.Verification)...)
	}

	return errors
}

func validateInference(prefix string, inf *InferenceConfig) ValidationErrors {
	var errors ValidationErrors

	if inf.MaxLevel < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_level",
			Message: "max_level cannot be negative",
		})
	}

	if inf.SampleSize < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".sample_size",
			Message: "sample_size cannot be negative",
		})
	}

	validPropagation := map[string]bool{"legacy": true, "uniform": true, "": true}
	if !validPropagation[inf.Propagation] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".propagation",
			Message: "propagation must be 'legacy' or 'uniform'",
		})
	}

	for _, f := range inf.StringifyFields {
		for _, s := range inf.SkipFields {
			if f == s {
				errors = append(errors, ValidationError{
					Field:   prefix + ".stringify_fields",
					Message: fmt.Sprintf("field %q is listed in both stringify_fields and skip_fields", f),
				})
			}
		}
	}

	return errors
}

func validateProcessing(prefix string, p *ProcessingConfig) ValidationErrors {
	var errors ValidationErrors

	// Job-level sections are merged over globals, so zero means "inherit" there.
	if p.BatchSize < 0 || (prefix == "processing" && p.BatchSize == 0) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".batch_size",
			Message: "batch_size must be positive",
		})
	}

	validModes := map[string]bool{"fail": true, "null": true, "": true}
	if !validModes[p.OnMismatch] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".on_mismatch",
			Message: "on_mismatch must be 'fail' or 'null'",
		})
	}

	return errors
}

func validateVerification(prefix string, v *VerificationConfig) ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "skip": true, "": true}
	if !validMethods[v.Method] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".method",
			Message: "method must be 'count' or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateHistory() ValidationErrors {
	var errors ValidationErrors

	if !c.History.Enabled {
		return errors
	}

	if c.History.Table == "" || !sqlutil.IsValidIdentifier(c.History.Table) {
		errors = append(errors, ValidationError{
			Field:   "history.table",
			Message: fmt.Sprintf("invalid table name %q", c.History.Table),
		})
		return errors
	}

	for _, name := range c.ListJobs() {
		if c.Jobs[name].Table == c.History.Table {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("jobs.%s.table", name),
				Message: fmt.Sprintf("table %q is used for run history", c.History.Table),
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
