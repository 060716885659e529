package lock

import (
	"strings"
	"testing"
)

func TestGenerateJobLockName_Format(t *testing.T) {
	tests := []struct {
		jobName  string
		expected string
	}{
		{"accounts", "goingest:job:accounts"},
		{"job-123", "goingest:job:job-123"},
		{"Contacts_Daily", "goingest:job:Contacts_Daily"},
	}

	for _, tt := range tests {
		t.Run(tt.jobName, func(t *testing.T) {
			result := GenerateJobLockName(tt.jobName)
			if result != tt.expected {
				t.Errorf("GenerateJobLockName(%q) = %q, expected %q", tt.jobName, result, tt.expected)
			}
		})
	}
}

func TestGenerateJobLockName_Sanitization(t *testing.T) {
	tests := []struct {
		jobName  string
		expected string
	}{
		{"job.with.dots", "goingest:job:job_with_dots"},
		{"job/with/slashes", "goingest:job:job_with_slashes"},
		{"job with spaces", "goingest:job:job_with_spaces"},
		{"job'quote'", "goingest:job:job_quote_"},
		{"job`backtick`", "goingest:job:job_backtick_"},
		{"job:colon", "goingest:job:job_colon"},
		{"!@#$%", "goingest:job:_____"},
		{"", "goingest:job:"},
	}

	for _, tt := range tests {
		t.Run(tt.jobName, func(t *testing.T) {
			result := GenerateJobLockName(tt.jobName)
			if result != tt.expected {
				t.Errorf("GenerateJobLockName(%q) = %q, expected %q", tt.jobName, result, tt.expected)
			}
		})
	}
}

func TestGenerateJobLockName_Truncated(t *testing.T) {
	result := GenerateJobLockName(strings.Repeat("a", 100))

	if len(result) != maxLockNameLength {
		t.Errorf("expected %d characters, got %d", maxLockNameLength, len(result))
	}
	if !strings.HasPrefix(result, "goingest:job:aaa") {
		t.Errorf("unexpected lock name %q", result)
	}
}

func TestNewJobLock(t *testing.T) {
	lock := NewJobLock(nil, "contacts")

	if lock.LockName() != "goingest:job:contacts" {
		t.Errorf("unexpected lock name %q", lock.LockName())
	}
	if lock.IsHeld() {
		t.Error("new lock should not be held")
	}
}
