package schema

import (
	"fmt"
)

// DefaultRecursionLimit is the nesting level beyond which inference fails
// with ErrRecursionLimitExceeded when Options.RecursionLimit is zero.
const DefaultRecursionLimit = 64

// Propagation selects how options are threaded through nested values.
type Propagation string

const (
	// PropagationLegacy threads max_level and stringify_fields into nested
	// mappings only. skip_fields applies to the top-level mapping, and arrays
	// (including mappings inside arrays) are inferred with no options at all.
	PropagationLegacy Propagation = "legacy"
	// PropagationUniform threads every option into every nested mapping and
	// array. An array element at or beyond max_level becomes a String leaf.
	PropagationUniform Propagation = "uniform"
)

// ParsePropagation parses a propagation mode; the empty string is legacy.
func ParsePropagation(s string) (Propagation, error) {
	switch Propagation(s) {
	case "", PropagationLegacy:
		return PropagationLegacy, nil
	case PropagationUniform:
		return PropagationUniform, nil
	default:
		return "", fmt.Errorf("%w: unknown propagation %q (want %q or %q)",
			ErrInvalidConfiguration, s, PropagationLegacy, PropagationUniform)
	}
}

// Options controls schema inference. The zero value infers everything with
// unlimited depth and legacy propagation.
type Options struct {
	// MaxLevel is the 1-indexed nesting level at or beyond which fields are
	// forced to String. Zero means unlimited.
	MaxLevel int
	// StringifyFields are field names (matched by name at any level) forced to String.
	StringifyFields []string
	// SkipFields are field names omitted from the schema.
	SkipFields []string
	// Propagation defaults to PropagationLegacy.
	Propagation Propagation
	// RecursionLimit defaults to DefaultRecursionLimit.
	RecursionLimit int
}

func (o Options) recursionLimit() int {
	if o.RecursionLimit == 0 {
		return DefaultRecursionLimit
	}
	return o.RecursionLimit
}

// Validate checks the options for inference starting at level.
func (o Options) Validate(level int) error {
	if level <= 0 {
		return newError(ErrInvalidConfiguration, "", "level must be greater than zero (got %d)", level)
	}
	if o.MaxLevel < 0 {
		return newError(ErrInvalidConfiguration, "", "max_level must not be negative (got %d)", o.MaxLevel)
	}
	if o.MaxLevel > 0 && o.MaxLevel < level {
		return newError(ErrInvalidConfiguration, "",
			"max_level must be greater than or equal to level (max_level %d, level %d)", o.MaxLevel, level)
	}
	if o.RecursionLimit < 0 {
		return newError(ErrInvalidConfiguration, "", "recursion limit must not be negative (got %d)", o.RecursionLimit)
	}
	if _, err := ParsePropagation(string(o.Propagation)); err != nil {
		return newError(ErrInvalidConfiguration, "", "unknown propagation %q", o.Propagation)
	}
	return nil
}
