// Package sqlutil provides identifier quoting and validation for the
// destination SQL dialects.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// embedded backtick.
// Example: "my_table" -> "`my_table`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteANSIIdentifier quotes an identifier with double quotes as PostgreSQL
// and SQLite expect, doubling any embedded double quote.
// Example: `odata.etag` -> `"odata.etag"`
func QuoteANSIIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteFor quotes name for the given database/sql driver name.
// Unknown drivers get ANSI quoting.
func QuoteFor(driver, name string) string {
	if driver == "mysql" {
		return QuoteIdentifier(name)
	}
	return QuoteANSIIdentifier(name)
}

// validIdentifierRegex restricts table names to alphanumerics and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// MaxIdentifierLength is the shortest identifier limit of the supported
// dialects (PostgreSQL truncates at 63 bytes).
const MaxIdentifierLength = 63

// IsValidIdentifier checks that a table name only contains alphanumeric
// characters and underscores and fits every supported dialect.
// Column names come from record keys and are quoted instead.
func IsValidIdentifier(name string) bool {
	return len(name) <= MaxIdentifierLength && validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe validates name and quotes it for driver.
func QuoteIdentifierSafe(driver, name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteFor(driver, name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores, at most 63 bytes)"
}
