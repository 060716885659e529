// Package sink writes conformed records into a destination SQL table.
package sink

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dbsmedya/goingest/internal/schema"
	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// Dialect holds the SQL differences between the supported destinations.
type Dialect struct {
	// Driver is the database/sql driver name: mysql, postgres or sqlite.
	Driver string
	// MaxParams is the bind parameter limit of a single statement.
	MaxParams int
	// MaxColumnLength limits column names, in characters for MySQL and in
	// bytes for PostgreSQL. Zero means no limit.
	MaxColumnLength int

	numbered    bool
	lengthBytes bool
	fold        func(string) string
	types       map[schema.Kind]string
}

// ErrInvalidColumn is returned when a record key cannot be used as a column
// name on the destination.
var ErrInvalidColumn = errors.New("invalid column name")

var dialects = map[string]Dialect{
	"mysql": {
		Driver:          "mysql",
		MaxParams:       65535,
		MaxColumnLength: 64,
		fold:            strings.ToLower,
		types: map[schema.Kind]string{
			schema.KindBoolean: "BOOLEAN",
			schema.KindInteger: "BIGINT",
			schema.KindFloat:   "DOUBLE",
			schema.KindString:  "TEXT",
			schema.KindStruct:  "JSON",
			schema.KindArray:   "JSON",
		},
	},
	"postgres": {
		Driver:          "postgres",
		MaxParams:       65535,
		MaxColumnLength: 63,
		numbered:        true,
		lengthBytes:     true,
		types: map[schema.Kind]string{
			schema.KindBoolean: "BOOLEAN",
			schema.KindInteger: "BIGINT",
			schema.KindFloat:   "DOUBLE PRECISION",
			schema.KindString:  "TEXT",
			schema.KindStruct:  "JSONB",
			schema.KindArray:   "JSONB",
		},
	},
	"sqlite": {
		Driver:    "sqlite",
		MaxParams: 32766,
		fold:      asciiLower,
		types: map[schema.Kind]string{
			schema.KindBoolean: "INTEGER",
			schema.KindInteger: "INTEGER",
			schema.KindFloat:   "REAL",
			schema.KindString:  "TEXT",
			schema.KindStruct:  "TEXT",
			schema.KindArray:   "TEXT",
		},
	},
}

// DialectFor returns the dialect of a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported destination driver: %s", driver)
	}
	return d, nil
}

// Drivers lists the supported destination drivers, sorted.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Quote quotes an identifier.
func (d Dialect) Quote(name string) string {
	return sqlutil.QuoteFor(d.Driver, name)
}

// CheckColumns rejects names the destination cannot hold as distinct columns:
// empty names, names over MaxColumnLength and names that only differ by case
// where the destination ignores case.
func (d Dialect) CheckColumns(names []string) error {
	seen := make(map[string]string, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty column name", ErrInvalidColumn)
		}
		if d.MaxColumnLength > 0 {
			n := utf8.RuneCountInString(name)
			if d.lengthBytes {
				n = len(name)
			}
			if n > d.MaxColumnLength {
				return fmt.Errorf("%w: field %q is longer than %d on %s", ErrInvalidColumn, name, d.MaxColumnLength, d.Driver)
			}
		}
		key := name
		if d.fold != nil {
			key = d.fold(name)
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: field %q collides with %q on %s", ErrInvalidColumn, name, prev, d.Driver)
		}
		seen[key] = name
	}
	return nil
}

// asciiLower folds ASCII letters only, as SQLite compares identifiers.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// ColumnType maps a schema node to a column type. Forced string nodes are TEXT.
func (d Dialect) ColumnType(n schema.Node) string {
	return d.types[n.Kind()]
}

// DropTable builds DROP TABLE IF EXISTS for an already quoted table.
func (d Dialect) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + table
}

// CreateTable builds CREATE TABLE with one nullable column per top-level field.
func (d Dialect) CreateTable(table string, s *schema.StructNode) string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = d.Quote(f.Name) + " " + d.ColumnType(f.Type)
	}
	return "CREATE TABLE " + table + " (" + strings.Join(cols, ", ") + ")"
}

// Insert builds one multi-row INSERT for the given number of rows and columns.
func (d Dialect) Insert(table string, columns []string, rows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.Quote(c))
	}
	sb.WriteString(") VALUES ")

	n := 0
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			n++
			sb.WriteString(d.placeholder(n))
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

func (d Dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// RowsPerStatement caps batchSize so one INSERT stays within MaxParams.
func (d Dialect) RowsPerStatement(batchSize, columns int) int {
	if columns <= 0 {
		return batchSize
	}
	limit := d.MaxParams / columns
	if limit < 1 {
		limit = 1
	}
	if batchSize <= 0 || batchSize > limit {
		return limit
	}
	return batchSize
}
