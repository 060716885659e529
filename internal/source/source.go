// Package source fetches the records a job loads: pages from an OData
// endpoint or the contents of a local JSON file.
package source

import (
	"context"
	"fmt"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/types"
)

// Source produces the full record set of one job.
type Source interface {
	// Name identifies the source in logs, e.g. "odata:contacts".
	Name() string
	Fetch(ctx context.Context) ([]record.Mapping, *types.FetchStats, error)
}

// New builds the source configured for job.
func New(cfg config.SourceConfig, job config.JobConfig, log *logger.Logger) (Source, error) {
	if log == nil {
		log = logger.NewNop()
	}

	switch cfg.Type {
	case "odata", "":
		return NewODataSource(cfg, job.Entity, log)
	case "file":
		return NewFileSource(job.Path, cfg.RecordsField), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Type)
	}
}

// recordsFrom extracts the records of a decoded document: the array under
// field when the document is an object holding one, the elements of a
// top-level array, or the object itself.
func recordsFrom(doc any, field string) ([]record.Mapping, error) {
	switch v := doc.(type) {
	case []any:
		return record.ToRecords(v)
	case record.Mapping:
		if field != "" {
			if inner, ok := v.Get(field); ok {
				seq, ok := inner.([]any)
				if !ok {
					return nil, fmt.Errorf("field %q is %s, not an array", field, record.KindOf(inner))
				}
				return record.ToRecords(seq)
			}
		}
		return []record.Mapping{v}, nil
	default:
		return nil, fmt.Errorf("%w (got %s)", record.ErrNotMapping, record.KindOf(doc))
	}
}
