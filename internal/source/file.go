package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/types"
)

// FileSource reads records from a local JSON document: an array of objects,
// an object holding the records under RecordsField, a single object, or
// newline-delimited objects when the extension is .ndjson or .jsonl.
type FileSource struct {
	Path         string
	RecordsField string
}

// NewFileSource creates a file source.
func NewFileSource(path, recordsField string) *FileSource {
	return &FileSource{Path: path, RecordsField: recordsField}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// Fetch reads and decodes the whole file.
func (s *FileSource) Fetch(ctx context.Context) ([]record.Mapping, *types.FetchStats, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	var records []record.Mapping
	if isNDJSON(s.Path) {
		records, err = record.DecodeRecords(bytes.NewReader(data))
	} else {
		var doc any
		doc, err = record.DecodeBytes(data)
		if err == nil {
			records, err = recordsFrom(doc, s.RecordsField)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}

	stats := &types.FetchStats{}
	stats.Add(len(records), int64(len(data)))
	stats.Duration = time.Since(start)
	return records, stats, nil
}

func isNDJSON(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".jsonl":
		return true
	}
	return false
}
