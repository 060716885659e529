// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import "time"

// FetchStats contains statistics about a record fetch from a source.
type FetchStats struct {
	Pages    int           // Number of pages (or files) read
	Records  int           // Total records returned
	Bytes    int64         // Raw response bytes consumed
	Duration time.Duration // Time taken for the fetch
}

// Add folds one page into the running totals.
func (s *FetchStats) Add(records int, bytes int64) {
	s.Pages++
	s.Records += records
	s.Bytes += bytes
}
