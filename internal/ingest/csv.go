// Package ingest reads candidate phrases out of episode metadata CSV files
// for the import binary.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/pkg/models"
)

// Options selects which CSV columns yield candidate phrases. The column
// name doubles as the candidate's source tag.
type Options struct {
	// Columns are header names to extract, matched case-insensitively.
	// Empty defaults to ("title", "description").
	Columns []string
}

// Stats summarizes one ingestion pass.
type Stats struct {
	Rows      int // data rows read
	Extracted int // non-empty cells turned into candidates
	Skipped   int // short rows and empty cells
}

// ReadCandidates parses CSV from r and returns one candidate per selected
// non-empty cell, in file order. The first record is the header. Malformed
// rows are logged and skipped; only a broken header or an unreadable stream
// fail the pass.
func ReadCandidates(r io.Reader, opts Options) ([]models.Candidate, Stats, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		columns = []string{"title", "description"}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read CSV header: %w", err)
	}

	// Map wanted column names to their positions.
	indices := make([]int, 0, len(columns))
	sources := make([]string, 0, len(columns))
	for _, want := range columns {
		found := -1
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, Stats{}, fmt.Errorf("column %q not found in CSV header", want)
		}
		indices = append(indices, found)
		sources = append(sources, strings.ToLower(want))
	}

	var stats Stats
	var out []models.Candidate
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Skipped++
			log.Warn().Err(err).Int("row", stats.Rows+1).Msg("Skipping malformed CSV row")
			continue
		}
		stats.Rows++

		for i, idx := range indices {
			if idx >= len(record) {
				stats.Skipped++
				continue
			}
			phrase := strings.TrimSpace(record[idx])
			if phrase == "" {
				stats.Skipped++
				continue
			}
			out = append(out, models.Candidate{Phrase: phrase, Source: sources[i]})
			stats.Extracted++
		}
	}

	return out, stats, nil
}
