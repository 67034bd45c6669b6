// Package ingest feeds CSV inputs through the normalization pipeline: the
// streaming row parser shared by both execution modes, and the archive
// driver used by the offline batch preparation.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
)

// Limits are the ingestion ceilings. Inputs exceeding any of them are
// rejected whole rather than partially processed.
type Limits struct {
	MaxBytes   int64
	MaxRows    int
	MaxColumns int
}

// DefaultLimits returns the standard ingestion ceilings: 10 MB, 50,000 rows,
// 20 columns.
func DefaultLimits() Limits {
	return Limits{MaxBytes: 10 << 20, MaxRows: 50_000, MaxColumns: 20}
}

// ParseStats reports what happened to every row of one input. Callers must
// surface dropped counts; a partial parse is never silent success.
type ParseStats struct {
	Rows             int `json:"rows"`
	Valid            int `json:"valid"`
	SchemaErrors     int `json:"schema_errors"`
	ValidationErrors int `json:"validation_errors"`
}

// Dropped returns the total rows skipped.
func (s ParseStats) Dropped() int { return s.SchemaErrors + s.ValidationErrors }

func (s *ParseStats) add(o ParseStats) {
	s.Rows += o.Rows
	s.Valid += o.Valid
	s.SchemaErrors += o.SchemaErrors
	s.ValidationErrors += o.ValidationErrors
}

// ParseCSV streams one CSV input through normalize-sanitize-validate,
// invoking emit for every valid record. Row-level failures are logged,
// counted, and skipped; limit breaches abort the whole input with a
// *domain.LimitError. The first row must be the header row.
func ParseCSV(ctx context.Context, r io.Reader, limits Limits, logger *slog.Logger, emit func(domain.Record)) (ParseStats, error) {
	var stats ParseStats

	blr := &byteLimitReader{r: r, max: limits.MaxBytes}
	cr := csv.NewReader(blr)
	cr.FieldsPerRecord = -1 // field-count mismatches become SchemaErrors below
	cr.TrimLeadingSpace = true

	headers, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return stats, domain.ErrEmptyResult
		}
		return stats, err
	}
	if len(headers) > limits.MaxColumns {
		return stats, &domain.LimitError{Limit: "columns", Max: int64(limits.MaxColumns), Got: int64(len(headers))}
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// Malformed quoting or similar; treat like a schema mismatch.
				stats.Rows++
				stats.SchemaErrors++
				logger.Warn("row skipped", "row", stats.Rows, "error", err)
				continue
			}
			// Reader-level failures (limit breach, I/O) abort the input.
			var limitErr *domain.LimitError
			if errors.As(err, &limitErr) {
				return stats, limitErr
			}
			return stats, err
		}

		stats.Rows++
		if stats.Rows > limits.MaxRows {
			return stats, &domain.LimitError{Limit: "rows", Max: int64(limits.MaxRows), Got: int64(stats.Rows)}
		}

		rec, err := domain.NormalizeRow(headers, row, stats.Rows)
		if err != nil {
			stats.SchemaErrors++
			logger.Warn("row skipped", "row", stats.Rows, "error", err)
			continue
		}
		if err := domain.Validate(rec); err != nil {
			stats.ValidationErrors++
			logger.Warn("row skipped", "row", stats.Rows, "error", err)
			continue
		}

		emit(rec)
		stats.Valid++
	}
}

// byteLimitReader fails the read that crosses the byte ceiling.
type byteLimitReader struct {
	r    io.Reader
	read int64
	max  int64
}

func (b *byteLimitReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.max {
		return n, &domain.LimitError{Limit: "bytes", Max: b.max, Got: b.read}
	}
	return n, err
}
