// Package export writes recommendation results as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
)

// ContentType is the MIME type of an export.
const ContentType = "text/csv; charset=utf-8"

// Header returns the export column order: the domain's display columns that
// exist in the result, then every other source column in source order.
func Header(d descriptor.Descriptor, res result.Result) []string {
	present := make(map[string]bool, len(res.Columns()))
	for _, c := range res.Columns() {
		present[c] = true
	}

	header := make([]string, 0, len(res.Columns()))
	used := make(map[string]bool, len(res.Columns()))
	for _, c := range d.DisplayColumns {
		if present[c] && !used[c] {
			header = append(header, c)
			used[c] = true
		}
	}
	for _, c := range res.Columns() {
		if !used[c] {
			header = append(header, c)
			used[c] = true
		}
	}
	return header
}

// WriteCSV writes res to w, one row per item in result order.
func WriteCSV(w io.Writer, d descriptor.Descriptor, res result.Result) error {
	cw := csv.NewWriter(w)
	header := Header(d, res)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for _, it := range res.Items() {
		for i, c := range header {
			record[i] = it.Value(c)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", it.Position(), err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Filename names an export of domain k taken at t.
func Filename(k kind.Kind, t time.Time) string {
	return string(k) + "_recommendations_" + strconv.FormatInt(t.Unix(), 10) + ".csv"
}
