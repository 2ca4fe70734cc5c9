// Package dataset loads domain catalogs from CSV files.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/logger"
)

// missingTokens are cell values treated as absent, matching common CSV exports.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-NaN": {}, "-nan": {},
	"<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// DefaultMaxBytes caps the size of a dataset read into memory.
const DefaultMaxBytes = 64 << 20

// Loader reads CSV datasets into catalogs.
type Loader struct {
	maxBytes int64
}

// NewLoader creates a Loader. maxBytes <= 0 uses DefaultMaxBytes.
func NewLoader(maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{maxBytes: maxBytes}
}

// Load reads the dataset of k from path.
func (l *Loader) Load(ctx context.Context, k kind.Kind, path string) (*catalog.Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return l.Parse(ctx, k, f)
}

// Parse reads a dataset of k from r, trying UTF-8, Windows-1252 and
// ISO-8859-1 in turn. The first encoding that decodes and parses wins.
func (l *Loader) Parse(ctx context.Context, k kind.Kind, r io.Reader) (*catalog.Catalog, error) {
	d, err := descriptor.For(k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnknownDomain, err)
	}

	raw, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if int64(len(raw)) > l.maxBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", domain.ErrDatasetInvalid, l.maxBytes)
	}

	var errs []error
	for _, c := range encodingChain {
		text, err := decodeAs(c, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		header, records, err := readCSV(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}

		cat, err := build(d, header, records)
		if err != nil {
			return nil, err
		}
		logger.FromContext(ctx).Debug("Dataset parsed",
			zap.String("domain", string(k)),
			zap.String("encoding", c.name),
			zap.Int("items", cat.Len()),
		)
		return cat, nil
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrDatasetInvalid, errors.Join(errs...))
}

// readCSV returns the header and data records. Short rows are padded, long rows rejected.
func readCSV(text string) ([]string, [][]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty file")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record: %w", err)
		}
		switch {
		case len(rec) > len(header):
			line, _ := cr.FieldPos(0)
			return nil, nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		case len(rec) < len(header):
			rec = append(rec, make([]string, len(header)-len(rec))...)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// build validates the header against d and normalizes every record into a Row.
func build(d descriptor.Descriptor, header []string, records [][]string) (*catalog.Catalog, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range d.RequiredColumns() {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s dataset missing required columns: %s",
			domain.ErrDatasetInvalid, d.Kind, strings.Join(missing, ", "))
	}

	fields := make(map[string]descriptor.Field, len(d.Fields))
	columns := append([]string(nil), header...)
	for _, f := range d.Fields {
		fields[f.Name] = f
		if _, ok := index[f.Name]; !ok && !f.Optional {
			columns = append(columns, f.Name)
		}
	}

	rows := make([]catalog.Row, len(records))
	for i, rec := range records {
		rows[i] = normalize(d, fields, index, header, rec)
	}
	return catalog.New(d.Kind, columns, rows, d.Searchable()), nil
}

func normalize(
	d descriptor.Descriptor,
	fields map[string]descriptor.Field,
	index map[string]int,
	header, rec []string,
) catalog.Row {
	row := catalog.Row{
		Text:    make(map[string]string, len(header)),
		Numbers: make(map[string]float64, len(d.Fields)),
	}

	for i, h := range header {
		if _, typed := fields[h]; !typed {
			row.Text[h] = rec[i]
		}
	}

	cell := func(name string) (string, bool) {
		i, ok := index[name]
		if !ok {
			return "", false
		}
		v := rec[i]
		if _, na := missingTokens[strings.TrimSpace(v)]; na {
			return "", false
		}
		return v, true
	}

	var fallbacks []descriptor.Field
	for _, f := range d.Fields {
		if _, ok := index[f.Name]; !ok && f.Optional {
			continue
		}
		if f.FallbackFrom != "" {
			fallbacks = append(fallbacks, f)
			continue
		}
		v, ok := cell(f.Name)
		switch f.Type {
		case descriptor.Number:
			row.Numbers[f.Name] = parseNumber(v, ok)
		case descriptor.Enrollment:
			row.Numbers[f.Name] = float64(catalog.ParseEnrollment(v))
		default:
			if !ok {
				v = f.Default
			}
			row.Text[f.Name] = v
		}
	}

	for _, f := range fallbacks {
		if v, ok := cell(f.Name); ok {
			row.Text[f.Name] = v
			continue
		}
		row.Text[f.Name] = row.Text[f.FallbackFrom]
	}
	return row
}

func parseNumber(v string, present bool) float64 {
	if !present {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
