// Package export writes ledger snapshots, missing lists, and TCG buy lists.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

// Format represents the export format.
type Format string

const (
	// FormatCSV writes a slice of structs as CSV with a header row.
	FormatCSV Format = "csv"
	// FormatJSON writes any value as JSON.
	FormatJSON Format = "json"
	// FormatTCG writes missing-list rows as a plain-text buy list.
	FormatTCG Format = "tcg"
)

// ParseFormat maps a name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON, FormatTCG:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// Options holds configuration for export operations.
type Options struct {
	Format     Format
	FilePath   string
	PrettyJSON bool
	Overwrite  bool
}

// Exporter writes data to a file in the configured format.
type Exporter struct {
	opts Options
}

// NewExporter creates a new Exporter with the given options.
func NewExporter(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export writes data to the configured file. The file is written to a
// temporary sibling first and renamed into place, so readers never see a
// partial export.
func (e *Exporter) Export(data any) (err error) {
	if !e.opts.Overwrite {
		if _, statErr := os.Stat(e.opts.FilePath); statErr == nil {
			return fmt.Errorf("file already exists: %s (use overwrite option to replace)", e.opts.FilePath)
		}
	}

	dir := filepath.Dir(e.opts.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(e.opts.FilePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Write(tmp, e.opts.Format, data, e.opts.PrettyJSON); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.opts.FilePath); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}

// Write renders data to w. FormatTCG accepts a ledger.MissingReport or a
// slice of them; FormatCSV accepts a slice of structs, or a MissingReport
// whose rows are written.
func Write(w io.Writer, format Format, data any, prettyJSON bool) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		if prettyJSON {
			encoder.SetIndent("", "  ")
		}
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return nil
	case FormatCSV:
		if rep, ok := data.(ledger.MissingReport); ok {
			data = rep.Rows
		}
		return writeCSV(w, data)
	case FormatTCG:
		switch v := data.(type) {
		case ledger.MissingReport:
			return WriteTCGList(w, v)
		case []ledger.MissingReport:
			return WriteTCGList(w, v...)
		}
		return fmt.Errorf("TCG export requires a missing list, got %T", data)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteTCGList writes one line per missing row:
//
//	{needed} {name}[ - {subtitle}] [{setKey}]
func WriteTCGList(w io.Writer, reports ...ledger.MissingReport) error {
	bw := bufio.NewWriter(w)
	for _, rep := range reports {
		for _, row := range rep.Rows {
			if _, err := fmt.Fprintln(bw, TCGLine(rep.SetKey, row)); err != nil {
				return fmt.Errorf("failed to write TCG list: %w", err)
			}
		}
	}
	return bw.Flush()
}

// TCGLine formats one missing row for a TCG buy list.
func TCGLine(setKey string, row ledger.MissingRow) string {
	return fmt.Sprintf("%d %s [%s]", row.Needed, row.DisplayName(), setKey)
}

// writeCSV writes a slice of structs (or pointers to structs) as CSV.
// Column names come from `csv` tags, falling back to field names;
// fields tagged `csv:"-"` are skipped.
func writeCSV(w io.Writer, data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return fmt.Errorf("CSV export requires a slice, got %s", v.Kind())
	}

	elemType := v.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("CSV export requires a slice of structs")
	}

	writer := csv.NewWriter(w)
	fields, header := csvColumns(elemType)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := 0; i < v.Len(); i++ {
		elem := reflect.Indirect(v.Index(i))
		if !elem.IsValid() {
			continue
		}
		row := make([]string, len(fields))
		for j, idx := range fields {
			row[j] = csvValue(elem.Field(idx))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvColumns(t reflect.Type) (fields []int, header []string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("csv")
		if !field.IsExported() || tag == "-" {
			continue
		}
		name := tag
		if name == "" {
			name = field.Name
		}
		fields = append(fields, i)
		header = append(header, name)
	}
	return fields, header
}

func csvValue(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', 2, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339)
		}
	}
	return fmt.Sprintf("%v", v.Interface())
}

// SaveSnapshot writes a ledger snapshot as indented JSON.
func SaveSnapshot(path string, snap ledger.Snapshot, overwrite bool) error {
	return NewExporter(Options{
		Format:     FormatJSON,
		FilePath:   path,
		PrettyJSON: true,
		Overwrite:  overwrite,
	}).Export(snap)
}

// GenerateFilename generates a default filename based on the export type and format.
func GenerateFilename(exportType string, format Format, now time.Time) string {
	ext := string(format)
	if format == FormatTCG {
		ext = "txt"
	}
	return fmt.Sprintf("%s_%s.%s", exportType, now.Format("20060102_150405"), ext)
}
