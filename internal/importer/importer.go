// Package importer turns third-party inventory files into per-set counts
// the ledger can apply.
//
// Recognized inputs, checked in order:
//
//	snapshot  JSON export produced by this tool ({"version":1,"sets":{...}})
//	format A  CSV with Set, CardNumber, Count columns
//	format B  CSV with Set, Base card id, Normal and further variant columns;
//	          the quantity is the sum of every column from Normal onward
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

// ErrUnrecognizedFormat is returned when a file matches no known format.
var ErrUnrecognizedFormat = errors.New("unrecognized import format")

// Format identifies which adapter parsed a file.
type Format string

const (
	FormatSnapshot Format = "snapshot"
	FormatA        Format = "setCardCount"
	FormatB        Format = "baseCardVariants"
)

// Result is the normalized output of a parse.
type Result struct {
	Format Format
	Data   map[string]ledger.Counts
	// Rows is the number of data rows read; Skipped counts rows that were
	// ignored because a required cell was blank or not a number.
	Rows    int
	Skipped int
}

// Cards returns the total quantity across all sets.
func (r *Result) Cards() int {
	total := 0
	for _, c := range r.Data {
		total += c.Total()
	}
	return total
}

// Parse detects the format of data and parses it. It never returns partial
// results: on error the Result is nil.
func Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnrecognizedFormat)
	}

	if trimmed[0] == '{' {
		return parseSnapshot(trimmed)
	}
	return parseCSV(trimmed)
}

// ParseReader reads r fully and parses it.
func ParseReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	return Parse(data)
}

func parseSnapshot(data []byte) (*Result, error) {
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrUnrecognizedFormat, err)
	}
	if snap.Version != ledger.SnapshotVersion || snap.Sets == nil {
		return nil, fmt.Errorf("%w: not a version %d snapshot", ErrUnrecognizedFormat, ledger.SnapshotVersion)
	}

	counts, err := snap.Imported()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	res := &Result{Format: FormatSnapshot, Data: make(map[string]ledger.Counts, len(counts))}
	for setKey, c := range counts {
		res.Rows += len(c)
		res.add(setKey, c)
	}
	return res, nil
}

func (r *Result) add(setKey string, c ledger.Counts) {
	key := normalizeSetKey(setKey)
	dst, ok := r.Data[key]
	if !ok {
		dst = ledger.Counts{}
		r.Data[key] = dst
	}
	for n, q := range c {
		if q > 0 {
			dst[n] += q
		}
	}
}

func parseCSV(data []byte) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	cols := indexColumns(header)
	var rowFn func([]string) (string, int, int, bool)
	var format Format

	switch {
	case cols.has("set", "cardnumber", "count"):
		format = FormatA
		set, num, count := cols["set"], cols["cardnumber"], cols["count"]
		rowFn = func(rec []string) (string, int, int, bool) {
			n, ok := parseCardNumber(cell(rec, num))
			if !ok {
				return "", 0, 0, false
			}
			q, ok := parseCount(cell(rec, count))
			return cell(rec, set), n, q, ok
		}
	case cols.has("set", "basecardid", "normal"):
		format = FormatB
		set, id, normal := cols["set"], cols["basecardid"], cols["normal"]
		rowFn = func(rec []string) (string, int, int, bool) {
			n, ok := parseCardNumber(cell(rec, id))
			if !ok {
				return "", 0, 0, false
			}
			total := 0
			for i := normal; i < len(rec); i++ {
				if q, ok := parseCount(rec[i]); ok {
					total += q
				}
			}
			return cell(rec, set), n, total, true
		}
	default:
		return nil, fmt.Errorf("%w: expected columns Set, CardNumber, Count or Set, Base card id, Normal", ErrUnrecognizedFormat)
	}

	res := &Result{Format: format, Data: make(map[string]ledger.Counts)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", res.Rows+2, err)
		}
		if blank(rec) {
			continue
		}
		res.Rows++

		setKey, n, q, ok := rowFn(rec)
		if !ok || strings.TrimSpace(setKey) == "" {
			res.Skipped++
			continue
		}
		if q <= 0 {
			continue
		}
		res.add(setKey, ledger.Counts{n: q})
	}
	return res, nil
}

type columns map[string]int

// indexColumns maps folded header names to their first index.
func indexColumns(header []string) columns {
	out := make(columns, len(header))
	for i, h := range header {
		k := foldHeader(h)
		if _, dup := out[k]; !dup {
			out[k] = i
		}
	}
	return out
}

func (c columns) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return false
		}
	}
	return true
}

// foldHeader lowercases a header and drops whitespace, so "Base Card ID"
// and "base card id" compare equal.
func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCardNumber accepts "47", "047", and prefixed ids like "SOR_047" or "SOR-047".
func parseCardNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, "_- "); i >= 0 {
		s = s[i+1:]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return int(f), true
	}
	return 0, false
}

func normalizeSetKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
