package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one attendance row after header normalization. Raw passthrough
// values stay in Values keyed by their original header name; the canonical
// fields are resolved once here so later stages never consult synonyms.
type Record struct {
	// Identity is the display name used for sorting and personalization.
	// Empty when no name-like column carried a value; never an error.
	Identity string

	// Email is the resolved recipient address, possibly empty.
	Email string

	// CreatedAt is the date portion of the raw creation timestamp (anything
	// after the first space discarded). May be empty or unparseable; the
	// filter decides what that means.
	CreatedAt string

	// Status is the raw subscription status string.
	Status string

	// CheckIns is the parsed check-in count. Missing or non-numeric raw
	// values parse to 0.
	CheckIns int

	// Deduction is filled in by the tier calculator before assembly.
	Deduction int

	// Values holds every input column by original header name. Check-in
	// synonym columns are collapsed into the single CheckInsHeader key.
	Values map[string]string
}

// Report is one parsed attendance export: the original header order plus all
// rows, normalized.
type Report struct {
	Headers []string
	Records []*Record
}

// Parse reads a raw attendance CSV and normalizes every row. A missing or
// unreadable header row is an input error; individual malformed data rows are
// skipped, never fatal.
func Parse(r io.Reader) (*Report, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty report: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	rep := &Report{Headers: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rep.Records = append(rep.Records, normalizeRow(header, row))
	}
	return rep, nil
}

// normalizeRow resolves canonical fields for one raw row and collapses
// check-in synonym columns into the single canonical key.
func normalizeRow(header []string, row []string) *Record {
	rec := &Record{Values: make(map[string]string, len(header))}

	checkInsRaw := ""
	for i, h := range header {
		if i >= len(row) {
			break
		}
		val := strings.TrimSpace(row[i])

		switch CanonicalFor(h) {
		case FieldIdentity:
			if rec.Identity == "" {
				rec.Identity = val
			}
		case FieldEmail:
			if rec.Email == "" {
				rec.Email = val
			}
		case FieldCreatedAt:
			if rec.CreatedAt == "" && val != "" {
				// Trailing time-of-day is discarded before date parsing.
				rec.CreatedAt = strings.SplitN(val, " ", 2)[0]
			}
		case FieldStatus:
			if rec.Status == "" {
				rec.Status = val
			}
		case FieldCheckIns:
			if checkInsRaw == "" {
				checkInsRaw = val
			}
			// Synonym columns collapse; only the canonical key survives.
			continue
		}

		rec.Values[h] = val
	}

	n, err := strconv.Atoi(checkInsRaw)
	if err != nil || n < 0 {
		n = 0
	}
	rec.CheckIns = n
	rec.Values[CheckInsHeader] = strconv.Itoa(n)

	return rec
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
