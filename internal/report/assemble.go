package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AssembleOptions controls output shaping.
type AssembleOptions struct {
	// ExcludeHeaders are columns dropped from the output. Nil means
	// DefaultExcludedHeaders.
	ExcludeHeaders []string
	// OmitDeduction leaves out the computed amount column. Used by the local
	// export profile, which filters without computing tiers.
	OmitDeduction bool
}

func (o AssembleOptions) excluded() map[string]bool {
	list := o.ExcludeHeaders
	if list == nil {
		list = DefaultExcludedHeaders
	}
	m := make(map[string]bool, len(list))
	for _, h := range list {
		m[h] = true
	}
	return m
}

// SortRecords orders records by check-ins descending, then identity
// case-insensitive ascending. The order is total and deterministic.
func SortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CheckIns != records[j].CheckIns {
			return records[i].CheckIns > records[j].CheckIns
		}
		return strings.ToLower(records[i].Identity) < strings.ToLower(records[j].Identity)
	})
}

// OutputHeaders derives the assembled artifact's header row: the original
// headers in first-seen order, minus exclusions and check-in synonyms, with
// the canonical check-ins column kept (or appended) and the computed
// deduction column appended last.
func OutputHeaders(original []string, opts AssembleOptions) []string {
	excluded := opts.excluded()

	out := make([]string, 0, len(original)+2)
	seen := make(map[string]bool, len(original)+2)
	hasCheckIns := false
	for _, h := range original {
		if excluded[h] || seen[h] {
			continue
		}
		if IsCheckInsHeader(h) {
			// All synonym spellings collapse into the one canonical column,
			// placed where the first spelling appeared.
			if hasCheckIns {
				continue
			}
			hasCheckIns = true
			out = append(out, CheckInsHeader)
			seen[CheckInsHeader] = true
			continue
		}
		out = append(out, h)
		seen[h] = true
	}
	if !hasCheckIns {
		out = append(out, CheckInsHeader)
	}
	if opts.OmitDeduction {
		return out
	}
	return append(out, DeductionHeader)
}

// Assemble serializes the surviving records as a CSV artifact. Records are
// sorted in place first. With zero survivors the artifact still carries the
// derived header row, so downstream consumers always see a valid table.
func Assemble(originalHeaders []string, records []*Record, opts AssembleOptions) ([]byte, error) {
	SortRecords(records)

	headers := OutputHeaders(originalHeaders, opts)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(headers))
	for _, rec := range records {
		for i, h := range headers {
			switch h {
			case CheckInsHeader:
				row[i] = strconv.Itoa(rec.CheckIns)
			case DeductionHeader:
				row[i] = strconv.Itoa(rec.Deduction)
			default:
				row[i] = rec.Values[h]
			}
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
