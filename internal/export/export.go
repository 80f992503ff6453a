// Package export is the local post-processor for portal downloads: it strips
// sensitive columns from a Corporate Employees export, optionally rewrites
// every recipient address for staging runs, and filters rows to the closed
// billing period before the file is uploaded for dispatch.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
	"github.com/HussainShah1551/gp-codebuild/internal/report"
)

// Options controls one export processing pass.
type Options struct {
	// ExcludeHeaders overrides the default sensitive-column list.
	ExcludeHeaders []string
	// ReplacementEmail, when non-empty, replaces every resolved recipient
	// address. Explicit opt-in only.
	ReplacementEmail string
	// FilterThroughPrevMonth drops rows created after the end of the
	// previous calendar month (and rows with unparseable dates).
	FilterThroughPrevMonth bool
	// RequireActive keeps only rows with an active subscription status.
	RequireActive bool
	// Now is the clock for window derivation. Nil means time.Now.
	Now func() time.Time
}

// Process reads a raw export and writes the processed CSV. Returns the number
// of rows written.
func Process(r io.Reader, w io.Writer, opts Options) (int, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rep, err := report.Parse(r)
	if err != nil {
		return 0, err
	}

	filter := report.Filter{RequireActive: opts.RequireActive}
	if opts.FilterThroughPrevMonth {
		win := report.ThroughPreviousMonthEnd(opts.Now())
		filter.Window = &win
	}
	kept := filter.Apply(rep.Records)

	if opts.ReplacementEmail != "" {
		for _, rec := range kept {
			replaceEmail(rec, opts.ReplacementEmail)
		}
	}

	out, err := report.Assemble(rep.Headers, kept, report.AssembleOptions{
		ExcludeHeaders: opts.ExcludeHeaders,
		OmitDeduction:  true,
	})
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(out); err != nil {
		return 0, fmt.Errorf("write processed csv: %w", err)
	}
	return len(kept), nil
}

// replaceEmail rewrites every email-bearing column plus the resolved field.
func replaceEmail(rec *report.Record, replacement string) {
	if rec.Email == "" {
		return
	}
	rec.Email = replacement
	for h := range rec.Values {
		if report.CanonicalFor(h) == report.FieldEmail {
			rec.Values[h] = replacement
		}
	}
}

// ProcessFile locates the newest Corporate Employees CSV in dir, processes
// it, and writes Processed_<name> next to it. Returns the output path.
func ProcessFile(dir string, opts Options) (string, error) {
	name, err := findEmployeesCSV(dir)
	if err != nil {
		return "", err
	}
	inPath := filepath.Join(dir, name)
	outPath := filepath.Join(dir, "Processed_"+name)

	in, err := os.Open(inPath)
	if err != nil {
		return "", fmt.Errorf("open export: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create processed file: %w", err)
	}
	defer out.Close()

	rows, err := Process(in, out, opts)
	if err != nil {
		os.Remove(outPath)
		return "", err
	}

	logger.Info("export processed", "input", inPath, "output", outPath, "rows", rows)
	return outPath, nil
}

// findEmployeesCSV picks the Corporate Employees export from a downloads
// directory, tolerating spaces and casing in the filename.
func findEmployeesCSV(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read downloads dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.Contains(name, "corporate") && strings.Contains(name, "employees") && strings.HasSuffix(name, ".csv") {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("no Corporate Employees CSV found in %s", dir)
}
