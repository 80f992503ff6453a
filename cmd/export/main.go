// Command export post-processes a locally downloaded Corporate Employees
// CSV: strips sensitive columns, optionally rewrites recipient addresses for
// staging, and filters rows through the end of the previous calendar month.
package main

import (
	"flag"
	"log"

	"github.com/HussainShah1551/gp-codebuild/internal/config"
	"github.com/HussainShah1551/gp-codebuild/internal/export"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dir := flag.String("dir", "downloads", "directory holding the downloaded export")
	replaceEmails := flag.Bool("replace-emails", false, "replace every recipient with the configured substitute address")
	keepAll := flag.Bool("keep-all", false, "skip the previous-month and active-status filters")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := export.Options{
		ExcludeHeaders:         cfg.Report.ExcludeHeaders,
		FilterThroughPrevMonth: !*keepAll,
		RequireActive:          !*keepAll,
	}
	if *replaceEmails {
		if cfg.Dispatch.ReplacementEmail == "" {
			log.Fatal("-replace-emails requires dispatch.replacement_email in config")
		}
		opts.ReplacementEmail = cfg.Dispatch.ReplacementEmail
	}

	outPath, err := export.ProcessFile(*dir, opts)
	if err != nil {
		log.Fatalf("Export processing failed: %v", err)
	}
	log.Printf("Processed export written to %s", outPath)
}
