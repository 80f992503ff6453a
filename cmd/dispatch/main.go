// Command dispatch runs the attendance pipeline once for a single report
// object and exits. Exit code 0 means full success, 2 degraded success
// (dispatched, but the marker or some jobs failed), 1 hard failure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/HussainShah1551/gp-codebuild/internal/config"
	"github.com/HussainShah1551/gp-codebuild/internal/dispatch"
	"github.com/HussainShah1551/gp-codebuild/internal/pipeline"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/awsconf"
	"github.com/HussainShah1551/gp-codebuild/internal/store"
	"github.com/HussainShah1551/gp-codebuild/internal/tier"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	bucket := flag.String("bucket", "", "S3 bucket holding the report")
	key := flag.String("key", "", "S3 key of the report CSV")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if *bucket == "" {
		*bucket = cfg.AWS.Bucket
	}
	if *bucket == "" || *key == "" {
		log.Fatal("both -bucket (or aws.bucket config) and -key are required")
	}

	ctx := context.Background()
	awsCfg, err := awsconf.Load(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	st := store.NewS3Store(awsCfg, cfg.Report.MarkerSuffix)
	mailer := dispatch.NewSESMailer(awsCfg, cfg.Dispatch.SourceEmail, cfg.Dispatch.AdminEmail)
	queue := dispatch.NewSQSQueue(awsCfg, cfg.AWS.QueueURL)

	replacement := ""
	if cfg.Dispatch.ReplaceEmails {
		replacement = cfg.Dispatch.ReplacementEmail
		log.Printf("Email replacement is ON: every recipient becomes %s", replacement)
	}
	dispatcher := dispatch.NewDispatcher(mailer, queue, replacement)

	calc := tier.NewCalculator(cfg.Report.BaseFee)
	pipe := pipeline.New(st, dispatcher, calc, pipeline.Options{
		WindowMode:     pipeline.WindowMode(cfg.Report.DateWindow),
		ExcludeHeaders: cfg.Report.ExcludeHeaders,
	})

	res := pipe.Run(ctx, *bucket, *key)

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))

	switch res.Status {
	case pipeline.StatusSucceeded:
		os.Exit(0)
	case pipeline.StatusDegraded:
		os.Exit(2)
	default:
		os.Exit(1)
	}
}
