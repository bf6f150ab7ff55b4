package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/drivesync/internal/catalog"
	"github.com/desertthunder/drivesync/internal/drive"
	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/storage"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	httpClient := http.DefaultClient
	if config.Drive.TimeoutSeconds > 0 {
		httpClient = &http.Client{Timeout: time.Duration(config.Drive.TimeoutSeconds) * time.Second}
	}

	var source catalog.Source
	if src, err := catalog.NewSheetsSource(config.Catalog.BaseURL, config.Catalog.APIKey, config.Catalog.SpreadsheetID, config.Catalog.SheetName, httpClient); err == nil {
		source = src
	}

	downloader := drive.NewDownloader(config.Drive.ExportURL, httpClient)
	if config.Drive.RateLimit > 0 {
		downloader.SetRateLimit(config.Drive.RateLimit)
	}

	var uploader storage.Uploader
	if config.Storage.Bucket != "" {
		up, err := storage.NewS3Uploader(context.Background(), storage.Config{
			Bucket:          config.Storage.Bucket,
			Region:          config.Storage.Region,
			Endpoint:        config.Storage.Endpoint,
			AccessKeyID:     config.Storage.AccessKeyID,
			SecretAccessKey: config.Storage.SecretAccessKey,
			ForcePathStyle:  config.Storage.ForcePathStyle,
		}, logger)
		if err == nil {
			uploader = up
		} else {
			logger.Warn("object storage unavailable", "error", err)
		}
	}

	var processed ledger.Ledger
	switch config.Ledger.Backend {
	case "file":
		if fl, err := ledger.OpenFileLedger(config.Ledger.StateFile); err == nil {
			processed = fl
		} else {
			logger.Warn("file ledger unavailable", "error", err)
		}
	default:
		if db, err := shared.NewDatabase(config.Ledger.Path); err == nil {
			processed = ledger.NewSQLiteLedger(db)
		} else {
			logger.Warn("ledger database unavailable, run 'drivesync setup' first", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Source:     source,
		Downloader: downloader,
		Uploader:   uploader,
		Ledger:     processed,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "drivesync",
		Usage:    "Sync Drive-hosted media assets into object storage",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
