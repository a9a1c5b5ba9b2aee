// Command migrate applies migrations/001_initial_schema.sql to the
// configured database with the atlas CLI.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"kicks-exchange/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func main() {
	schema := flag.String("schema", "file://migrations/001_initial_schema.sql", "desired schema")
	devURL := flag.String("dev-url", "docker://postgres/17/dev?search_path=public", "atlas dev database")
	dryRun := flag.Bool("dry-run", false, "print the plan without applying it")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_ = godotenv.Load()
	var dbCfg config.DBConfig
	if err := envconfig.Process("", &dbCfg); err != nil {
		logger.Error("failed to load database config", "error", err)
		os.Exit(1)
	}

	client, err := atlasexec.NewClient(".", "atlas")
	if err != nil {
		logger.Error("failed to initialise atlas client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
		URL:         dbCfg.BuildDSN(),
		To:          *schema,
		DevURL:      *devURL,
		DryRun:      *dryRun,
		AutoApprove: true,
	}); err != nil {
		logger.Error("schema apply failed", "error", err)
		os.Exit(1)
	}
	logger.Info("schema applied", "to", *schema, "dry_run", *dryRun)
}
