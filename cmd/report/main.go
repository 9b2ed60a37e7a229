// Package main exports a settled pool as CSV, JSON, or markdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tshjustin/pokerdots-tiktok/internal/reporting"
	"github.com/tshjustin/pokerdots-tiktok/internal/settlement"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
	pgstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults)
	period := flag.String("period", "", "Settled period to export, YYYY-MM (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	format := flag.String("format", "markdown", "Output format: csv, json, or markdown")
	outDir := flag.String("out-dir", "", "Write to pool_<period>.<ext> under this directory instead of stdout")
	flag.Parse()

	if *period == "" {
		fmt.Fprintln(os.Stderr, "Error: --period is required")
		os.Exit(1)
	}
	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	reader := settlement.NewReader(pgstore.NewPoolStore(pool))

	summary, err := reader.Summary(ctx, *period)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Period %s has not been settled\n", *period)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error reading pool: %v\n", err)
		os.Exit(1)
	}

	var out []byte
	var ext string
	switch *format {
	case "csv":
		out, ext = []byte(reporting.RenderCSV(summary)), "csv"
	case "json":
		rendered, err := reporting.RenderJSON(summary)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering JSON: %v\n", err)
			os.Exit(1)
		}
		out, ext = rendered, "json"
	case "markdown":
		out, ext = []byte(reporting.RenderMarkdown(summary, nil)), "md"
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (want csv, json, or markdown)\n", *format)
		os.Exit(1)
	}

	if *outDir == "" {
		os.Stdout.Write(out)
		return
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(*outDir, fmt.Sprintf("pool_%s.%s", *period, ext))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report generated successfully: %s\n", path)
}
