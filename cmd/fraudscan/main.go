// Package main runs the fraud signal engine over one period's ledger window
// without settling anything. Useful for previewing exclusions before a
// close-and-settle and for backfilling audit findings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/fraud"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
	chstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/clickhouse"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage/migrations"
	pgstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults)
	periodKey := flag.String("period", "", "Period to scan, YYYY-MM (required)")
	creatorID := flag.String("creator", "", "Restrict the scan to one creator")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	persist := flag.Bool("persist", false, "Write findings to the audit table")
	showIDs := flag.Bool("show-ids", false, "Print every flagged activity id")
	flag.Parse()

	if *periodKey == "" {
		fmt.Fprintln(os.Stderr, "Error: --period is required")
		os.Exit(1)
	}
	if *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --clickhouse-dsn is required")
		os.Exit(1)
	}
	if *persist && *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --persist requires --postgres-dsn")
		os.Exit(1)
	}

	period, err := domain.ParsePeriod(*periodKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	chConn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer chConn.Close()

	startMs, endMs := period.Bounds()
	activities, err := chstore.NewActivityStore(chConn).GetByWindow(ctx, startMs, endMs, storage.ActivityFilter{
		CreatorID: *creatorID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ledger window: %v\n", err)
		os.Exit(1)
	}

	report := fraud.NewEngine(fraud.DefaultConfig()).Analyze(activities)

	fmt.Printf("Period %s: analyzed %d activities, flagged %d (%.2f%%)\n",
		period, report.Total, len(report.ExcludedIDs), report.ExclusionPct)
	for _, category := range []domain.FraudCategory{
		domain.FraudOriginClustering,
		domain.FraudTimeProximity,
		domain.FraudPatternAbuse,
	} {
		ids := report.ByCategory[category]
		if len(ids) == 0 {
			continue
		}
		fmt.Printf("  %-18s %d\n", category, len(ids))
		if *showIDs {
			sorted := append([]string(nil), ids...)
			sort.Strings(sorted)
			for _, id := range sorted {
				fmt.Printf("    %s\n", id)
			}
		}
	}

	if !*persist {
		return
	}

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error running postgres migrations: %v\n", err)
		os.Exit(1)
	}

	marker := fraud.NewMarker(pgstore.NewFraudFindingStore(pool))
	written, err := marker.Persist(ctx, period, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error persisting findings: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Persisted %d findings for %s\n", written, period)
}
