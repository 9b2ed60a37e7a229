// Package main closes and settles one compensation pool from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/fraud"
	"github.com/tshjustin/pokerdots-tiktok/internal/reporting"
	"github.com/tshjustin/pokerdots-tiktok/internal/rules"
	"github.com/tshjustin/pokerdots-tiktok/internal/settlement"
	chstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/clickhouse"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage/migrations"
	pgstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults)
	period := flag.String("period", "", "Period to settle, YYYY-MM (required)")
	baseAmount := flag.Float64("base-amount", 0, "Budget to distribute (required)")
	force := flag.Bool("force", false, "Replace an existing settlement (privileged)")
	operator := flag.String("operator", "ops:settle-cli", "Operator principal for the audit trail")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	skipFindings := flag.Bool("skip-findings", false, "Do not persist fraud audit rows")
	csvOut := flag.String("csv-out", "", "Also write the payout CSV to this path")
	flag.Parse()

	if *period == "" {
		fmt.Fprintln(os.Stderr, "Error: --period is required")
		os.Exit(1)
	}
	if *baseAmount <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --base-amount must be positive")
		os.Exit(1)
	}
	if *postgresDSN == "" || *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required")
		os.Exit(1)
	}

	ctx := context.Background()

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

	chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer chConn.Close()

	var marker *fraud.Marker
	if !*skipFindings {
		marker = fraud.NewMarker(pgstore.NewFraudFindingStore(pool))
	}

	engine := settlement.New(settlement.Options{
		ActivityStore: chstore.NewActivityStore(chConn),
		ScoreStore:    pgstore.NewAuthenticityScoreStore(pool),
		PoolStore:     pgstore.NewPoolStore(pool),
		FraudEngine:   fraud.NewEngine(fraud.DefaultConfig()),
		Resolver:      rules.NewResolver(pgstore.NewCompensationRuleStore(pool)),
		Marker:        marker,
		Verbose:       true,
	})

	op := domain.Operator{Principal: *operator, Privileged: *force}

	result, err := engine.CloseAndSettle(ctx, op, *period, *baseAmount, *force)
	if err != nil {
		if errors.Is(err, settlement.ErrConflict) {
			fmt.Fprintf(os.Stderr, "Period %s was settled concurrently; re-run to read the existing pool\n", *period)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error settling %s: %v\n", *period, err)
		os.Exit(1)
	}

	fmt.Print(reporting.RenderMarkdown(result.Summary, result.FraudReport))

	if *csvOut != "" {
		if err := os.WriteFile(*csvOut, []byte(reporting.RenderCSV(result.Summary)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Payout CSV written to %s\n", *csvOut)
	}
}
