// Package main provides the unified settlement service:
// - Ingestion (continuous): mirrors the activity firehose into the ledger
// - Settlement (scheduled): closes the previous month's pool once
// - Admin HTTP: rules, close-and-settle, summaries, health, metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/config"
	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/fraud"
	"github.com/tshjustin/pokerdots-tiktok/internal/ingestion"
	"github.com/tshjustin/pokerdots-tiktok/internal/observability"
	"github.com/tshjustin/pokerdots-tiktok/internal/reporting"
	"github.com/tshjustin/pokerdots-tiktok/internal/rules"
	"github.com/tshjustin/pokerdots-tiktok/internal/settlement"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
	chstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/clickhouse"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage/memory"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage/migrations"
	pgstore "github.com/tshjustin/pokerdots-tiktok/internal/storage/postgres"
)

// Server holds all components of the settlement service.
type Server struct {
	cfg    *config.Config
	stores *allStores

	engine   *settlement.Engine
	reader   *settlement.Reader
	resolver *rules.Resolver

	logger *log.Logger

	// State
	mu                sync.Mutex
	started           time.Time
	lastSettlementRun time.Time
	settlementRunning bool
	settlementRuns    int
}

// allStores holds all storage implementations.
type allStores struct {
	activityStore storage.ActivityStore
	scoreStore    storage.AuthenticityScoreStore
	ruleStore     storage.CompensationRuleStore
	poolStore     storage.PoolStore
	findingStore  storage.FraudFindingStore
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	observability.Init(cfg.MetricsNamespace)

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	var marker *fraud.Marker
	if cfg.PersistFindings {
		marker = fraud.NewMarker(stores.findingStore)
	}

	server := &Server{
		cfg:    cfg,
		stores: stores,
		engine: settlement.New(settlement.Options{
			ActivityStore: stores.activityStore,
			ScoreStore:    stores.scoreStore,
			PoolStore:     stores.poolStore,
			FraudEngine:   fraud.NewEngine(fraud.DefaultConfig()),
			Resolver:      rules.NewResolver(stores.ruleStore),
			Marker:        marker,
			Verbose:       true,
		}),
		reader:   settlement.NewReader(stores.poolStore),
		resolver: rules.NewResolver(stores.ruleStore),
		logger:   logger,
		started:  time.Now(),
	}

	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go server.startHTTPServer(cfg.Addr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores, running migrations first.
func createStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	if cfg.UseMemory {
		stores := &allStores{
			activityStore: memory.NewActivityStore(),
			scoreStore:    memory.NewAuthenticityScoreStore(),
			ruleStore:     memory.NewCompensationRuleStore(),
			poolStore:     memory.NewPoolStore(),
			findingStore:  memory.NewFraudFindingStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// ClickHouse: the append-only ledger
		activityStore: chstore.NewActivityStore(chConn),

		// PostgreSQL: settlement state
		scoreStore:   pgstore.NewAuthenticityScoreStore(pool),
		ruleStore:    pgstore.NewCompensationRuleStore(pool),
		poolStore:    pgstore.NewPoolStore(pool),
		findingStore: pgstore.NewFraudFindingStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts all components and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting settlement service...")

	errCh := make(chan error, 2)

	if s.cfg.IngestWSURL != "" {
		go func() {
			err := s.runIngestion(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("ingestion: %w", err)
			}
		}()
	} else {
		s.logger.Println("Ingestion disabled (no firehose URL configured)")
	}

	if s.cfg.SchedulerEnabled {
		go func() {
			err := s.runSettlementScheduler(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("settlement scheduler: %w", err)
			}
		}()
	} else {
		s.logger.Println("Settlement scheduler disabled")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runIngestion mirrors the activity firehose into the ledger.
func (s *Server) runIngestion(ctx context.Context) error {
	s.logger.Printf("Starting ingestion from %s...", s.cfg.IngestWSURL)

	source, err := ingestion.NewWSActivitySource(ctx, s.cfg.IngestWSURL, nil)
	if err != nil {
		return fmt.Errorf("create activity source: %w", err)
	}
	defer source.Close()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Events:          source.Events(),
		ActivityStore:   s.stores.activityStore,
		FingerprintSalt: s.cfg.FingerprintSalt,
		BatchSize:       s.cfg.IngestBatchSize,
		FlushInterval:   s.cfg.IngestFlushInterval,
	})

	s.logger.Println("Ingestion started")
	return runner.Run(ctx)
}

// runSettlementScheduler settles the previous month once it is unsettled.
// The check interval is short relative to a month, so the pool closes within
// one interval of the month boundary.
func (s *Server) runSettlementScheduler(ctx context.Context) error {
	s.logger.Printf("Starting settlement scheduler (interval: %v, base amount: %.2f)...",
		s.cfg.SchedulerCheckInterval, s.cfg.SchedulerBaseAmount)

	// Run immediately on start
	s.runScheduledSettlement(ctx)

	ticker := time.NewTicker(s.cfg.SchedulerCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runScheduledSettlement(ctx)
		}
	}
}

// runScheduledSettlement closes the previous month's pool. Idempotent: once
// a pool exists the engine returns it without recomputing.
func (s *Server) runScheduledSettlement(ctx context.Context) {
	s.mu.Lock()
	if s.settlementRunning {
		s.mu.Unlock()
		s.logger.Println("Settlement already running, skipping...")
		return
	}
	s.settlementRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.settlementRunning = false
		s.lastSettlementRun = time.Now()
		s.settlementRuns++
		s.mu.Unlock()
	}()

	period := domain.PeriodOf(time.Now().UTC()).Prev()
	operator := domain.Operator{Principal: "ops:monthly-scheduler"}

	start := time.Now()
	result, err := s.engine.CloseAndSettle(ctx, operator, period.String(), s.cfg.SchedulerBaseAmount, false)
	if err != nil {
		if errors.Is(err, settlement.ErrConflict) {
			// Another instance won the race; the pool exists.
			s.logger.Printf("Period %s settled concurrently elsewhere", period)
			observability.RecordSettlement("conflict", time.Since(start).Seconds(), 0)
			return
		}
		s.logger.Printf("Scheduled settlement for %s failed: %v", period, err)
		observability.RecordSettlement("error", time.Since(start).Seconds(), 0)
		return
	}

	recordSettlementMetrics(result, time.Since(start))
	s.logger.Printf("Period %s settled: %d creators, %.2f distributed",
		period, len(result.Summary.Shares), result.Summary.BaseAmount)
}

// startHTTPServer serves the admin API plus health/status/metrics.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Admin API
	mux.HandleFunc("POST /pools/rules", s.handleUpsertRule)
	mux.HandleFunc("GET /pools/rules/{period}", s.handleGetRule)
	mux.HandleFunc("POST /pools/close-and-settle", s.handleCloseAndSettle)
	mux.HandleFunc("GET /pools/{period}/summary", s.handleSummary)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status            string    `json:"status"`
	Uptime            string    `json:"uptime"`
	LastSettlementRun time.Time `json:"last_settlement_run,omitempty"`
	SettlementRuns    int       `json:"settlement_runs"`
	SettlementRunning bool      `json:"settlement_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:            "running",
		Uptime:            time.Since(s.started).String(),
		LastSettlementRun: s.lastSettlementRun,
		SettlementRuns:    s.settlementRuns,
		SettlementRunning: s.settlementRunning,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RuleRequest is the JSON body for POST /pools/rules.
type RuleRequest struct {
	Period              string  `json:"period"`
	HumanMultiplier     float64 `json:"human_multiplier"`
	SyntheticMultiplier float64 `json:"synthetic_multiplier"`
	DPVBase             float64 `json:"dpv_base"`
}

func (s *Server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rule, err := s.resolver.Upsert(r.Context(), req.Period, req.HumanMultiplier, req.SyntheticMultiplier, req.DPVBase)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ruleResponse(rule))
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParsePeriod(r.PathValue("period"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := s.resolver.Get(r.Context(), period)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ruleResponse(rule))
}

// SettleRequest is the JSON body for POST /pools/close-and-settle.
type SettleRequest struct {
	Period     string  `json:"period"`
	BaseAmount float64 `json:"base_amount"`
	Force      bool    `json:"force"`
}

func (s *Server) handleCloseAndSettle(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start := time.Now()
	result, err := s.engine.CloseAndSettle(r.Context(), operatorFromRequest(r), req.Period, req.BaseAmount, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrConflict):
			httpError(w, http.StatusConflict, err.Error())
		case errors.Is(err, settlement.ErrNotPrivileged):
			httpError(w, http.StatusForbidden, err.Error())
		default:
			writeStoreError(w, err)
		}
		return
	}

	recordSettlementMetrics(result, time.Since(start))
	writeJSON(w, http.StatusOK, result.Summary)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reader.Summary(r.Context(), r.PathValue("period"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=pool_%s.csv", summary.Period))
		w.Write([]byte(reporting.RenderCSV(summary)))
	case "", "json":
		writeJSON(w, http.StatusOK, summary)
	default:
		httpError(w, http.StatusBadRequest, "format must be csv or json")
	}
}

// operatorFromRequest resolves the caller identity. The admin API sits behind
// the internal gateway which authenticates callers and sets these headers.
func operatorFromRequest(r *http.Request) domain.Operator {
	principal := r.Header.Get("X-Operator-Principal")
	if principal == "" {
		principal = "ops:admin-api"
	}
	return domain.Operator{
		Principal:  principal,
		Privileged: strings.EqualFold(r.Header.Get("X-Operator-Role"), "admin"),
	}
}

func ruleResponse(rule *domain.CompensationRule) RuleRequest {
	return RuleRequest{
		Period:              rule.Period.String(),
		HumanMultiplier:     rule.HumanMultiplier,
		SyntheticMultiplier: rule.SyntheticMultiplier,
		DPVBase:             rule.DPVBase,
	}
}

func recordSettlementMetrics(result *settlement.Result, elapsed time.Duration) {
	observability.RecordSettlement("settled", elapsed.Seconds(), len(result.Summary.Shares))
	observability.DefaultMetrics.PoolBaseAmount.Set(result.Summary.BaseAmount)
	observability.DefaultMetrics.LastSuccessfulSettlement.Set(float64(time.Now().Unix()))

	report := result.FraudReport
	if report != nil && report.Total > 0 {
		byCategory := make(map[string]int, len(report.ByCategory))
		for category, ids := range report.ByCategory {
			byCategory[string(category)] = len(ids)
		}
		observability.RecordFraudScan(byCategory, report.ExclusionPct/100)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidInput):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		httpError(w, http.StatusInternalServerError, err.Error())
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
