// Package settlement closes monthly compensation pools.
// Flow: snapshot → fraud analysis → aggregation → rule resolution → payout split
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/aggregation"
	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/fraud"
	"github.com/tshjustin/pokerdots-tiktok/internal/rules"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// Engine computes and persists one pool settlement per period.
// Concurrency control is delegated to the pools period unique key: two
// concurrent CloseAndSettle calls for the same period race on insert and
// exactly one wins.
type Engine struct {
	activityStore storage.ActivityStore
	scoreStore    storage.AuthenticityScoreStore
	poolStore     storage.PoolStore
	fraudEngine   *fraud.Engine
	resolver      *rules.Resolver
	marker        *fraud.Marker

	logger  *log.Logger
	verbose bool
	now     func() time.Time
}

// Options for creating Engine.
type Options struct {
	// Required stores
	ActivityStore storage.ActivityStore
	ScoreStore    storage.AuthenticityScoreStore
	PoolStore     storage.PoolStore

	FraudEngine *fraud.Engine
	Resolver    *rules.Resolver

	// Optional. When set, fraud findings are persisted alongside the pool.
	Marker *fraud.Marker

	Verbose bool
	Now     func() time.Time
}

// New creates a new settlement Engine.
func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		activityStore: opts.ActivityStore,
		scoreStore:    opts.ScoreStore,
		poolStore:     opts.PoolStore,
		fraudEngine:   opts.FraudEngine,
		resolver:      opts.Resolver,
		marker:        opts.Marker,
		logger:        log.New(os.Stdout, "[settlement] ", log.LstdFlags|log.Lshortfile),
		verbose:       opts.Verbose,
		now:           now,
	}
}

// Result contains the settled pool summary plus the fraud report that
// produced it. The report is empty on the idempotent path since no analysis
// runs for an already settled period.
type Result struct {
	Summary     *domain.PoolSummary
	FraudReport *domain.FraudReport
	Recomputed  bool
}

// CloseAndSettle settles the pool for the given period.
// Phases:
//  1. Validate period and budget
//  2. Return the existing pool if one is already settled (unless force)
//  3. Snapshot the activity window and run fraud analysis
//  4. Aggregate surviving activity and resolve the period's multipliers
//  5. Split the budget by effective tokens and persist atomically
//
// force replaces an existing settlement and requires a privileged operator.
func (e *Engine) CloseAndSettle(ctx context.Context, op domain.Operator, periodKey string, baseAmount float64, force bool) (*Result, error) {
	period, err := domain.ParsePeriod(periodKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if baseAmount < 0 {
		return nil, fmt.Errorf("%w: base amount must be >= 0, got %f", storage.ErrInvalidInput, baseAmount)
	}
	if force && !op.Privileged {
		return nil, ErrNotPrivileged
	}

	// Phase 2: idempotent read before any computation.
	existing, err := e.poolStore.GetByPeriod(ctx, period)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load existing pool: %w", err)
	}
	if existing != nil && !force {
		summary, err := e.summarize(ctx, existing)
		if err != nil {
			return nil, err
		}
		e.log("period %s already settled (pool %d), returning existing", period, existing.PoolID)
		return &Result{Summary: summary, FraudReport: &domain.FraudReport{}}, nil
	}

	// Phase 3: one snapshot feeds both fraud analysis and aggregation so
	// they agree on the activity set even while ingestion continues.
	startMs, endMs := period.Bounds()
	activities, err := e.activityStore.GetByWindow(ctx, startMs, endMs, storage.ActivityFilter{})
	if err != nil {
		return nil, fmt.Errorf("load activity window: %w", err)
	}
	e.log("period %s: %d activities in window", period, len(activities))

	report := e.fraudEngine.Analyze(activities)
	if len(report.ExcludedIDs) > 0 {
		e.log("  fraud: excluded %d/%d (%.2f%%)", len(report.ExcludedIDs), report.Total, report.ExclusionPct)
	}
	if e.marker != nil {
		if _, err := e.marker.Persist(ctx, period, report); err != nil {
			return nil, err
		}
	}

	// Phase 4: aggregate and weight.
	buckets := aggregation.Aggregate(activities, report.Excluded())
	multipliers, err := e.resolver.Resolve(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("resolve compensation rule: %w", err)
	}

	scores, err := e.loadScores(ctx, buckets)
	if err != nil {
		return nil, err
	}

	shares := computeShares(buckets, scores, multipliers, baseAmount)

	pool := &domain.Pool{
		Period:     period,
		BaseAmount: baseAmount,
		Settled:    true,
		SettledAt:  e.now().UTC().UnixMilli(),
	}
	for _, s := range shares {
		pool.TotalEffectiveTokens += s.EffectiveTokens
	}

	// Phase 5: atomic persist. A losing concurrent attempt surfaces as
	// ErrConflict; force replaces whatever is there.
	if force {
		pool, err = e.poolStore.ReplaceSettlement(ctx, pool, shares)
	} else {
		pool, err = e.poolStore.CreateSettlement(ctx, pool, shares)
	}
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("persist settlement: %w", err)
	}
	for _, s := range shares {
		s.PoolID = pool.PoolID
	}
	e.log("period %s settled: pool %d, %d creators, %.2f budget over %.6f effective tokens",
		period, pool.PoolID, len(shares), baseAmount, pool.TotalEffectiveTokens)

	return &Result{
		Summary:     buildSummary(pool, shares),
		FraudReport: report,
		Recomputed:  force && existing != nil,
	}, nil
}

// loadScores fetches authenticity scores for every distinct video in the
// aggregation. Missing scores are simply absent from the map.
func (e *Engine) loadScores(ctx context.Context, buckets []aggregation.Bucket) (map[string]*domain.AuthenticityScore, error) {
	ids := aggregation.VideoIDs(buckets)
	if len(ids) == 0 {
		return map[string]*domain.AuthenticityScore{}, nil
	}
	scores, err := e.scoreStore.GetByVideoIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load authenticity scores: %w", err)
	}
	return scores, nil
}

// computeShares turns per-video buckets into per-creator pool shares.
// Effective tokens = raw count * multiplier, where the multiplier comes from
// the video's authenticity score. Unscored videos weigh at 1.0.
func computeShares(buckets []aggregation.Bucket, scores map[string]*domain.AuthenticityScore, multipliers domain.Multipliers, baseAmount float64) []*domain.PoolShare {
	type creatorAgg struct {
		tokenCount int64
		effective  float64
	}
	byCreator := make(map[string]*creatorAgg)
	var order []string

	for _, b := range buckets {
		agg, ok := byCreator[b.CreatorID]
		if !ok {
			agg = &creatorAgg{}
			byCreator[b.CreatorID] = agg
			order = append(order, b.CreatorID)
		}
		agg.tokenCount += b.RawCount
		agg.effective += float64(b.RawCount) * multipliers.ForScore(scores[b.VideoID])
	}

	var totalEffective float64
	for _, agg := range byCreator {
		totalEffective += agg.effective
	}

	shares := make([]*domain.PoolShare, 0, len(order))
	for _, creatorID := range order {
		agg := byCreator[creatorID]
		share := &domain.PoolShare{
			CreatorID:       creatorID,
			TokenCount:      agg.tokenCount,
			EffectiveTokens: agg.effective,
		}
		if totalEffective > 0 {
			share.SharePct = agg.effective / totalEffective
			share.PayoutAmount = roundCents(baseAmount * share.SharePct)
		}
		shares = append(shares, share)
	}

	// Payout descending, creator id ascending on ties. Matches the stores'
	// read ordering so fresh and re-read summaries agree.
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].PayoutAmount != shares[j].PayoutAmount {
			return shares[i].PayoutAmount > shares[j].PayoutAmount
		}
		return shares[i].CreatorID < shares[j].CreatorID
	})
	return shares
}

// summarize rebuilds a summary for an already persisted pool.
func (e *Engine) summarize(ctx context.Context, pool *domain.Pool) (*domain.PoolSummary, error) {
	shares, err := e.poolStore.GetShares(ctx, pool.PoolID)
	if err != nil {
		return nil, fmt.Errorf("load pool shares: %w", err)
	}
	return buildSummary(pool, shares), nil
}

func buildSummary(pool *domain.Pool, shares []*domain.PoolShare) *domain.PoolSummary {
	summary := &domain.PoolSummary{
		PoolID:               pool.PoolID,
		Period:               pool.Period,
		BaseAmount:           pool.BaseAmount,
		TotalEffectiveTokens: pool.TotalEffectiveTokens,
		SettledAt:            pool.SettledAt,
		Shares:               make([]domain.PoolShare, 0, len(shares)),
	}
	for _, s := range shares {
		summary.Shares = append(summary.Shares, *s)
	}
	return summary
}

// roundCents rounds to 2 decimal places, half to even. Individual payouts
// are rounded independently; the sum may drift from the budget by a fraction
// of a cent per creator and is never reallocated.
func roundCents(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

func (e *Engine) log(format string, args ...interface{}) {
	if e.verbose {
		e.logger.Printf(format, args...)
	}
}
