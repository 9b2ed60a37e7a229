// Package rules resolves the per-period compensation multipliers applied to
// human- vs synthetic-attributed engagement.
package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// Resolver looks up compensation rules, falling back to engine-wide defaults
// for unconfigured periods. It never writes settlement data.
type Resolver struct {
	ruleStore storage.CompensationRuleStore
}

// NewResolver creates a Resolver backed by the given rule store.
func NewResolver(ruleStore storage.CompensationRuleStore) *Resolver {
	return &Resolver{ruleStore: ruleStore}
}

// Resolve returns the multiplier pair active for a period: the stored rule,
// or the defaults (1.2 human / 0.7 synthetic) when none is configured.
func (r *Resolver) Resolve(ctx context.Context, period domain.Period) (domain.Multipliers, error) {
	rule, err := r.ruleStore.GetByPeriod(ctx, period)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.DefaultMultipliers(), nil
		}
		return domain.Multipliers{}, fmt.Errorf("resolve compensation rule: %w", err)
	}
	return domain.Multipliers{
		Human:     rule.HumanMultiplier,
		Synthetic: rule.SyntheticMultiplier,
	}, nil
}

// Upsert validates and stores a rule for a period, replacing any existing
// rule in place. Last write for a period wins; no history is kept.
func (r *Resolver) Upsert(ctx context.Context, periodKey string, humanMultiplier, syntheticMultiplier, dpvBase float64) (*domain.CompensationRule, error) {
	period, err := domain.ParsePeriod(periodKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if humanMultiplier < 0 || syntheticMultiplier < 0 {
		return nil, fmt.Errorf("%w: multipliers must be non-negative", storage.ErrInvalidInput)
	}

	rule := &domain.CompensationRule{
		Period:              period,
		HumanMultiplier:     humanMultiplier,
		SyntheticMultiplier: syntheticMultiplier,
		DPVBase:             dpvBase,
	}
	if err := r.ruleStore.Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("upsert compensation rule: %w", err)
	}
	return rule, nil
}

// Get returns the stored rule for a period. Returns storage.ErrNotFound when
// no rule is configured; callers wanting the effective pair use Resolve.
func (r *Resolver) Get(ctx context.Context, period domain.Period) (*domain.CompensationRule, error) {
	return r.ruleStore.GetByPeriod(ctx, period)
}
