package report

import (
	"context"
	"fmt"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/de-tools/billing-report/pkg/services/aggregate"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type Fetcher interface {
	Fetch(ctx context.Context, subscriptions []string, period domain.BillingPeriod) (*domain.FetchResult, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, period domain.BillingPeriod, accounts []domain.AccountResult) []domain.Reconciliation
}

type Request struct {
	Period        domain.BillingPeriod
	Subscriptions []string
	// FailOnPartial turns a truncated subscription into an error after aggregation.
	FailOnPartial bool
}

// Generator builds billing reports.
type Generator interface {
	Generate(ctx context.Context, req Request) (*domain.BillingReport, error)
}

type Service struct {
	fetcher    Fetcher
	reconciler Reconciler
}

// NewService wires the pipeline. reconciler may be nil to skip the cross-check.
func NewService(fetcher Fetcher, reconciler Reconciler) *Service {
	return &Service{fetcher: fetcher, reconciler: reconciler}
}

// Generate fetches, aggregates and optionally reconciles one billing period.
// With FailOnPartial the report is still returned next to ErrIncompleteFetch.
// A fatal fetch error is a *domain.FetchError when the fetcher got that far.
func (s *Service) Generate(ctx context.Context, req Request) (*domain.BillingReport, error) {
	if len(req.Subscriptions) == 0 {
		return nil, domain.ErrNoSubscriptions
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("period", req.Period.ID()).
		Strs("subscriptions", req.Subscriptions).
		Msg("generating billing report")

	fetched, err := s.fetcher.Fetch(ctx, req.Subscriptions, req.Period)
	if err != nil {
		err = fmt.Errorf("failed to fetch usage details: %w", err)
		if fetched != nil {
			return nil, &domain.FetchError{Accounts: fetched.Accounts, Err: err}
		}
		return nil, err
	}

	report := &domain.BillingReport{
		Period:      req.Period,
		Aggregation: aggregate.Aggregate(fetched.Records, req.Period),
		Accounts:    fetched.Accounts,
	}

	if s.reconciler != nil {
		report.Reconciliations = s.reconciler.Reconcile(ctx, req.Period, fetched.Accounts)
	}

	if partial := report.Incomplete(); len(partial) > 0 {
		ids := lo.Map(partial, func(a domain.AccountResult, _ int) string { return a.SubscriptionID })
		logger.Warn().Strs("subscriptions", ids).Msg("report is built from incomplete usage data")
		if req.FailOnPartial {
			return report, fmt.Errorf("%w: subscriptions %v", domain.ErrIncompleteFetch, ids)
		}
	}

	return report, nil
}
