package analyzers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const costColumn = "Cost"

// UsageQuerier is the subset of armcostmanagement.QueryClient the reconciler needs.
type UsageQuerier interface {
	Usage(
		ctx context.Context,
		scope string,
		parameters armcostmanagement.QueryDefinition,
		options *armcostmanagement.QueryClientUsageOptions,
	) (armcostmanagement.QueryClientUsageResponse, error)
}

// Reconciler cross-checks summed usage-record cost against the Cost Management
// ActualCost total of the same subscription and billing month.
type Reconciler struct {
	client    UsageQuerier
	tolerance decimal.Decimal
}

func NewReconciler(client UsageQuerier, tolerance decimal.Decimal) *Reconciler {
	return &Reconciler{client: client, tolerance: tolerance.Abs()}
}

// NewQueryClient builds the Cost Management query client used by the reconciler.
func NewQueryClient(factory *armcostmanagement.ClientFactory) UsageQuerier {
	return factory.NewQueryClient()
}

// Reconcile checks every complete account. Partial accounts are skipped since
// their usage total is known to be short. Query failures are recorded, not returned.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	period domain.BillingPeriod,
	accounts []domain.AccountResult,
) []domain.Reconciliation {
	logger := zerolog.Ctx(ctx)
	out := make([]domain.Reconciliation, 0, len(accounts))

	for _, account := range accounts {
		if !account.Complete {
			continue
		}

		rec := domain.Reconciliation{
			SubscriptionID: account.SubscriptionID,
			UsageTotal:     account.TotalCost,
		}

		total, err := r.queryTotal(ctx, account.SubscriptionID, period)
		if err != nil {
			msg := err.Error()
			rec.Error = &msg
			logger.Error().Err(err).Str("subscription", account.SubscriptionID).Msg("failed to query cost management total")
			out = append(out, rec)
			continue
		}

		rec.QueryTotal = total
		rec.Difference = account.TotalCost.Sub(total)
		rec.Matched = rec.Difference.Abs().LessThanOrEqual(r.tolerance)
		if !rec.Matched {
			logger.Warn().
				Str("subscription", account.SubscriptionID).
				Str("usage_total", rec.UsageTotal.String()).
				Str("query_total", rec.QueryTotal.String()).
				Msg("usage details do not add up to the cost management total")
		}
		out = append(out, rec)
	}

	return out
}

func (r *Reconciler) queryTotal(ctx context.Context, subscription string, period domain.BillingPeriod) (decimal.Decimal, error) {
	start, end := period.Start(), period.End()

	params := armcostmanagement.QueryDefinition{
		Type:      to.Ptr(armcostmanagement.ExportTypeActualCost),
		Timeframe: to.Ptr(armcostmanagement.TimeframeTypeCustom),
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &start,
			To:   &end,
		},
		Dataset: &armcostmanagement.QueryDataset{
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				costColumn: {
					Name:     to.Ptr(costColumn),
					Function: to.Ptr(armcostmanagement.FunctionTypeSum),
				},
			},
		},
	}

	scope := fmt.Sprintf("/subscriptions/%s", subscription)
	result, err := r.client.Usage(ctx, scope, params, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query costs: %w", err)
	}
	if result.Properties == nil {
		return decimal.Zero, fmt.Errorf("query result for %s has no properties", scope)
	}

	idx := -1
	for i, col := range result.Properties.Columns {
		if col != nil && col.Name != nil && strings.EqualFold(*col.Name, costColumn) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return decimal.Zero, fmt.Errorf("query result for %s has no %s column", scope, costColumn)
	}

	total := decimal.Zero
	for _, row := range result.Properties.Rows {
		if len(row) <= idx {
			continue
		}
		v, err := toDecimal(row[idx])
		if err != nil {
			return decimal.Zero, fmt.Errorf("query result for %s: %w", scope, err)
		}
		total = total.Add(v)
	}
	return total, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected cost value %v (%T)", v, v)
	}
}
