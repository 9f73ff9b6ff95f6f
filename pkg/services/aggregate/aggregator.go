package aggregate

import (
	"slices"
	"strings"

	"github.com/de-tools/billing-report/pkg/adapters"
	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/shopspring/decimal"
)

// Carried field names.
const (
	FieldCostCenter       = "costCenter"
	FieldEnvironment      = "environment"
	FieldResourceLocation = "resourceLocation"
	FieldResourceGroup    = "resourceGroup"
	FieldConsumedService  = "consumedService"
)

type grouping struct {
	key    func(domain.FlatRow) string
	fields func(domain.FlatRow) []domain.Field
}

var groupings = map[domain.Dimension]grouping{
	domain.DimensionProject: {
		key: func(r domain.FlatRow) string { return r.Project },
		fields: func(r domain.FlatRow) []domain.Field {
			return []domain.Field{
				{Name: FieldCostCenter, Value: r.CostCenter},
				{Name: FieldEnvironment, Value: r.Environment},
			}
		},
	},
	domain.DimensionResourceGroup: {
		key: func(r domain.FlatRow) string { return r.ResourceGroup },
		fields: func(r domain.FlatRow) []domain.Field {
			return []domain.Field{
				{Name: FieldResourceLocation, Value: r.ResourceLocation},
			}
		},
	},
	domain.DimensionResourceName: {
		key: func(r domain.FlatRow) string { return r.ResourceName },
		fields: func(r domain.FlatRow) []domain.Field {
			return []domain.Field{
				{Name: FieldResourceGroup, Value: r.ResourceGroup},
				{Name: FieldConsumedService, Value: r.ConsumedService},
			}
		},
	},
	domain.DimensionConsumedService: {
		key:    func(r domain.FlatRow) string { return r.ConsumedService },
		fields: func(domain.FlatRow) []domain.Field { return nil },
	},
}

// Aggregate projects the records, sorts them and builds one summary list per dimension.
// records is not modified.
func Aggregate(records []domain.UsageRecord, period domain.BillingPeriod) domain.Aggregation {
	rows := adapters.MapUsageRecordsToFlatRows(records)
	SortRows(rows)

	agg := domain.Aggregation{
		BillingPeriod: period.ID(),
		Rows:          rows,
		Summaries:     make(map[domain.Dimension][]domain.GroupSummary, len(domain.Dimensions)),
	}
	for _, dim := range domain.Dimensions {
		agg.Summaries[dim] = GroupBy(rows, dim, agg.BillingPeriod)
	}
	return agg
}

// SortRows orders rows ascending by (date, project, resource name), keeping
// arrival order for equal keys.
func SortRows(rows []domain.FlatRow) {
	slices.SortStableFunc(rows, func(a, b domain.FlatRow) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.Project, b.Project); c != 0 {
			return c
		}
		return strings.Compare(a.ResourceName, b.ResourceName)
	})
}

// GroupBy partitions already sorted rows by the dimension key and sums their cost.
// Groups appear in first-encounter order before the stable descending sort by total,
// so equal totals keep that order. Carried fields come from the first row of each group.
func GroupBy(rows []domain.FlatRow, dim domain.Dimension, billingPeriod string) []domain.GroupSummary {
	g, ok := groupings[dim]
	if !ok {
		return nil
	}

	index := make(map[string]int)
	summaries := make([]domain.GroupSummary, 0)
	for _, row := range rows {
		key := g.key(row)
		i, seen := index[key]
		if !seen {
			i = len(summaries)
			index[key] = i
			summaries = append(summaries, domain.GroupSummary{
				BillingPeriod: billingPeriod,
				Dimension:     dim,
				Key:           key,
				TotalCost:     decimal.Zero,
				Fields:        g.fields(row),
			})
		}
		summaries[i].TotalCost = summaries[i].TotalCost.Add(row.Cost)
	}

	slices.SortStableFunc(summaries, func(a, b domain.GroupSummary) int {
		return b.TotalCost.Cmp(a.TotalCost)
	})
	return summaries
}
