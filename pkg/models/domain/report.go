package domain

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Dimension string

const (
	DimensionProject         Dimension = "project"
	DimensionResourceGroup   Dimension = "resourceGroup"
	DimensionResourceName    Dimension = "resourceName"
	DimensionConsumedService Dimension = "consumedService"
)

// Dimensions lists every grouping dimension in report order.
var Dimensions = []Dimension{
	DimensionProject,
	DimensionResourceGroup,
	DimensionResourceName,
	DimensionConsumedService,
}

// Field is a descriptive value carried along with a group summary.
type Field struct {
	Name  string
	Value string
}

// GroupSummary is the summed cost of all rows sharing one key within a dimension.
type GroupSummary struct {
	BillingPeriod string
	Dimension     Dimension
	Key           string
	TotalCost     decimal.Decimal
	Fields        []Field // taken from the first row of the group in sort order
}

// Field returns the carried value with the given name, or "" when absent.
func (s GroupSummary) Field(name string) string {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Aggregation holds the sorted flat rows and one summary list per dimension.
type Aggregation struct {
	BillingPeriod string
	Rows          []FlatRow
	Summaries     map[Dimension][]GroupSummary
}

// TotalCost sums the cost of every row.
func (a Aggregation) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, r := range a.Rows {
		total = total.Add(r.Cost)
	}
	return total
}

// Reconciliation compares the usage-record total of one account with the
// Cost Management total for the same period.
type Reconciliation struct {
	SubscriptionID string
	UsageTotal     decimal.Decimal
	QueryTotal     decimal.Decimal
	Difference     decimal.Decimal
	Matched        bool
	Error          *string
}

// BillingReport is everything the report writers consume.
type BillingReport struct {
	Period          BillingPeriod
	Aggregation     Aggregation
	Accounts        []AccountResult
	Reconciliations []Reconciliation
}

// Incomplete returns the accounts whose records were truncated by a fetch failure.
func (r *BillingReport) Incomplete() []AccountResult {
	return lo.Filter(r.Accounts, func(a AccountResult, _ int) bool { return !a.Complete })
}
