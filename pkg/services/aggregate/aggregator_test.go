package aggregate

import (
	"testing"
	"time"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var period = domain.BillingPeriod{Year: 2023, Month: time.January}

func ptr(s string) *string { return &s }

func cost(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

type recordFields struct {
	date, project, name, group, location, service, cost string
}

func record(s recordFields) domain.UsageRecord {
	tags := map[string]string{}
	if s.project != "" {
		tags[domain.TagProject] = s.project
	}
	return domain.UsageRecord{
		Tags: tags,
		Properties: &domain.UsageProperties{
			Date:             ptr(s.date),
			ResourceName:     ptr(s.name),
			ResourceGroup:    ptr(s.group),
			ResourceLocation: ptr(s.location),
			ConsumedService:  ptr(s.service),
			Cost:             cost(s.cost),
		},
	}
}

func scenario() []domain.UsageRecord {
	return []domain.UsageRecord{
		record(recordFields{date: "2023-01-02", project: "alpha", name: "vm1", group: "rg1", cost: "10.00"}),
		record(recordFields{date: "2023-01-01", project: "alpha", name: "vm2", group: "rg1", cost: "5.00"}),
		record(recordFields{date: "2023-01-03", project: "beta", name: "vm3", group: "rg2", cost: "20.00"}),
	}
}

func keysAndTotals(groups []domain.GroupSummary) ([]string, []string) {
	keys := make([]string, 0, len(groups))
	totals := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
		totals = append(totals, g.TotalCost.StringFixed(2))
	}
	return keys, totals
}

func TestAggregate_EndToEndScenario(t *testing.T) {
	agg := Aggregate(scenario(), period)

	require.Len(t, agg.Rows, 3)
	assert.Equal(t, "202301", agg.BillingPeriod)
	assert.Equal(t, "vm2", agg.Rows[0].ResourceName)
	assert.Equal(t, "vm1", agg.Rows[1].ResourceName)
	assert.Equal(t, "vm3", agg.Rows[2].ResourceName)

	keys, totals := keysAndTotals(agg.Summaries[domain.DimensionProject])
	assert.Equal(t, []string{"beta", "alpha"}, keys)
	assert.Equal(t, []string{"20.00", "15.00"}, totals)

	keys, totals = keysAndTotals(agg.Summaries[domain.DimensionResourceGroup])
	assert.Equal(t, []string{"rg2", "rg1"}, keys)
	assert.Equal(t, []string{"20.00", "15.00"}, totals)

	keys, _ = keysAndTotals(agg.Summaries[domain.DimensionResourceName])
	assert.Equal(t, []string{"vm3", "vm1", "vm2"}, keys)

	for _, g := range agg.Summaries[domain.DimensionProject] {
		assert.Equal(t, "202301", g.BillingPeriod)
		assert.Equal(t, domain.DimensionProject, g.Dimension)
	}
}

func TestAggregate_MissingProjectTagGroupsUnderEmptyKey(t *testing.T) {
	records := append(scenario(),
		record(recordFields{date: "2023-01-04", name: "vm4", group: "rg3", cost: "7.50"}),
		domain.UsageRecord{Properties: &domain.UsageProperties{Cost: cost("0.25")}},
	)

	agg := Aggregate(records, period)

	var empty *domain.GroupSummary
	for i, g := range agg.Summaries[domain.DimensionProject] {
		if g.Key == "" {
			empty = &agg.Summaries[domain.DimensionProject][i]
		}
	}
	require.NotNil(t, empty)
	assert.Equal(t, "7.75", empty.TotalCost.StringFixed(2))
}

func TestAggregate_GroupTotalsPartitionAllRows(t *testing.T) {
	records := []domain.UsageRecord{
		record(recordFields{date: "2023-01-01", project: "a", name: "x", group: "g1", service: "Microsoft.Compute", cost: "0.1"}),
		record(recordFields{date: "2023-01-01", project: "b", name: "y", group: "g1", service: "Microsoft.Storage", cost: "0.2"}),
		record(recordFields{date: "2023-01-02", project: "a", name: "x", group: "g2", service: "Microsoft.Compute", cost: "0.3"}),
		record(recordFields{date: "2023-01-02", project: "A", name: "z", group: "G1", service: "Microsoft.Sql", cost: "1234.5678"}),
		{Properties: &domain.UsageProperties{}},
	}

	agg := Aggregate(records, period)
	want := decimal.RequireFromString("1235.1678")
	require.True(t, want.Equal(agg.TotalCost()))

	for _, dim := range domain.Dimensions {
		t.Run(string(dim), func(t *testing.T) {
			total := decimal.Zero
			for _, g := range agg.Summaries[dim] {
				total = total.Add(g.TotalCost)
			}
			assert.True(t, want.Equal(total), "got %s", total)
		})
	}

	byProject := map[string]decimal.Decimal{}
	for _, g := range agg.Summaries[domain.DimensionProject] {
		byProject[g.Key] = g.TotalCost
	}
	assert.True(t, decimal.RequireFromString("0.4").Equal(byProject["a"]))
	assert.True(t, decimal.RequireFromString("1234.5678").Equal(byProject["A"]), "keys are case sensitive")

	// 0.1 + 0.2 must sum to exactly 0.3
	byGroup := map[string]decimal.Decimal{}
	for _, g := range agg.Summaries[domain.DimensionResourceGroup] {
		byGroup[g.Key] = g.TotalCost
	}
	assert.True(t, decimal.RequireFromString("0.3").Equal(byGroup["g1"]))
}

func TestGroupBy_TiesKeepPartitionOrder(t *testing.T) {
	rows := []domain.FlatRow{
		{ResourceGroup: "rg-c", Cost: decimal.NewFromInt(5)},
		{ResourceGroup: "rg-a", Cost: decimal.NewFromInt(5)},
		{ResourceGroup: "rg-big", Cost: decimal.NewFromInt(9)},
		{ResourceGroup: "rg-b", Cost: decimal.NewFromInt(5)},
	}

	first := GroupBy(rows, domain.DimensionResourceGroup, "202301")
	second := GroupBy(rows, domain.DimensionResourceGroup, "202301")

	keys, _ := keysAndTotals(first)
	assert.Equal(t, []string{"rg-big", "rg-c", "rg-a", "rg-b"}, keys)
	assert.Equal(t, first, second)
}

func TestGroupBy_CarriesFieldsFromFirstSortedRow(t *testing.T) {
	records := []domain.UsageRecord{
		record(recordFields{date: "2023-01-05", project: "p", name: "vm", group: "rg-late", location: "eastus", service: "svc-late", cost: "1"}),
		record(recordFields{date: "2023-01-01", project: "p", name: "vm", group: "rg-early", location: "westeurope", service: "svc-early", cost: "2"}),
	}

	for i := 0; i < 3; i++ {
		agg := Aggregate(records, period)

		byName := agg.Summaries[domain.DimensionResourceName]
		require.Len(t, byName, 1)
		assert.Equal(t, "rg-early", byName[0].Field(FieldResourceGroup))
		assert.Equal(t, "svc-early", byName[0].Field(FieldConsumedService))
		assert.Equal(t, "3", byName[0].TotalCost.String())

		byGroup := agg.Summaries[domain.DimensionResourceGroup]
		require.Len(t, byGroup, 2)
		assert.Equal(t, "rg-early", byGroup[0].Key)
		assert.Equal(t, "westeurope", byGroup[0].Field(FieldResourceLocation))

		byService := agg.Summaries[domain.DimensionConsumedService]
		require.Len(t, byService, 2)
		assert.Empty(t, byService[0].Fields)
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	records := scenario()
	before := *records[0].Properties.ResourceName

	_ = Aggregate(records, period)

	assert.Equal(t, before, *records[0].Properties.ResourceName)
	assert.Equal(t, "vm1", *records[0].Properties.ResourceName)
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil, period)

	assert.Empty(t, agg.Rows)
	for _, dim := range domain.Dimensions {
		assert.Empty(t, agg.Summaries[dim])
	}
	assert.True(t, agg.TotalCost().IsZero())
}

func TestSortRows_UsesProjectThenResourceName(t *testing.T) {
	day := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.FlatRow{
		{Date: day, Project: "b", ResourceName: "a"},
		{Date: day, Project: "a", ResourceName: "z"},
		{Date: day, Project: "a", ResourceName: "m"},
		{Date: day.AddDate(0, 0, -1), Project: "z", ResourceName: "z"},
	}

	SortRows(rows)

	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.Project+"/"+r.ResourceName)
	}
	assert.Equal(t, []string{"z/z", "a/m", "a/z", "b/a"}, got)
}
