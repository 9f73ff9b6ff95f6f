package export

import (
	"bytes"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/de-tools/billing-report/pkg/services/aggregate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(s string) *string { return &s }

func sampleReport() *domain.BillingReport {
	period := domain.BillingPeriod{Year: 2023, Month: time.January}
	rec := func(date, project, name, group, service, cost string) domain.UsageRecord {
		return domain.UsageRecord{
			Tags: map[string]string{domain.TagProject: project, domain.TagCostCenter: "cc-" + project},
			Properties: &domain.UsageProperties{
				Date:            ptr(date),
				ResourceName:    ptr(name),
				ResourceGroup:   ptr(group),
				ConsumedService: ptr(service),
				Cost:            decimal.NewNullDecimal(decimal.RequireFromString(cost)),
			},
		}
	}
	records := []domain.UsageRecord{
		rec("2023-01-02", "alpha", "vm1", "rg1", "Microsoft.Compute", "10.00"),
		rec("2023-01-01", "alpha", "vm2", "rg1", "Microsoft.Compute", "5.00"),
		rec("2023-01-03", "beta", "vm3", "rg2", "Microsoft.Storage", "20.00"),
	}

	return &domain.BillingReport{
		Period:      period,
		Aggregation: aggregate.Aggregate(records, period),
		Accounts: []domain.AccountResult{
			{SubscriptionID: "sub-a", Records: 3, Pages: 1, TotalCost: decimal.RequireFromString("35"), Complete: true},
			{SubscriptionID: "sub-b", Records: 0, Pages: 0, Complete: false, Reason: "usage details request failed: 429"},
		},
	}
}

func TestWorkbookWriter_Handle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWorkbookWriter(&buf).Handle(sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"Usage", "By Project", "By Resource Group", "By Resource", "By Service", "Accounts",
	}, f.GetSheetList())

	usage, err := f.GetRows(SheetUsage)
	require.NoError(t, err)
	require.Len(t, usage, 4)
	assert.Equal(t, "Date", usage[0][0])
	assert.Equal(t, "2023-01-01", usage[1][0])
	assert.Equal(t, "vm2", usage[1][1])

	byProject, err := f.GetRows(SummarySheet(domain.DimensionProject))
	require.NoError(t, err)
	require.Len(t, byProject, 3)
	assert.Equal(t, []string{"Billing Period", "project", "costCenter", "environment", "Total Cost"}, byProject[0])
	assert.Equal(t, []string{"202301", "beta", "cc-beta"}, byProject[1][:3])
	assert.Equal(t, "20", byProject[1][len(byProject[1])-1])
	assert.Equal(t, "alpha", byProject[2][1])
	assert.Equal(t, "15", byProject[2][len(byProject[2])-1])

	byService, err := f.GetRows(SummarySheet(domain.DimensionConsumedService))
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing Period", "consumedService", "Total Cost"}, byService[0])

	accounts, err := f.GetRows(SheetAccounts)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "sub-b", accounts[2][0])
	assert.Equal(t, "FALSE", accounts[2][4])
}

func TestWorkbookWriter_EmptyReport(t *testing.T) {
	report := &domain.BillingReport{
		Period:      domain.BillingPeriod{Year: 2023, Month: time.January},
		Aggregation: aggregate.Aggregate(nil, domain.BillingPeriod{Year: 2023, Month: time.January}),
	}

	var buf bytes.Buffer
	require.NoError(t, NewWorkbookWriter(&buf).Handle(report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 6)
}

func TestReporter_Handle(t *testing.T) {
	report := sampleReport()
	msg := "throttled"
	report.Reconciliations = []domain.Reconciliation{
		{SubscriptionID: "sub-a", UsageTotal: decimal.NewFromInt(35), QueryTotal: decimal.NewFromInt(36), Difference: decimal.NewFromInt(-1)},
		{SubscriptionID: "sub-c", Error: &msg},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Handle(report))
	out := buf.String()

	assert.Contains(t, out, "Billing Report 202301")
	assert.Contains(t, out, "Total Cost: 35.00")
	assert.Contains(t, out, "WARNING: usage data is incomplete")
	assert.Contains(t, out, "sub-b (0 records, 0 pages): usage details request failed: 429")
	assert.Contains(t, out, "=== Cost by Project (2 groups) ===")
	assert.Contains(t, out, "costCenter=cc-beta")
	assert.Contains(t, out, "MISMATCH (-1.00)")
	assert.Contains(t, out, "sub-c: query failed: throttled")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("| beta")), bytes.Index(buf.Bytes(), []byte("| alpha")))
}

func TestReporter_TopN(t *testing.T) {
	report := sampleReport()
	r := NewReporter(&bytes.Buffer{})
	r.config.TopN = 1

	v := r.view(report)

	require.Len(t, v.Sections, 4)
	assert.Len(t, v.Sections[0].Groups, 1)
	assert.Equal(t, 2, v.Sections[0].Total)
	require.Len(t, v.Incomplete, 1)
	assert.Equal(t, "sub-b", v.Incomplete[0].SubscriptionID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
	assert.Equal(t, "Zürich", truncate("Zürich", 6))
	assert.Equal(t, "Zür...", truncate("Zürich-West", 6))
	assert.Equal(t, "日本", truncate("日本語", 2))
	assert.True(t, utf8.ValidString(truncate("résumé-östersund", 8)))
}

func TestReporter_PadsNonASCIIKeysByRune(t *testing.T) {
	r := NewReporter(&bytes.Buffer{})
	r.config = TableConfig{KeyWidth: 8, CostWidth: 6, FieldsWidth: 6}

	var buf bytes.Buffer
	r.writer = &buf
	report := sampleReport()
	report.Aggregation.Summaries[domain.DimensionProject][0].Key = "Zürich-West"
	require.NoError(t, r.Handle(report))

	assert.Contains(t, buf.String(), "| Züric... |")
}
