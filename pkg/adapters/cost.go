package adapters

import (
	"strings"
	"time"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var usageDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// MapUsageRecordToFlatRow projects a record onto a FlatRow. Missing tags,
// properties or meter details project to empty strings and zero amounts.
func MapUsageRecordToFlatRow(record domain.UsageRecord) domain.FlatRow {
	row := domain.FlatRow{
		CostCenter:  record.Tags[domain.TagCostCenter],
		Project:     record.Tags[domain.TagProject],
		Environment: record.Tags[domain.TagEnvironment],
	}

	p := record.Properties
	if p == nil {
		return row
	}

	row.Date = parseUsageDate(str(p.Date))
	row.ResourceName = str(p.ResourceName)
	row.ResourceGroup = str(p.ResourceGroup)
	row.ResourceLocation = str(p.ResourceLocation)
	row.ConsumedService = str(p.ConsumedService)
	row.Product = str(p.Product)
	row.Quantity = amount(p.Quantity)
	row.UnitPrice = amount(p.UnitPrice)
	row.Cost = amount(p.Cost)
	row.Currency = str(p.BillingCurrency)
	row.PartNumber = str(p.PartNumber)
	row.MeterID = str(p.MeterID)
	if p.MeterDetails != nil {
		row.UnitOfMeasure = str(p.MeterDetails.UnitOfMeasure)
	}

	return row
}

func MapUsageRecordsToFlatRows(records []domain.UsageRecord) []domain.FlatRow {
	return lo.Map(records, func(r domain.UsageRecord, _ int) domain.FlatRow {
		return MapUsageRecordToFlatRow(r)
	})
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amount(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// parseUsageDate returns the zero time when the value is empty or unparsable.
func parseUsageDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range usageDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
