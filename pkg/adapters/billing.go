package adapters

import (
	"github.com/de-tools/billing-report/pkg/models/api"
	"github.com/de-tools/billing-report/pkg/models/domain"
)

func MapBillingReportDomainToApi(report *domain.BillingReport) api.BillingSummary {
	summary := api.BillingSummary{
		BillingPeriod: report.Period.ID(),
		TotalCost:     report.Aggregation.TotalCost(),
		Complete:      len(report.Incomplete()) == 0,
		Accounts:      make([]api.AccountStatus, 0, len(report.Accounts)),
		Summaries:     make(map[string][]api.GroupSummary, len(domain.Dimensions)),
	}

	for _, a := range report.Accounts {
		summary.Accounts = append(summary.Accounts, MapAccountResultDomainToApi(a))
	}

	for _, dim := range domain.Dimensions {
		groups := report.Aggregation.Summaries[dim]
		out := make([]api.GroupSummary, 0, len(groups))
		for _, g := range groups {
			out = append(out, MapGroupSummaryDomainToApi(g))
		}
		summary.Summaries[string(dim)] = out
	}

	for _, r := range report.Reconciliations {
		summary.Reconciliations = append(summary.Reconciliations, api.Reconciliation{
			SubscriptionID: r.SubscriptionID,
			UsageTotal:     r.UsageTotal,
			QueryTotal:     r.QueryTotal,
			Difference:     r.Difference,
			Matched:        r.Matched,
			Error:          r.Error,
		})
	}

	return summary
}

func MapGroupSummaryDomainToApi(g domain.GroupSummary) api.GroupSummary {
	out := api.GroupSummary{
		Key:       g.Key,
		TotalCost: g.TotalCost,
	}
	if len(g.Fields) > 0 {
		out.Fields = make(map[string]string, len(g.Fields))
		for _, f := range g.Fields {
			out.Fields[f.Name] = f.Value
		}
	}
	return out
}

func MapAccountResultDomainToApi(a domain.AccountResult) api.AccountStatus {
	return api.AccountStatus{
		SubscriptionID: a.SubscriptionID,
		Records:        a.Records,
		Pages:          a.Pages,
		TotalCost:      a.TotalCost,
		Complete:       a.Complete,
		Reason:         a.Reason,
	}
}

func MapUsageResponseDomainToApi(report *domain.BillingReport) api.UsageResponse {
	rows := make([]api.UsageRow, 0, len(report.Aggregation.Rows))
	for _, r := range report.Aggregation.Rows {
		rows = append(rows, api.UsageRow{
			Date:             r.Date,
			ResourceName:     r.ResourceName,
			ResourceGroup:    r.ResourceGroup,
			ResourceLocation: r.ResourceLocation,
			ConsumedService:  r.ConsumedService,
			Product:          r.Product,
			Quantity:         r.Quantity,
			UnitOfMeasure:    r.UnitOfMeasure,
			UnitPrice:        r.UnitPrice,
			Cost:             r.Cost,
			Currency:         r.Currency,
			PartNumber:       r.PartNumber,
			MeterID:          r.MeterID,
			CostCenter:       r.CostCenter,
			Project:          r.Project,
			Environment:      r.Environment,
		})
	}

	return api.UsageResponse{
		BillingPeriod: report.Period.ID(),
		Complete:      len(report.Incomplete()) == 0,
		Rows:          rows,
	}
}
