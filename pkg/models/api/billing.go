package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type GroupSummary struct {
	Key       string            `json:"key"`
	TotalCost decimal.Decimal   `json:"total_cost"`
	Fields    map[string]string `json:"fields,omitempty"`
}

type AccountStatus struct {
	SubscriptionID string          `json:"subscription_id"`
	Records        int             `json:"records"`
	Pages          int             `json:"pages"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Complete       bool            `json:"complete"`
	Reason         string          `json:"reason,omitempty"`
}

type Reconciliation struct {
	SubscriptionID string          `json:"subscription_id"`
	UsageTotal     decimal.Decimal `json:"usage_total"`
	QueryTotal     decimal.Decimal `json:"query_total"`
	Difference     decimal.Decimal `json:"difference"`
	Matched        bool            `json:"matched"`
	Error          *string         `json:"error,omitempty"`
}

type BillingSummary struct {
	BillingPeriod   string                    `json:"billing_period"`
	TotalCost       decimal.Decimal           `json:"total_cost"`
	Complete        bool                      `json:"complete"`
	Accounts        []AccountStatus           `json:"accounts"`
	Summaries       map[string][]GroupSummary `json:"summaries"`
	Reconciliations []Reconciliation          `json:"reconciliations,omitempty"`
}

type UsageRow struct {
	Date             time.Time       `json:"date"`
	ResourceName     string          `json:"resource_name"`
	ResourceGroup    string          `json:"resource_group"`
	ResourceLocation string          `json:"resource_location"`
	ConsumedService  string          `json:"consumed_service"`
	Product          string          `json:"product"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitOfMeasure    string          `json:"unit_of_measure"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Cost             decimal.Decimal `json:"cost"`
	Currency         string          `json:"currency"`
	PartNumber       string          `json:"part_number"`
	MeterID          string          `json:"meter_id"`
	CostCenter       string          `json:"cost_center"`
	Project          string          `json:"project"`
	Environment      string          `json:"environment"`
}

type UsageResponse struct {
	BillingPeriod string     `json:"billing_period"`
	Complete      bool       `json:"complete"`
	Rows          []UsageRow `json:"rows"`
}

type Error struct {
	Message string `json:"message"`
	// Accounts lists how far the fetch got before a fatal failure.
	Accounts []AccountStatus `json:"accounts,omitempty"`
}
