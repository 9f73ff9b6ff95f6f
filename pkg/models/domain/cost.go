package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tag keys pulled to the top level of a FlatRow.
const (
	TagCostCenter  = "cost-center"
	TagProject     = "project"
	TagEnvironment = "environment"
)

// UsageRecord is one usageDetails line item as returned by the Consumption API.
// Every nested field is optional: absence is a nil pointer or an invalid NullDecimal.
type UsageRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Tags       map[string]string `json:"tags"`
	Properties *UsageProperties  `json:"properties"`
}

type UsageProperties struct {
	Date             *string             `json:"date"`
	ResourceName     *string             `json:"resourceName"`
	ResourceGroup    *string             `json:"resourceGroup"`
	ResourceLocation *string             `json:"resourceLocation"`
	ConsumedService  *string             `json:"consumedService"`
	Product          *string             `json:"product"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	MeterDetails     *MeterDetails       `json:"meterDetails"`
	UnitPrice        decimal.NullDecimal `json:"unitPrice"`
	Cost             decimal.NullDecimal `json:"cost"`
	BillingCurrency  *string             `json:"billingCurrency"`
	PartNumber       *string             `json:"partNumber"`
	MeterID          *string             `json:"meterId"`
}

type MeterDetails struct {
	UnitOfMeasure *string `json:"unitOfMeasure"`
}

// FlatRow is a UsageRecord with nested properties and tags pulled to the top level.
type FlatRow struct {
	Date             time.Time
	ResourceName     string
	ResourceGroup    string
	ResourceLocation string
	ConsumedService  string
	Product          string
	Quantity         decimal.Decimal
	UnitOfMeasure    string
	UnitPrice        decimal.Decimal
	Cost             decimal.Decimal
	Currency         string
	PartNumber       string
	MeterID          string
	CostCenter       string
	Project          string
	Environment      string
}
