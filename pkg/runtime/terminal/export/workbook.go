package export

import (
	"fmt"
	"io"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetUsage    = "Usage"
	SheetAccounts = "Accounts"
)

var summarySheets = map[domain.Dimension]string{
	domain.DimensionProject:         "By Project",
	domain.DimensionResourceGroup:   "By Resource Group",
	domain.DimensionResourceName:    "By Resource",
	domain.DimensionConsumedService: "By Service",
}

// SummarySheet returns the sheet name used for a dimension.
func SummarySheet(dim domain.Dimension) string {
	return summarySheets[dim]
}

var usageHeader = []any{
	"Date", "Resource Name", "Resource Group", "Resource Location", "Consumed Service", "Product",
	"Quantity", "Unit Of Measure", "Unit Price", "Cost", "Currency", "Part Number", "Meter ID",
	"Cost Center", "Project", "Environment",
}

var accountsHeader = []any{"Subscription", "Records", "Pages", "Total Cost", "Complete", "Reason"}

// WorkbookWriter renders a billing report as a multi-sheet xlsx workbook.
type WorkbookWriter struct {
	writer io.Writer
}

func NewWorkbookWriter(writer io.Writer) *WorkbookWriter {
	return &WorkbookWriter{writer: writer}
}

func (w *WorkbookWriter) Handle(report *domain.BillingReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetUsage); err != nil {
		return fmt.Errorf("failed to rename default sheet: %w", err)
	}
	if err := writeUsageSheet(f, report.Aggregation.Rows); err != nil {
		return err
	}

	for _, dim := range domain.Dimensions {
		if err := writeSummarySheet(f, dim, report.Aggregation.Summaries[dim]); err != nil {
			return err
		}
	}

	if err := writeAccountsSheet(f, report.Accounts); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w.writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeUsageSheet(f *excelize.File, rows []domain.FlatRow) error {
	table := make([][]any, 0, len(rows)+1)
	table = append(table, usageHeader)
	for _, r := range rows {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format("2006-01-02")
		}
		table = append(table, []any{
			date, r.ResourceName, r.ResourceGroup, r.ResourceLocation, r.ConsumedService, r.Product,
			number(r.Quantity), r.UnitOfMeasure, number(r.UnitPrice), number(r.Cost), r.Currency,
			r.PartNumber, r.MeterID, r.CostCenter, r.Project, r.Environment,
		})
	}
	return writeTable(f, SheetUsage, table)
}

func writeSummarySheet(f *excelize.File, dim domain.Dimension, groups []domain.GroupSummary) error {
	sheet := SummarySheet(dim)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []any{"Billing Period", string(dim)}
	var fieldNames []string
	if len(groups) > 0 {
		for _, fl := range groups[0].Fields {
			fieldNames = append(fieldNames, fl.Name)
			header = append(header, fl.Name)
		}
	}
	header = append(header, "Total Cost")

	table := make([][]any, 0, len(groups)+1)
	table = append(table, header)
	for _, g := range groups {
		row := []any{g.BillingPeriod, g.Key}
		for _, name := range fieldNames {
			row = append(row, g.Field(name))
		}
		row = append(row, number(g.TotalCost))
		table = append(table, row)
	}
	return writeTable(f, sheet, table)
}

func writeAccountsSheet(f *excelize.File, accounts []domain.AccountResult) error {
	if _, err := f.NewSheet(SheetAccounts); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetAccounts, err)
	}

	table := make([][]any, 0, len(accounts)+1)
	table = append(table, accountsHeader)
	for _, a := range accounts {
		table = append(table, []any{a.SubscriptionID, a.Records, a.Pages, number(a.TotalCost), a.Complete, a.Reason})
	}
	return writeTable(f, SheetAccounts, table)
}

func writeTable(f *excelize.File, sheet string, table [][]any) error {
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// number converts for display only; sums are computed in decimal before this point.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
