package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/billing-report/pkg/models/domain"
)

type TableConfig struct {
	KeyWidth    int
	CostWidth   int
	FieldsWidth int
	// TopN limits rows per dimension; 0 prints every group.
	TopN int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		KeyWidth:    40,
		CostWidth:   16,
		FieldsWidth: 54,
		TopN:        10,
	}
}

// Reporter prints billing summaries to the console as text tables.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type section struct {
	Title  string
	Groups []domain.GroupSummary
	Total  int
}

type view struct {
	Period          string
	TotalCost       string
	Rows            int
	Sections        []section
	Incomplete      []domain.AccountResult
	Reconciliations []domain.Reconciliation
}

func (c *Reporter) Handle(report *domain.BillingReport) error {
	funcMap := template.FuncMap{
		"formatRow": func(key, cost, fields string) string {
			return fmt.Sprintf("| %-*s | %*s | %-*s |",
				c.config.KeyWidth, truncate(key, c.config.KeyWidth),
				c.config.CostWidth, cost,
				c.config.FieldsWidth, truncate(fields, c.config.FieldsWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+",
				strings.Repeat("-", c.config.KeyWidth+2),
				strings.Repeat("-", c.config.CostWidth+2),
				strings.Repeat("-", c.config.FieldsWidth+2))
		},
		"keyOf": func(key string) string {
			if key == "" {
				return "(none)"
			}
			return key
		},
		"fieldsOf": func(fields []domain.Field) string {
			parts := make([]string, 0, len(fields))
			for _, f := range fields {
				if f.Value != "" {
					parts = append(parts, f.Name+"="+f.Value)
				}
			}
			return strings.Join(parts, ", ")
		},
	}

	tmpl := `
Billing Report {{.Period}}
Usage Rows: {{.Rows}}
Total Cost: {{.TotalCost}}
{{if .Incomplete}}
WARNING: usage data is incomplete, totals are under-reported for:
{{range .Incomplete}}  - {{.SubscriptionID}} ({{.Records}} records, {{.Pages}} pages): {{.Reason}}
{{end}}{{end}}
{{range .Sections}}
=== {{.Title}} ({{.Total}} groups) ===
{{separator}}
{{formatRow "Key" "Total Cost" "Details"}}
{{separator}}
{{range .Groups}}{{formatRow (keyOf .Key) (.TotalCost.StringFixed 2) (fieldsOf .Fields)}}
{{end}}{{separator}}
{{end}}{{if .Reconciliations}}
=== Reconciliation ===
{{range .Reconciliations}}{{if .Error}}  - {{.SubscriptionID}}: query failed: {{.Error}}
{{else}}  - {{.SubscriptionID}}: usage {{.UsageTotal.StringFixed 2}}, cost management {{.QueryTotal.StringFixed 2}}{{if not .Matched}} MISMATCH ({{.Difference.StringFixed 2}}){{end}}
{{end}}{{end}}{{end}}`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, c.view(report))
}

func (c *Reporter) view(report *domain.BillingReport) view {
	v := view{
		Period:          report.Period.ID(),
		TotalCost:       report.Aggregation.TotalCost().StringFixed(2),
		Rows:            len(report.Aggregation.Rows),
		Incomplete:      report.Incomplete(),
		Reconciliations: report.Reconciliations,
	}

	titles := map[domain.Dimension]string{
		domain.DimensionProject:         "Cost by Project",
		domain.DimensionResourceGroup:   "Cost by Resource Group",
		domain.DimensionResourceName:    "Cost by Resource",
		domain.DimensionConsumedService: "Cost by Service",
	}
	for _, dim := range domain.Dimensions {
		groups := report.Aggregation.Summaries[dim]
		shown := groups
		if c.config.TopN > 0 && len(shown) > c.config.TopN {
			shown = shown[:c.config.TopN]
		}
		v.Sections = append(v.Sections, section{Title: titles[dim], Groups: shown, Total: len(groups)})
	}
	return v
}

// truncate cuts on rune boundaries; fmt width padding also counts runes.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
