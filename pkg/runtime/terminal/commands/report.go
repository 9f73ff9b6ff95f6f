package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/de-tools/billing-report/pkg/runtime/terminal/export"
	"github.com/de-tools/billing-report/pkg/services/config"
	"github.com/de-tools/billing-report/pkg/services/report"
	"github.com/spf13/cobra"
)

type ReportCmd struct {
	period        string
	subscriptions []string
	outputPath    string
	configPath    string
	profile       string
	reconcile     bool
	failOnPartial bool

	factory   report.Factory
	output    io.Writer
	logOutput io.Writer
}

func NewReportCmd(factory report.Factory, output, logOutput io.Writer) *cobra.Command {
	rc := &ReportCmd{factory: factory, output: output, logOutput: logOutput}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the billing report for one month",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.period, "period", "", "Billing period as YYYYMM (default is the previous month)")
	cmd.Flags().StringArrayVar(&rc.subscriptions, "subscription", nil, "Subscription ID, repeatable (default is the profile's set)")
	cmd.Flags().StringVarP(&rc.outputPath, "output", "o", "", "Workbook path, {period} is expanded")
	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Path to the settings file")
	cmd.Flags().StringVar(&rc.profile, "profile", "", "Azure profile name")
	cmd.Flags().BoolVar(&rc.reconcile, "reconcile", false, "Cross-check totals against Cost Management")
	cmd.Flags().BoolVar(&rc.failOnPartial, "fail-on-partial", false, "Exit with an error when any subscription is incomplete")

	return cmd
}

func (rc *ReportCmd) run(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(rc.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("reconcile") {
		settings.Reconcile.Enabled = rc.reconcile
	}
	if rc.outputPath != "" {
		settings.Report.Output = rc.outputPath
	}

	period := domain.PreviousBillingPeriod(time.Now())
	if rc.period != "" {
		if period, err = domain.ParseBillingPeriod(rc.period); err != nil {
			return err
		}
	}

	logger, err := config.NewLogger(settings.Log, rc.logOutput)
	if err != nil {
		return err
	}
	ctx := logger.WithContext(cmd.Context())

	profile, err := report.LoadProfile(settings, rc.profile)
	if err != nil {
		return err
	}
	subscriptions := report.Subscriptions(rc.subscriptions, settings, profile)
	if len(subscriptions) == 0 {
		return fmt.Errorf("no subscriptions given and profile %q lists none", profile.Name)
	}

	generator, err := rc.factory(settings, profile)
	if err != nil {
		return err
	}

	billingReport, genErr := generator.Generate(ctx, report.Request{
		Period:        period,
		Subscriptions: subscriptions,
		FailOnPartial: rc.failOnPartial,
	})
	if billingReport == nil {
		var fetchErr *domain.FetchError
		if errors.As(genErr, &fetchErr) {
			for _, a := range fetchErr.Accounts {
				logger.Error().
					Str("subscription", a.SubscriptionID).
					Int("records", a.Records).
					Int("pages", a.Pages).
					Bool("complete", a.Complete).
					Str("reason", a.Reason).
					Msg("fetch stopped, no report written")
			}
		}
		return genErr
	}

	path := settings.OutputPath(period)
	if err := writeWorkbook(path, billingReport); err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("workbook written")

	if err := export.NewReporter(rc.output).Handle(billingReport); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	return genErr
}

func writeWorkbook(path string, billingReport *domain.BillingReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook file: %w", err)
	}

	if err := export.NewWorkbookWriter(f).Handle(billingReport); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
