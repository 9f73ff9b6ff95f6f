package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/de-tools/billing-report/pkg/services/cost/azure/consumption"
	"github.com/spf13/viper"
)

const EnvPrefix = "BILLING"

type Settings struct {
	Azure     AzureSettings     `mapstructure:"azure"`
	Fetch     FetchSettings     `mapstructure:"fetch"`
	Reconcile ReconcileSettings `mapstructure:"reconcile"`
	Report    ReportSettings    `mapstructure:"report"`
	Log       LogSettings       `mapstructure:"log"`
	Server    ServerSettings    `mapstructure:"server"`
}

type AzureSettings struct {
	Endpoint      string   `mapstructure:"endpoint"`
	APIVersion    string   `mapstructure:"api_version"`
	Profile       string   `mapstructure:"profile"`
	ProfilePath   string   `mapstructure:"profile_path"`
	Subscriptions []string `mapstructure:"subscriptions"`
}

type FetchSettings struct {
	MaxPages       int           `mapstructure:"max_pages"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	OnFailure      string        `mapstructure:"on_failure"`
}

type ReconcileSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	Tolerance string `mapstructure:"tolerance"`
}

type ReportSettings struct {
	// Output may contain {period}, replaced by the YYYYMM billing period.
	Output string `mapstructure:"output"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Load reads the optional settings file and BILLING_* environment variables
// on top of the defaults. An empty path skips the file.
func Load(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("azure.endpoint", consumption.DefaultEndpoint)
	v.SetDefault("azure.api_version", consumption.DefaultAPIVersion)
	v.SetDefault("azure.profile", "default")
	v.SetDefault("azure.profile_path", "")
	v.SetDefault("azure.subscriptions", []string{})
	v.SetDefault("fetch.max_pages", consumption.DefaultMaxPages)
	v.SetDefault("fetch.request_timeout", consumption.DefaultRequestTimeout)
	v.SetDefault("fetch.on_failure", string(domain.FailurePolicyContinue))
	v.SetDefault("reconcile.enabled", false)
	v.SetDefault("reconcile.tolerance", "0.01")
	v.SetDefault("report.output", "billing-{period}.xlsx")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch domain.FailurePolicy(s.Fetch.OnFailure) {
	case domain.FailurePolicyContinue, domain.FailurePolicyAbort:
	default:
		return fmt.Errorf("fetch.on_failure must be %q or %q, got %q",
			domain.FailurePolicyContinue, domain.FailurePolicyAbort, s.Fetch.OnFailure)
	}
	if s.Fetch.MaxPages <= 0 {
		return fmt.Errorf("fetch.max_pages must be positive, got %d", s.Fetch.MaxPages)
	}
	if s.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("fetch.request_timeout must be positive, got %s", s.Fetch.RequestTimeout)
	}
	return nil
}

// ConsumptionConfig maps the settings onto the fetcher configuration.
func (s *Settings) ConsumptionConfig() consumption.Config {
	return consumption.Config{
		Endpoint:       s.Azure.Endpoint,
		APIVersion:     s.Azure.APIVersion,
		MaxPages:       s.Fetch.MaxPages,
		RequestTimeout: s.Fetch.RequestTimeout,
		OnFailure:      domain.FailurePolicy(s.Fetch.OnFailure),
	}
}

// OutputPath expands {period} in the configured report path.
func (s *Settings) OutputPath(period domain.BillingPeriod) string {
	return strings.ReplaceAll(s.Report.Output, "{period}", period.ID())
}
