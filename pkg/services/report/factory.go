package report

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/de-tools/billing-report/pkg/services/config"
	"github.com/de-tools/billing-report/pkg/services/cost/azure"
	"github.com/de-tools/billing-report/pkg/services/cost/azure/analyzers"
	"github.com/de-tools/billing-report/pkg/services/cost/azure/consumption"
	"github.com/shopspring/decimal"
)

// Factory creates a Generator from resolved settings and an Azure profile.
type Factory func(settings *config.Settings, profile *azure.Profile) (Generator, error)

// NewAzureFactory returns a Factory backed by the Consumption usageDetails API
// and, when reconcile.enabled is set, the Cost Management query API.
// A nil client uses the fetcher default.
func NewAzureFactory(client *http.Client) Factory {
	return func(settings *config.Settings, profile *azure.Profile) (Generator, error) {
		cred, err := azure.NewCredential(profile)
		if err != nil {
			return nil, err
		}

		fetcher, err := consumption.NewFetcher(
			settings.ConsumptionConfig(),
			azure.NewTokenProvider(cred, settings.Azure.Endpoint),
			client,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create usage fetcher: %w", err)
		}

		if !settings.Reconcile.Enabled {
			return NewService(fetcher, nil), nil
		}

		tolerance, err := decimal.NewFromString(settings.Reconcile.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("invalid reconcile.tolerance %q: %w", settings.Reconcile.Tolerance, err)
		}
		clients, err := armcostmanagement.NewClientFactory(cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cost management client: %w", err)
		}
		reconciler := analyzers.NewReconciler(analyzers.NewQueryClient(clients), tolerance)

		return NewService(fetcher, reconciler), nil
	}
}

// LoadProfile resolves the profile file from the settings. A missing file at the
// default location yields an empty profile that authenticates through the Azure CLI.
func LoadProfile(settings *config.Settings, name string) (*azure.Profile, error) {
	if name == "" {
		name = settings.Azure.Profile
	}

	path := settings.Azure.ProfilePath
	if path == "" {
		defaultPath, err := azure.DefaultProfilePath()
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(defaultPath); errors.Is(err, fs.ErrNotExist) {
			return &azure.Profile{Name: name}, nil
		}
		path = defaultPath
	}

	return azure.LoadProfile(path, name)
}

// Subscriptions picks the account set: explicit values first, then the
// settings, then the profile.
func Subscriptions(explicit []string, settings *config.Settings, profile *azure.Profile) []string {
	switch {
	case len(explicit) > 0:
		return explicit
	case len(settings.Azure.Subscriptions) > 0:
		return settings.Azure.Subscriptions
	default:
		return profile.Subscriptions
	}
}
