package main

import (
	"fmt"
	"net"
	"os"

	"github.com/de-tools/billing-report/pkg/server"
	"github.com/de-tools/billing-report/pkg/services/config"
	"github.com/de-tools/billing-report/pkg/services/report"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	profile string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for billing reports",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the settings file")
	rootCmd.Flags().StringVar(&profile, "profile", "", "Azure profile name")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(settings.Log, os.Stdout)
	if err != nil {
		return err
	}

	azureProfile, err := report.LoadProfile(settings, profile)
	if err != nil {
		return fmt.Errorf("failed to load Azure profile: %w", err)
	}

	generator, err := report.NewAzureFactory(nil)(settings, azureProfile)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	subscriptions := report.Subscriptions(nil, settings, azureProfile)
	logger.Info().
		Str("profile", azureProfile.Name).
		Strs("subscriptions", subscriptions).
		Msg("Azure profile loaded")

	if settings.Server.Port == "" {
		return fmt.Errorf("missing server.port, set BILLING_SERVER_PORT in the environment or .env file")
	}

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr: net.JoinHostPort(settings.Server.Host, settings.Server.Port),
		Dependencies: server.Dependencies{
			Generator:     generator,
			Subscriptions: subscriptions,
		},
	})

	return webAPI.Start(cmd.Context())
}
