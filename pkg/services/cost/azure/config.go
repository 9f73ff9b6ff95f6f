package azure

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"gopkg.in/ini.v1"
)

const (
	DefaultProfile     = "default"
	DefaultProfileFile = "billing.ini"
)

// Profile is one section of the billing profile file.
type Profile struct {
	Name          string
	Subscriptions []string
	TenantID      string
	ClientID      string
	ClientSecret  string
}

// DefaultProfilePath returns ~/.azure/billing.ini.
func DefaultProfilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".azure", DefaultProfileFile), nil
}

func LoadProfile(path, profile string) (*Profile, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load Azure profile file: %w", err)
	}

	section, err := cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found in %s: %w", profile, path, err)
	}

	p := &Profile{
		Name:          profile,
		Subscriptions: splitList(section.Key("subscriptions").String()),
		TenantID:      section.Key("tenant").String(),
		ClientID:      section.Key("client_id").String(),
		ClientSecret:  section.Key("client_secret").String(),
	}

	if p.ClientSecret != "" && (p.TenantID == "" || p.ClientID == "") {
		return nil, fmt.Errorf("profile %s: client_secret requires tenant and client_id", profile)
	}
	return p, nil
}

// NewCredential picks a service principal credential when the profile carries
// a client secret and falls back to the Azure CLI login otherwise.
func NewCredential(p *Profile) (azcore.TokenCredential, error) {
	if p.ClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(p.TenantID, p.ClientID, p.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}
		return cred, nil
	}

	cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
		TenantID: p.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure CLI credential: %w", err)
	}
	return cred, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
