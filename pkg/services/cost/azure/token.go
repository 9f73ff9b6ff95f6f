package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// TokenProvider hands out bearer tokens for the Azure Resource Manager audience.
type TokenProvider struct {
	cred  azcore.TokenCredential
	scope string
}

// NewTokenProvider requests tokens for endpoint + "/.default".
func NewTokenProvider(cred azcore.TokenCredential, endpoint string) *TokenProvider {
	return &TokenProvider{
		cred:  cred,
		scope: strings.TrimRight(endpoint, "/") + "/.default",
	}
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{p.scope}})
	if err != nil {
		return "", fmt.Errorf("get token for %s: %w", p.scope, err)
	}
	if tok.Token == "" {
		return "", fmt.Errorf("empty token for %s", p.scope)
	}
	return tok.Token, nil
}
