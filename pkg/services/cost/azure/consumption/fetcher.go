// Package consumption paginates the Azure Consumption usageDetails API for one
// billing period across a list of subscriptions.
//
// Subscriptions and pages are fetched sequentially. A failed page either marks
// the subscription partial and moves on, or aborts the run, depending on
// Config.OnFailure. Exceeding Config.MaxPages always aborts.
package consumption

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultEndpoint       = "https://management.azure.com"
	DefaultAPIVersion     = "2021-10-01"
	DefaultMaxPages       = 1000
	DefaultRequestTimeout = 30 * time.Second

	maxErrorBody = 512
)

type Config struct {
	Endpoint       string
	APIVersion     string
	MaxPages       int
	RequestTimeout time.Duration
	OnFailure      domain.FailurePolicy
}

// TokenProvider supplies the bearer token attached to every request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("usage details request failed: %d %s", e.StatusCode, e.Body)
}

type page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"nextLink"`
}

// recordHeader is what survives of a record whose properties fail to decode.
type recordHeader struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Tags map[string]string `json:"tags"`
}

type Fetcher struct {
	config   Config
	endpoint *url.URL
	tokens   TokenProvider
	client   *http.Client
}

// NewFetcher fills zero Config fields with defaults. A nil client uses a plain
// http.Client; request deadlines come from Config.RequestTimeout.
func NewFetcher(cfg Config, tokens TokenProvider, client *http.Client) (*Fetcher, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token provider is nil")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	switch cfg.OnFailure {
	case "":
		cfg.OnFailure = domain.FailurePolicyContinue
	case domain.FailurePolicyContinue, domain.FailurePolicyAbort:
	default:
		return nil, fmt.Errorf("unknown failure policy %q", cfg.OnFailure)
	}

	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme and host are required", cfg.Endpoint)
	}

	if client == nil {
		client = &http.Client{}
	}

	return &Fetcher{
		config:   cfg,
		endpoint: endpoint,
		tokens:   tokens,
		client:   client,
	}, nil
}

// Fetch returns every usage record of the period for all subscriptions, in
// arrival order. A token is requested once per subscription. A non-nil result is
// returned alongside authentication, page-limit and abort errors so callers can
// report how far the fetch got.
func (f *Fetcher) Fetch(ctx context.Context, subscriptions []string, period domain.BillingPeriod) (*domain.FetchResult, error) {
	logger := zerolog.Ctx(ctx)
	result := &domain.FetchResult{
		Records:  make([]domain.UsageRecord, 0),
		Accounts: make([]domain.AccountResult, 0, len(subscriptions)),
	}

	for _, sub := range subscriptions {
		token, err := f.tokens.Token(ctx)
		if err != nil {
			return result, fmt.Errorf("subscription %s: %w: %w", sub, domain.ErrAuthentication, err)
		}

		account, err := f.fetchSubscription(ctx, token, sub, period, result)
		result.Accounts = append(result.Accounts, account)
		if err != nil {
			return result, err
		}

		if account.Complete {
			logger.Info().
				Str("subscription", sub).
				Str("period", period.ID()).
				Int("records", account.Records).
				Int("pages", account.Pages).
				Msg("fetched usage details")
		} else {
			logger.Warn().
				Str("subscription", sub).
				Str("period", period.ID()).
				Int("records", account.Records).
				Int("pages", account.Pages).
				Str("reason", account.Reason).
				Msg("usage details incomplete, cost for this subscription is under-reported")
		}
	}

	return result, nil
}

func (f *Fetcher) fetchSubscription(
	ctx context.Context,
	token string,
	sub string,
	period domain.BillingPeriod,
	result *domain.FetchResult,
) (domain.AccountResult, error) {
	account := domain.AccountResult{SubscriptionID: sub, TotalCost: decimal.Zero}

	next := f.usageDetailsURL(sub, period)
	for next != "" {
		if account.Pages >= f.config.MaxPages {
			account.Reason = fmt.Sprintf("more than %d pages", f.config.MaxPages)
			return account, fmt.Errorf("subscription %s: %w: more than %d pages", sub, domain.ErrPageLimitExceeded, f.config.MaxPages)
		}

		p, err := f.fetchPage(ctx, token, next)
		if err != nil {
			account.Reason = err.Error()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return account, fmt.Errorf("subscription %s: %w", sub, ctxErr)
			}
			if f.config.OnFailure == domain.FailurePolicyAbort {
				return account, fmt.Errorf("subscription %s: %w: %w", sub, domain.ErrIncompleteFetch, err)
			}
			return account, nil
		}

		records := decodeRecords(ctx, sub, p.Value)

		account.Pages++
		account.Records += len(records)
		for _, r := range records {
			if r.Properties != nil && r.Properties.Cost.Valid {
				account.TotalCost = account.TotalCost.Add(r.Properties.Cost.Decimal)
			}
		}
		result.Records = append(result.Records, records...)
		next = p.NextLink
	}

	account.Complete = true
	return account, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, token, uri string) (*page, error) {
	if err := f.checkHost(uri); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usage details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &p, nil
}

// decodeRecords keeps one record per raw value. A record whose properties do not
// decode keeps its id, name and tags and projects to empty fields.
func decodeRecords(ctx context.Context, sub string, raw []json.RawMessage) []domain.UsageRecord {
	records := make([]domain.UsageRecord, 0, len(raw))
	for i, msg := range raw {
		var r domain.UsageRecord
		if err := json.Unmarshal(msg, &r); err != nil {
			var h recordHeader
			_ = json.Unmarshal(msg, &h)
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("subscription", sub).
				Str("record", h.ID).
				Int("index", i).
				Msg("malformed usage record, properties dropped")
			r = domain.UsageRecord{ID: h.ID, Name: h.Name, Tags: h.Tags}
		}
		records = append(records, r)
	}
	return records
}

// checkHost keeps the bearer token on the configured endpoint scheme and host.
func (f *Fetcher) checkHost(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid continuation link %q: %w", uri, err)
	}
	if !strings.EqualFold(u.Scheme, f.endpoint.Scheme) {
		return fmt.Errorf("continuation link scheme %q does not match endpoint scheme %q", u.Scheme, f.endpoint.Scheme)
	}
	if !strings.EqualFold(u.Host, f.endpoint.Host) {
		return fmt.Errorf("continuation link host %q does not match endpoint host %q", u.Host, f.endpoint.Host)
	}
	return nil
}

func (f *Fetcher) usageDetailsURL(sub string, period domain.BillingPeriod) string {
	return fmt.Sprintf(
		"%s/subscriptions/%s/providers/Microsoft.Billing/billingPeriods/%s/providers/Microsoft.Consumption/usageDetails?$expand=properties/meterDetails&api-version=%s",
		f.config.Endpoint,
		url.PathEscape(sub),
		period.Key(),
		url.QueryEscape(f.config.APIVersion),
	)
}
