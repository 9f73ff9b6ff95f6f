package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrAuthentication    = errors.New("authentication failure")
	ErrPageLimitExceeded = errors.New("page limit exceeded")
	ErrIncompleteFetch   = errors.New("incomplete fetch")
	ErrNoSubscriptions   = errors.New("at least one subscription must be provided")
)

type FailurePolicy string

const (
	// FailurePolicyContinue keeps the records fetched so far and marks the account partial.
	FailurePolicyContinue FailurePolicy = "continue"
	// FailurePolicyAbort stops the whole run on the first failed page.
	FailurePolicyAbort FailurePolicy = "abort"
)

// AccountResult is the outcome of paginating one subscription.
type AccountResult struct {
	SubscriptionID string
	Records        int
	Pages          int
	TotalCost      decimal.Decimal
	Complete       bool
	Reason         string // set when Complete is false
}

// FetchResult holds every record in arrival order and the per-account outcome.
type FetchResult struct {
	Records  []UsageRecord
	Accounts []AccountResult
}

// Complete reports whether every account was fetched to the last page.
func (r *FetchResult) Complete() bool {
	for _, a := range r.Accounts {
		if !a.Complete {
			return false
		}
	}
	return true
}

// FetchError is a fatal fetch failure together with the accounts processed before it.
type FetchError struct {
	Accounts []AccountResult
	Err      error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
