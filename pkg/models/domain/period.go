package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// billingPeriodSuffix is the day-of-month appended to YYYYMM to form the
// Microsoft.Billing billingPeriods resource name.
const billingPeriodSuffix = "01"

// BillingPeriod is the calendar month usage is queried for.
type BillingPeriod struct {
	Year  int
	Month time.Month
}

// ParseBillingPeriod accepts YYYYMM or YYYY-MM, digits only.
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	raw := strings.TrimSpace(s)
	if len(raw) == 7 && raw[4] == '-' {
		raw = raw[:4] + raw[5:]
	}
	if len(raw) != 6 || strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return BillingPeriod{}, fmt.Errorf("invalid billing period %q: expected YYYYMM or YYYY-MM", s)
	}

	year, _ := strconv.Atoi(raw[:4])
	month, _ := strconv.Atoi(raw[4:])
	if year < 1 {
		return BillingPeriod{}, fmt.Errorf("invalid billing period year %q: out of range", s)
	}
	if month < 1 || month > 12 {
		return BillingPeriod{}, fmt.Errorf("invalid billing period month %q: out of range", s)
	}

	return BillingPeriod{Year: year, Month: time.Month(month)}, nil
}

// PreviousBillingPeriod returns the calendar month before now.
func PreviousBillingPeriod(now time.Time) BillingPeriod {
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return BillingPeriod{Year: prev.Year(), Month: prev.Month()}
}

// ID is the zero-padded YYYYMM label.
func (p BillingPeriod) ID() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// Key is the provider period key used in the usageDetails URI.
func (p BillingPeriod) Key() string {
	return p.ID() + billingPeriodSuffix
}

func (p BillingPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last instant of the month.
func (p BillingPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func (p BillingPeriod) String() string {
	return p.ID()
}
