package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/de-tools/billing-report/pkg/adapters"
	"github.com/de-tools/billing-report/pkg/models/api"
	"github.com/de-tools/billing-report/pkg/models/domain"
	"github.com/de-tools/billing-report/pkg/services/cost/azure/consumption"
	"github.com/de-tools/billing-report/pkg/services/report"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type Handler struct {
	generator     report.Generator
	subscriptions []string
}

// NewHandler serves reports for the subscriptions given in the request, or
// the default set when the request names none.
func NewHandler(generator report.Generator, subscriptions []string) *Handler {
	return &Handler{
		generator:     generator,
		subscriptions: subscriptions,
	}
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	billingReport, ok := h.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapBillingReportDomainToApi(billingReport))
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	billingReport, ok := h.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapUsageResponseDomainToApi(billingReport))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) (*domain.BillingReport, bool) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	period, err := domain.ParseBillingPeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return nil, false
	}

	subscriptions := r.URL.Query()["subscription"]
	if len(subscriptions) == 0 {
		subscriptions = h.subscriptions
	}

	billingReport, err := h.generator.Generate(ctx, report.Request{
		Period:        period,
		Subscriptions: subscriptions,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("period", period.ID()).
			Msg("failed to generate billing report")
		writeError(w, r, statusFor(err), err)
		return nil, false
	}

	return billingReport, true
}

func statusFor(err error) int {
	var statusErr *consumption.StatusError
	switch {
	case errors.Is(err, domain.ErrNoSubscriptions):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrPageLimitExceeded),
		errors.Is(err, domain.ErrIncompleteFetch),
		errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := api.Error{Message: err.Error()}
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		body.Accounts = lo.Map(fetchErr.Accounts, func(a domain.AccountResult, _ int) api.AccountStatus {
			return adapters.MapAccountResultDomainToApi(a)
		})
	}
	writeJSON(w, r, status, body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
