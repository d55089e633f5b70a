package ledger

import (
	"net/http"
	"net/url"
	"thakajabe/infras/otel"
	"thakajabe/internal/domains/ledger/model/dto"
	"thakajabe/internal/domains/ledger/service"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/validator"
	"thakajabe/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Ledger
	otel    otel.Otel
}

func New(service service.Ledger, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/ledger", func(routerGroup chi.Router) {
		routerGroup.Get("/entries", handler.GetEntries)
		routerGroup.Get("/summary", handler.GetSummary)
		routerGroup.Post("/export", handler.Export)
		routerGroup.Post("/spend", handler.PostSpend)
		routerGroup.Post("/adjustments", handler.PostAdjustment)
		routerGroup.Get("/hosts/{id}/balance", handler.GetHostBalance)
	})
}

func entryFilter(query url.Values) dto.EntryFilter {
	return dto.EntryFilter{
		Type:      query.Get("type"),
		BookingID: query.Get("booking_id"),
		PayoutID:  query.Get("payout_id"),
		Period: dto.Period{
			From: query.Get(constant.RequestParamFrom),
			To:   query.Get(constant.RequestParamTo),
		},
	}
}

// GetEntries lists ledger entries.
// @Summary List ledger entries
// @Tags Ledger
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param type query string false "Entry type (commission, payout, spend, adjustment)"
// @Param booking_id query string false "Referenced booking"
// @Param payout_id query string false "Referenced payout request"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetEntriesResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/ledger/entries [get]
// @Security BearerAuth
func (handler *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetLedgerEntries")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filter := entryFilter(r.URL.Query())
	if err := validator.ValidateStruct(&filter); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.ListEntries(ctx, queryParams, filter)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list ledger entries")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetSummary totals the ledger by entry type.
// @Summary Summarize the ledger
// @Description Commission, payouts, spend and adjustments over a period, with the platform's net.
// @Tags Ledger
// @Produce json
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.SummaryResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/ledger/summary [get]
// @Security BearerAuth
func (handler *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetLedgerSummary")
	defer scope.End()

	period := dto.Period{
		From: r.URL.Query().Get(constant.RequestParamFrom),
		To:   r.URL.Query().Get(constant.RequestParamTo),
	}

	if err := validator.ValidateStruct(&period); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.Summarize(ctx, period)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to summarize ledger")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// Export writes the matching entries to a CSV statement in object storage.
// @Summary Export a ledger statement
// @Tags Ledger
// @Produce json
// @Param type query string false "Entry type"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day, inclusive (YYYY-MM-DD)"
// @Success 201 {object} response.Data[dto.ExportResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/ledger/export [post]
// @Security BearerAuth
func (handler *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ExportLedger")
	defer scope.End()

	filter := entryFilter(r.URL.Query())
	if err := validator.ValidateStruct(&filter); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.Export(ctx, filter)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to export ledger")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, res)
}

// PostSpend records platform spending.
// @Summary Record spend
// @Tags Ledger
// @Accept json
// @Produce json
// @Param request body dto.PostSpendRequest true "Spend"
// @Success 201 {object} response.Data[dto.EntryResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/ledger/spend [post]
// @Security BearerAuth
func (handler *Handler) PostSpend(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PostSpend")
	defer scope.End()

	req := dto.PostSpendRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.PostSpend(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to post spend")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, res)
}

// PostAdjustment records a signed manual correction.
// @Summary Record an adjustment
// @Tags Ledger
// @Accept json
// @Produce json
// @Param request body dto.PostAdjustmentRequest true "Adjustment"
// @Success 201 {object} response.Data[dto.EntryResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/ledger/adjustments [post]
// @Security BearerAuth
func (handler *Handler) PostAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PostAdjustment")
	defer scope.End()

	req := dto.PostAdjustmentRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.PostAdjustment(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to post adjustment")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, res)
}

// GetHostBalance reports what a host has earned and what is still owed.
// @Summary Get a host's balance
// @Tags Ledger
// @Produce json
// @Param id path string true "Host ID"
// @Success 200 {object} response.Data[dto.HostBalanceResponse]
// @Failure 403 {object} response.Error
// @Router /v1/ledger/hosts/{id}/balance [get]
// @Security BearerAuth
func (handler *Handler) GetHostBalance(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetHostBalance")
	defer scope.End()

	res, err := handler.service.ComputeHostBalance(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to compute host balance")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
