package payout

import (
	"net/http"
	"thakajabe/infras/otel"
	"thakajabe/internal/domains/payout/model/dto"
	"thakajabe/internal/domains/payout/service"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/validator"
	"thakajabe/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Payout
	otel    otel.Otel
}

func New(service service.Payout, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payouts", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.RequestPayout)
		routerGroup.Get("/", handler.GetPayouts)
		routerGroup.Get("/{id}", handler.GetPayoutByID)
		routerGroup.Post("/{id}/approve", handler.ApprovePayout)
		routerGroup.Post("/{id}/reject", handler.RejectPayout)
	})
}

// RequestPayout asks for part of the caller's balance to be paid out.
// @Summary Request a payout
// @Tags Payout
// @Accept json
// @Produce json
// @Param request body dto.RequestPayoutRequest true "Payout request"
// @Success 201 {object} response.Data[dto.PayoutResponse]
// @Failure 400 {object} response.Error "Amount exceeds the available balance"
// @Failure 403 {object} response.Error
// @Router /v1/payouts [post]
// @Security BearerAuth
func (handler *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RequestPayout")
	defer scope.End()

	req := dto.RequestPayoutRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.Request(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to request payout")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, res)
}

// GetPayouts lists payout requests. Hosts only see their own.
// @Summary List payout requests
// @Tags Payout
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param host_id query string false "Filter by host (admins only)"
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Success 200 {object} response.Data[dto.GetPayoutsResponse]
// @Failure 400 {object} response.Error
// @Router /v1/payouts [get]
// @Security BearerAuth
func (handler *Handler) GetPayouts(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPayouts")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filter := dto.PayoutFilter{
		HostID: r.URL.Query().Get("host_id"),
		Status: r.URL.Query().Get("status"),
	}

	if err := validator.ValidateStruct(&filter); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.GetAll(ctx, queryParams, filter)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payouts")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetPayoutByID retrieves one payout request.
// @Summary Get a payout request
// @Tags Payout
// @Produce json
// @Param id path string true "Payout request ID"
// @Success 200 {object} response.Data[dto.PayoutResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/payouts/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetPayoutByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPayoutByID")
	defer scope.End()

	res, err := handler.service.Get(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payout")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// ApprovePayout approves a pending request and books it against the ledger. Repeats are harmless.
// @Summary Approve a payout request
// @Tags Payout
// @Produce json
// @Param id path string true "Payout request ID"
// @Success 200 {object} response.Data[dto.PayoutResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Request already rejected"
// @Router /v1/payouts/{id}/approve [post]
// @Security BearerAuth
func (handler *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ApprovePayout")
	defer scope.End()

	res, err := handler.service.Approve(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to approve payout")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// RejectPayout rejects a pending request and releases the held amount.
// @Summary Reject a payout request
// @Tags Payout
// @Produce json
// @Param id path string true "Payout request ID"
// @Success 200 {object} response.Data[dto.PayoutResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Request already approved"
// @Router /v1/payouts/{id}/reject [post]
// @Security BearerAuth
func (handler *Handler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RejectPayout")
	defer scope.End()

	res, err := handler.service.Reject(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to reject payout")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
