package payment

import (
	"net/http"
	"thakajabe/infras/otel"
	"thakajabe/internal/domains/payment/model/dto"
	"thakajabe/internal/domains/payment/service"
	"thakajabe/shared/constant"
	"thakajabe/shared/failure"
	"thakajabe/shared/validator"
	"thakajabe/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/callback/{kind}", handler.Callback)
		routerGroup.Post("/bookings/{id}", handler.InitPayment)
		routerGroup.Get("/bookings/{id}", handler.GetBookingPayments)
		routerGroup.Get("/{id}", handler.GetPaymentByID)
	})
}

// InitPayment opens a gateway checkout for the booking.
// @Summary Start paying a booking
// @Description Create a payment transaction and return the gateway page the guest is redirected to.
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.InitPaymentRequest true "Customer details"
// @Success 201 {object} response.Data[dto.InitPaymentResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error "Booking cannot be paid now"
// @Failure 502 {object} response.Error "Gateway unavailable"
// @Router /v1/payments/bookings/{id} [post]
// @Security BearerAuth
func (handler *Handler) InitPayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".InitPayment")
	defer scope.End()

	req := dto.InitPaymentRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.InitPayment(ctx, chi.URLParam(r, constant.RequestParamID), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to init payment")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, res)
}

// GetBookingPayments lists the payment attempts of a booking.
// @Summary List booking payments
// @Tags Payment
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[[]dto.TransactionResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/payments/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingPayments(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingPayments")
	defer scope.End()

	res, err := handler.service.ListByBooking(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list payments")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// Callback receives the gateway's success, fail, cancel and IPN notifications.
// Deliveries may repeat; a repeat reports duplicate=true and changes nothing.
// @Summary Gateway callback
// @Description Form-encoded notification from the payment gateway. Success is only trusted after server-side validation.
// @Tags Payment
// @Accept x-www-form-urlencoded
// @Produce json
// @Param kind path string true "Callback kind (success, fail, cancel, ipn)"
// @Param tran_id formData string true "Payment transaction ID"
// @Param val_id formData string false "Gateway validation ID"
// @Param status formData string false "Gateway status"
// @Success 200 {object} response.Data[dto.CallbackResponse]
// @Failure 400 {object} response.Error
// @Failure 402 {object} response.Error "Verification mismatch"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Transaction already closed"
// @Failure 502 {object} response.Error "Gateway unavailable"
// @Router /v1/payments/callback/{kind} [post]
func (handler *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PaymentCallback")
	defer scope.End()

	kind, err := dto.ParseCallbackKind(chi.URLParam(r, constant.RequestParamKind))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	if err = r.ParseForm(); err != nil {
		err = failure.BadRequest(err)
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	payload := dto.CallbackPayload{}
	payload.FromForm(r.PostForm)

	if payload.TransactionID == constant.Empty {
		response.WithError(w, failure.BadRequestFromString("tran_id is required"))

		return
	}

	scope.SetAttributes(map[string]any{
		"payment.kind":           string(kind),
		"payment.transaction_id": payload.TransactionID,
	})

	res, err := handler.service.HandleCallback(ctx, kind, payload)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("kind", string(kind)).Str("transactionID", payload.TransactionID).Msg("failed to handle payment callback")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetPaymentByID retrieves one payment transaction.
// @Summary Get a payment
// @Tags Payment
// @Produce json
// @Param id path string true "Payment transaction ID"
// @Success 200 {object} response.Data[dto.TransactionResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/payments/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetPaymentByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPaymentByID")
	defer scope.End()

	res, err := handler.service.Get(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payment")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
