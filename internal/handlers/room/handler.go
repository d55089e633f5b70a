package room

import (
	"net/http"
	"strconv"
	"thakajabe/infras/otel"
	"thakajabe/internal/domains/booking/model/dto"
	"thakajabe/internal/domains/booking/service"
	"thakajabe/shared/constant"
	"thakajabe/shared/failure"
	"thakajabe/shared/validator"
	"thakajabe/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handler exposes availability reads for a room. Room management lives in the catalog service.
type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms/{id}", func(routerGroup chi.Router) {
		routerGroup.Get("/quote", handler.Quote)
		routerGroup.Get("/bookings", handler.ListActiveBookings)
	})
}

// Quote prices a stay and reports whether the dates are free.
// @Summary Quote a stay
// @Description Price a stay in a room and check it against active bookings.
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Param check_in query string true "Check-in date (YYYY-MM-DD)"
// @Param check_out query string true "Check-out date (YYYY-MM-DD)"
// @Param guest_count query int false "Number of guests"
// @Success 200 {object} response.Data[dto.QuoteResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/rooms/{id}/quote [get]
// @Security BearerAuth
func (handler *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Quote")
	defer scope.End()

	query := r.URL.Query()
	req := dto.QuoteRequest{
		CheckIn:  query.Get("check_in"),
		CheckOut: query.Get("check_out"),
	}

	if raw := query.Get("guest_count"); raw != constant.Empty {
		guests, err := strconv.Atoi(raw)
		if err != nil {
			response.WithError(w, failure.BadRequestFromString("guest_count must be a number"))

			return
		}

		req.GuestCount = guests
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	quote, err := handler.service.Quote(ctx, chi.URLParam(r, constant.RequestParamID), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to quote stay")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, quote)
}

// ListActiveBookings returns the windows already held on a room.
// @Summary List occupied windows
// @Description List the pending and confirmed stays of a room that have not ended.
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Data[[]dto.OccupiedWindow]
// @Failure 404 {object} response.Error
// @Router /v1/rooms/{id}/bookings [get]
// @Security BearerAuth
func (handler *Handler) ListActiveBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ListActiveBookings")
	defer scope.End()

	windows, err := handler.service.ListActiveBookings(ctx, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list active bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, windows)
}
