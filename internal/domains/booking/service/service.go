package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"thakajabe/config"
	"thakajabe/infras/otel"
	"thakajabe/internal/domains/booking/model"
	"thakajabe/internal/domains/booking/model/dto"
	"thakajabe/internal/domains/booking/repository"
	ledgerModel "thakajabe/internal/domains/ledger/model"
	ledgerService "thakajabe/internal/domains/ledger/service"
	"thakajabe/internal/domains/refund"
	roomModel "thakajabe/internal/domains/room/model"
	roomRepo "thakajabe/internal/domains/room/repository"
	"thakajabe/shared"
	"thakajabe/shared/cache"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/event"
	"thakajabe/shared/failure"
	gModel "thakajabe/shared/model"
	gRepo "thakajabe/shared/repository"
	"thakajabe/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"

	transactionRefPrefix = "TKJ"
	transactionRefLayout = "20060102"

	msgDatesUnavailable = "dates no longer available"
)

type Booking interface {
	// HasOverlap reports whether an active booking of the room intersects [checkIn, checkOut).
	HasOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeBookingID string) (bool, error)
	Quote(ctx context.Context, roomID string, req dto.QuoteRequest) (dto.QuoteResponse, error)
	ListActiveBookings(ctx context.Context, roomID string) ([]dto.OccupiedWindow, error)
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Approve(ctx context.Context, id string) (dto.BookingResponse, error)
	Reject(ctx context.Context, id string) (dto.BookingResponse, error)
	// MarkPaid must run inside the caller's unit of work. changed is false when the booking was already paid.
	MarkPaid(ctx context.Context, id string) (changed bool, booking model.Booking, err error)
	Cancel(ctx context.Context, id string) (dto.CancelBookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter dto.BookingFilter) (dto.GetBookingsResponse, error)
}

type serviceImpl struct {
	repo       repository.Booking
	roomRepo   roomRepo.Room
	ledger     ledgerService.Ledger
	transactor gRepo.Transactor
	publisher  event.Publisher
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	ledger ledgerService.Ledger,
	transactor gRepo.Transactor,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:       repo,
		roomRepo:   roomRepo,
		ledger:     ledger,
		transactor: transactor,
		publisher:  publisher,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
	}
}

func (s *serviceImpl) HasOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeBookingID string) (res bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HasOverlap")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := gDto.And(
		gDto.Filter{Field: model.FieldRoomID, Value: roomID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		gDto.Filter{Field: model.FieldStatus, Value: model.ActiveStatuses, Operator: gDto.FilterOperatorIn, Table: model.TableName},
		gDto.Filter{Field: model.FieldCheckIn, Value: checkOut, Operator: gDto.FilterOperatorLess, Table: model.TableName},
		gDto.Filter{Field: model.FieldCheckOut, Value: checkIn, Operator: gDto.FilterOperatorGreater, Table: model.TableName},
	)

	if excludeBookingID != constant.Empty {
		filter = filter.Add(gDto.Filter{Field: model.FieldID, Value: excludeBookingID, Operator: gDto.FilterOperatorNotEq, Table: model.TableName})
	}

	res, err = s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to check booking overlap")

		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}

	return res, nil
}

func (s *serviceImpl) Quote(ctx context.Context, roomID string, req dto.QuoteRequest) (res dto.QuoteResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Quote")
	defer scope.End()
	defer scope.TraceIfError(err)

	stay, err := req.Stay()
	if err != nil {
		return res, err
	}

	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return res, err
	}

	if req.GuestCount > room.MaxGuests {
		return res, failure.BadRequestFromString(fmt.Sprintf("room accepts at most %d guests", room.MaxGuests)) // nolint:wrapcheck
	}

	overlap, err := s.HasOverlap(ctx, roomID, stay.CheckIn, stay.CheckOut, constant.Empty)
	if err != nil {
		return res, err
	}

	nights := model.Nights(stay.CheckIn, stay.CheckOut)

	res = dto.QuoteResponse{
		RoomID:           roomID,
		CheckIn:          req.CheckIn,
		CheckOut:         req.CheckOut,
		Nights:           nights,
		PricePerNight:    room.TotalPricePerNight(),
		TotalAmount:      room.TotalPricePerNight() * int64(nights),
		CommissionAmount: room.CommissionPerNight * int64(nights),
		Available:        !overlap,
	}

	return res, nil
}

func (s *serviceImpl) ListActiveBookings(ctx context.Context, roomID string) (res []dto.OccupiedWindow, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListActiveBookings")
	defer scope.End()
	defer scope.TraceIfError(err)

	if _, err = s.getRoom(ctx, roomID); err != nil {
		return res, err
	}

	filter := gDto.And(
		gDto.Filter{Field: model.FieldRoomID, Value: roomID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		gDto.Filter{Field: model.FieldStatus, Value: model.ActiveStatuses, Operator: gDto.FilterOperatorIn, Table: model.TableName},
		gDto.Filter{Field: model.FieldCheckOut, Value: timezone.Now(), Operator: gDto.FilterOperatorGreater, Table: model.TableName},
	)

	models, err := s.repo.GetAll(ctx, gDto.QueryParams{SortBy: model.FieldCheckIn, SortDir: gDto.SortDirAsc}, filter)
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to get active bookings")

		return res, fmt.Errorf("failed to get active bookings: %w", err)
	}

	res = make([]dto.OccupiedWindow, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res, nil
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)

	stay, err := req.Stay()
	if err != nil {
		return res, err
	}

	if req.GuestCount < 1 {
		return res, failure.BadRequestFromString("guest_count must be at least 1") // nolint:wrapcheck
	}

	now := timezone.Now()

	if stay.CheckIn.Before(startOfDay(now)) {
		return res, failure.BadRequestFromString("check_in must not be in the past") // nolint:wrapcheck
	}

	var booking model.Booking

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		room, err := s.roomRepo.GetForUpdate(ctx, shared.FilterByID(req.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			log.Error().Err(err).Str("roomID", req.RoomID).Msg("failed to lock room")

			return fmt.Errorf("failed to lock room: %w", err)
		}

		if room.ID == constant.Empty {
			return failure.NotFound(roomModel.EntityName) // nolint:wrapcheck
		}

		if !room.IsBookable() {
			return failure.BadRequestFromString("room is not open for booking") // nolint:wrapcheck
		}

		if req.GuestCount > room.MaxGuests {
			return failure.BadRequestFromString(fmt.Sprintf("room accepts at most %d guests", room.MaxGuests)) // nolint:wrapcheck
		}

		overlap, err := s.HasOverlap(ctx, room.ID, stay.CheckIn, stay.CheckOut, constant.Empty)
		if err != nil {
			return err
		}

		if overlap {
			return failure.Conflict(msgDatesUnavailable) // nolint:wrapcheck
		}

		nights := int64(model.Nights(stay.CheckIn, stay.CheckOut))

		booking = model.Booking{
			ID:               uuid.NewString(),
			RoomID:           room.ID,
			GuestID:          actor.UserID,
			HostID:           room.HostID,
			CheckIn:          stay.CheckIn,
			CheckOut:         stay.CheckOut,
			GuestCount:       req.GuestCount,
			Mode:             req.BookingMode(),
			Status:           model.StatusPending,
			PaymentStatus:    model.PaymentUnpaid,
			TotalAmount:      room.TotalPricePerNight() * nights,
			CommissionAmount: room.CommissionPerNight * nights,
			TransactionRef:   newTransactionRef(now),
			Metadata:         gModel.NewMetadata(actor.UserID, now),
		}

		if err := s.repo.Insert(ctx, booking); err != nil {
			if errors.Is(err, gRepo.ErrExclusionViolation) {
				return failure.Conflict(msgDatesUnavailable) // nolint:wrapcheck
			}

			log.Error().Err(err).Str("roomID", room.ID).Msg("failed to create booking")

			return fmt.Errorf("failed to create booking: %w", err)
		}

		s.afterChange(ctx, constant.TopicBookingCreated, booking)

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	log.Info().Str("bookingID", booking.ID).Str("roomID", booking.RoomID).Msg("booking created")

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Approve(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Approve")
	defer scope.End()
	defer scope.TraceIfError(err)

	return s.decide(ctx, id, model.StatusConfirmed, constant.TopicBookingConfirmed)
}

func (s *serviceImpl) Reject(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reject")
	defer scope.End()
	defer scope.TraceIfError(err)

	return s.decide(ctx, id, model.StatusRejected, constant.TopicBookingRejected)
}

// decide applies the host's answer to a pending booking.
func (s *serviceImpl) decide(ctx context.Context, id string, next model.Status, topic string) (res dto.BookingResponse, err error) {
	actor := gDto.ActorFromContext(ctx)

	var booking model.Booking

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		booking, err = s.lock(ctx, id)
		if err != nil {
			return err
		}

		if !actor.IsAdmin() && !actor.Is(booking.HostID) {
			return failure.ResourceRestrictedError
		}

		if booking.Status != model.StatusPending {
			return failure.InvalidState(fmt.Sprintf("booking is %s, only pending bookings can be %s", booking.Status, next)) // nolint:wrapcheck
		}

		if next == model.StatusConfirmed && booking.Mode == model.ModeInstant {
			return failure.InvalidState("instant bookings are confirmed by payment") // nolint:wrapcheck
		}

		booking.Status = next
		booking.ModifiedAt = timezone.Now()
		booking.ModifiedBy = actor.UserID

		if err := s.update(ctx, booking, map[string]any{model.FieldStatus: next}); err != nil {
			return err
		}

		s.afterChange(ctx, topic, booking)

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	log.Info().Str("bookingID", id).Str("status", string(next)).Msg("booking decided")

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) MarkPaid(ctx context.Context, id string) (changed bool, booking model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".MarkPaid")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err = s.lock(ctx, id)
	if err != nil {
		return false, booking, err
	}

	switch {
	case booking.Status == model.StatusCancelled || booking.Status == model.StatusRejected:
		return false, booking, failure.InvalidState(fmt.Sprintf("booking is %s and cannot be paid", booking.Status)) // nolint:wrapcheck
	case booking.PaymentStatus == model.PaymentPaid:
		return false, booking, nil
	}

	booking.Status = model.StatusConfirmed
	booking.PaymentStatus = model.PaymentPaid
	booking.ModifiedAt = timezone.Now()
	booking.ModifiedBy = constant.RoleSystem

	err = s.update(ctx, booking, map[string]any{
		model.FieldStatus:        booking.Status,
		model.FieldPaymentStatus: booking.PaymentStatus,
	})
	if err != nil {
		return false, booking, err
	}

	s.afterChange(ctx, constant.TopicBookingConfirmed, booking)

	return true, booking, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id string) (res dto.CancelBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)

	var (
		booking  model.Booking
		decision refund.Decision
	)

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		booking, err = s.lock(ctx, id)
		if err != nil {
			return err
		}

		if !actor.IsAdmin() && !actor.Is(booking.GuestID) && !actor.Is(booking.HostID) {
			return failure.ResourceRestrictedError
		}

		if !booking.CanTransitionTo(model.StatusCancelled) {
			return failure.InvalidState(fmt.Sprintf("booking is %s and cannot be cancelled", booking.Status)) // nolint:wrapcheck
		}

		now := timezone.Now()
		decision = refund.Compute(booking, now)

		booking.Status = decision.Status
		booking.PaymentStatus = decision.PaymentStatus
		booking.RefundAmount = decision.RefundAmount
		booking.CancelledAt = &now
		booking.ModifiedAt = now
		booking.ModifiedBy = actor.UserID

		err := s.update(ctx, booking, map[string]any{
			model.FieldStatus:        booking.Status,
			model.FieldPaymentStatus: booking.PaymentStatus,
			model.FieldRefundAmount:  booking.RefundAmount,
			model.FieldCancelledAt:   now,
		})
		if err != nil {
			return err
		}

		if decision.Refunded() {
			_, err = s.ledger.Post(ctx, ledgerModel.LedgerEntry{
				Type:                ledgerModel.TypeAdjustment,
				ReferencedBookingID: ledgerModel.BookingRef(booking.ID),
				Amount:              -decision.RefundAmount,
				Note:                refund.Note(booking),
				PostedBy:            actor.UserID,
			})
			if err != nil {
				return err
			}
		}

		s.afterChange(ctx, constant.TopicBookingCancelled, booking)

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	log.Info().Str("bookingID", id).Int64("refund", decision.RefundAmount).Msg("booking cancelled")

	res.Booking.FromModel(booking)
	res.RefundAmount = decision.RefundAmount
	res.Refunded = decision.Refunded()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildGenerationCacheKey(ctx, s.cache, shared.BuildCacheKey(cacheGetBooking, id))

	if err = s.cache.Get(ctx, cacheKey, &res); err != nil {
		booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
		if err != nil {
			log.Error().Err(err).Str("bookingID", id).Msg("failed to get booking")

			return res, fmt.Errorf("failed to get booking: %w", err)
		}

		if booking.ID == constant.Empty {
			return res, failure.NotFound(model.EntityName) // nolint:wrapcheck
		}

		res.FromModel(booking)

		s.saveCache(ctx, cacheKey, res)
	} else {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")
	}

	actor := gDto.ActorFromContext(ctx)
	if !actor.IsAdmin() && !actor.IsSystem() && !actor.Is(res.GuestID) && !actor.Is(res.HostID) {
		return dto.BookingResponse{}, failure.ResourceRestrictedError
	}

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter dto.BookingFilter) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)
	if !actor.IsAdmin() && !actor.Is(filter.GuestID) && !actor.Is(filter.HostID) {
		return res, failure.ResourceRestrictedError
	}

	group := filter.ToFilterGroup()
	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildGenerationCacheKey(ctx, s.cache, cacheGetAllBooking), params, group)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.repo.Count(ctx, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	s.saveCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) getRoom(ctx context.Context, roomID string) (roomModel.Room, error) {
	room, err := s.roomRepo.Get(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to get room")

		return room, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return room, failure.NotFound(roomModel.EntityName) // nolint:wrapcheck
	}

	return room, nil
}

// lock reads a booking under a row lock; ctx must carry a unit of work.
func (s *serviceImpl) lock(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.repo.GetForUpdate(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to lock booking")

		return booking, fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(model.EntityName) // nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) update(ctx context.Context, booking model.Booking, fields map[string]any) error {
	fields[model.FieldModifiedAt] = booking.ModifiedAt
	fields[model.FieldModifiedBy] = booking.ModifiedBy

	if err := s.repo.Update(ctx, fields, shared.FilterByID(booking.ID, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to update booking")

		return fmt.Errorf("failed to update booking: %w", err)
	}

	return nil
}

// afterChange publishes the booking event and drops cached views once the unit of work commits.
func (s *serviceImpl) afterChange(ctx context.Context, topic string, booking model.Booking) {
	var payload dto.BookingEvent
	payload.FromModel(booking)

	s.publisher.Publish(ctx, topic, booking.ID, payload)

	gRepo.AfterCommit(ctx, func(ctx context.Context) {
		shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(cacheGetBooking, booking.ID))
		shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
	})
}

func (s *serviceImpl) saveCache(ctx context.Context, key string, value any) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, key, value, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to save to cache")
		}
	}()
}

func newTransactionRef(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	return fmt.Sprintf("%s-%s-%s", transactionRefPrefix, now.Format(transactionRefLayout), suffix)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
