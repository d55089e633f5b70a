package service

import (
	"context"
	"fmt"
	"thakajabe/config"
	"thakajabe/infras/gateway"
	"thakajabe/infras/otel"
	bookingModel "thakajabe/internal/domains/booking/model"
	bookingRepo "thakajabe/internal/domains/booking/repository"
	bookingService "thakajabe/internal/domains/booking/service"
	ledgerModel "thakajabe/internal/domains/ledger/model"
	ledgerService "thakajabe/internal/domains/ledger/service"
	"thakajabe/internal/domains/payment/model"
	"thakajabe/internal/domains/payment/model/dto"
	"thakajabe/internal/domains/payment/repository"
	"thakajabe/shared"
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

type Payment interface {
	InitPayment(ctx context.Context, bookingID string, req dto.InitPaymentRequest) (dto.InitPaymentResponse, error)
	// HandleCallback is safe to call any number of times for the same delivery.
	HandleCallback(ctx context.Context, kind dto.CallbackKind, payload dto.CallbackPayload) (dto.CallbackResponse, error)
	Get(ctx context.Context, id string) (dto.TransactionResponse, error)
	ListByBooking(ctx context.Context, bookingID string) ([]dto.TransactionResponse, error)
}

type serviceImpl struct {
	repo        repository.Payment
	bookingRepo bookingRepo.Booking
	booking     bookingService.Booking
	ledger      ledgerService.Ledger
	gateway     gateway.Gateway
	transactor  gRepo.Transactor
	publisher   event.Publisher
	cfg         *config.Config
	otel        otel.Otel
}

func New(
	repo repository.Payment,
	bookingRepo bookingRepo.Booking,
	booking bookingService.Booking,
	ledger ledgerService.Ledger,
	gateway gateway.Gateway,
	transactor gRepo.Transactor,
	publisher event.Publisher,
	cfg *config.Config,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		booking:     booking,
		ledger:      ledger,
		gateway:     gateway,
		transactor:  transactor,
		publisher:   publisher,
		cfg:         cfg,
		otel:        otel,
	}
}

func (s *serviceImpl) InitPayment(ctx context.Context, bookingID string, req dto.InitPaymentRequest) (res dto.InitPaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".InitPayment")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return res, err
	}

	if !actor.Is(booking.GuestID) {
		return res, failure.ResourceRestrictedError
	}

	if err = payable(booking); err != nil {
		return res, err
	}

	now := timezone.Now()
	txn := model.PaymentTransaction{
		ID:          uuid.NewString(),
		BookingID:   booking.ID,
		GatewayName: s.gateway.Name(),
		Amount:      booking.TotalAmount,
		Currency:    s.cfg.Payment.Currency,
		Status:      model.StatusPending,
		Metadata:    gModel.NewMetadata(actor.UserID, now),
	}

	if err = s.repo.Insert(ctx, txn); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to create payment transaction")

		return res, fmt.Errorf("failed to create payment transaction: %w", err)
	}

	gatewayCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	session, err := s.gateway.CreateSession(gatewayCtx, gateway.SessionRequest{
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		ProductName:   "Booking " + booking.TransactionRef,
		BookingID:     booking.ID,
		Customer:      req.Customer(),
	})
	if err != nil {
		log.Error().Err(err).Str("transactionID", txn.ID).Msg("failed to open gateway session")

		s.abandon(ctx, txn.ID, actor.UserID)

		return res, failure.Gateway(err) // nolint:wrapcheck
	}

	txn.GatewaySessionKey = session.SessionKey
	txn.GatewayURL = session.RedirectURL

	_, err = s.repo.UpdateCount(ctx, map[string]any{
		model.FieldGatewaySessionKey: session.SessionKey,
		model.FieldGatewayURL:        session.RedirectURL,
		model.FieldModifiedAt:        timezone.Now(),
		model.FieldModifiedBy:        actor.UserID,
	}, pendingByID(txn.ID))
	if err != nil {
		log.Error().Err(err).Str("transactionID", txn.ID).Msg("failed to store gateway session")

		return res, fmt.Errorf("failed to store gateway session: %w", err)
	}

	log.Info().Str("transactionID", txn.ID).Str("bookingID", booking.ID).Msg("payment session opened")

	res = dto.InitPaymentResponse{
		TransactionID: txn.ID,
		BookingID:     txn.BookingID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        string(txn.Status),
		GatewayURL:    txn.GatewayURL,
	}

	return res, nil
}

// abandon closes a transaction whose gateway session never opened, so no pending row is left behind.
func (s *serviceImpl) abandon(ctx context.Context, id, userID string) {
	_, err := s.repo.UpdateCount(ctx, map[string]any{
		model.FieldStatus:        model.StatusFailed,
		model.FieldFailureReason: dto.ReasonGatewayUnavailable,
		model.FieldModifiedAt:    timezone.Now(),
		model.FieldModifiedBy:    userID,
	}, pendingByID(id))
	if err != nil {
		log.Error().Err(err).Str("transactionID", id).Msg("failed to close abandoned payment transaction")
	}
}

// payable checks that the guest may pay now: instant bookings while pending, request bookings once approved.
func payable(booking bookingModel.Booking) error {
	if booking.PaymentStatus != bookingModel.PaymentUnpaid {
		return failure.InvalidState(fmt.Sprintf("booking is already %s", booking.PaymentStatus)) // nolint:wrapcheck
	}

	switch {
	case booking.Mode == bookingModel.ModeInstant && booking.Status == bookingModel.StatusPending:
		return nil
	case booking.Mode == bookingModel.ModeRequest && booking.Status == bookingModel.StatusConfirmed:
		return nil
	case booking.Mode == bookingModel.ModeRequest && booking.Status == bookingModel.StatusPending:
		return failure.InvalidState("booking is waiting for the host's approval") // nolint:wrapcheck
	default:
		return failure.InvalidState(fmt.Sprintf("booking is %s and cannot be paid", booking.Status)) // nolint:wrapcheck
	}
}

func (s *serviceImpl) HandleCallback(ctx context.Context, kind dto.CallbackKind, payload dto.CallbackPayload) (res dto.CallbackResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleCallback")
	defer scope.End()
	defer scope.TraceIfError(err)

	outcome, err := payload.Outcome(kind)
	if err != nil {
		return res, err
	}

	txn, err := s.get(ctx, payload.TransactionID)
	if err != nil {
		return res, err
	}

	log.Info().
		Str("transactionID", txn.ID).
		Str("kind", string(kind)).
		Str("status", string(txn.Status)).
		Msg("payment callback received")

	if outcome == model.StatusCompleted {
		return s.complete(ctx, txn, payload)
	}

	reason := dto.ReasonCancelled
	if outcome == model.StatusFailed {
		reason = dto.ReasonFailed

		if payload.Error != constant.Empty {
			reason = payload.Error
		}
	}

	return s.close(ctx, txn, outcome, reason, payload)
}

// complete verifies a success report with the gateway before settling the booking.
func (s *serviceImpl) complete(ctx context.Context, txn model.PaymentTransaction, payload dto.CallbackPayload) (res dto.CallbackResponse, err error) {
	switch txn.Status {
	case model.StatusCompleted:
		return duplicate(txn), nil
	case model.StatusPending:
	default:
		return s.capturedAfterClose(ctx, txn, payload)
	}

	if payload.ValidationID == constant.Empty {
		return res, failure.BadRequestFromString("val_id is required")
	}

	gatewayCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	validation, err := s.gateway.Validate(gatewayCtx, payload.ValidationID)
	if err != nil {
		log.Error().Err(err).Str("transactionID", txn.ID).Msg("failed to validate payment")

		return res, failure.Gateway(err) // nolint:wrapcheck
	}

	if validation.Status != gateway.ValidationValid {
		log.Warn().Str("transactionID", txn.ID).Str("validationID", payload.ValidationID).Msg("gateway did not confirm payment")

		return res, failure.VerificationMismatch(dto.MsgVerificationFailed) // nolint:wrapcheck
	}

	if validation.TransactionID != txn.ID || validation.Amount != txn.Amount || (validation.Currency != constant.Empty && validation.Currency != txn.Currency) {
		log.Warn().
			Str("transactionID", txn.ID).
			Str("validatedTransactionID", validation.TransactionID).
			Int64("amount", txn.Amount).
			Int64("validatedAmount", validation.Amount).
			Msg("payment verification mismatch")

		if _, err = s.close(ctx, txn, model.StatusFailed, dto.ReasonMismatch, payload); err != nil {
			return res, err
		}

		return res, failure.VerificationMismatch(dto.MsgVerificationFailed) // nolint:wrapcheck
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		res, err = s.settle(ctx, txn, validation, payload)

		return err
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	return res, nil
}

// capturedAfterClose handles a success report for a failed or cancelled transaction. The transaction
// stays closed; if the gateway confirms the charge anyway the money has to go back to the guest.
func (s *serviceImpl) capturedAfterClose(ctx context.Context, txn model.PaymentTransaction, payload dto.CallbackPayload) (res dto.CallbackResponse, err error) {
	closed := failure.InvalidState(fmt.Sprintf("payment is already %s", txn.Status))

	if payload.ValidationID == constant.Empty {
		return res, closed // nolint:wrapcheck
	}

	gatewayCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	validation, err := s.gateway.Validate(gatewayCtx, payload.ValidationID)
	if err != nil {
		log.Error().Err(err).Str("transactionID", txn.ID).Msg("failed to validate payment")

		return res, failure.Gateway(err) // nolint:wrapcheck
	}

	if validation.Status != gateway.ValidationValid || validation.TransactionID != txn.ID {
		return res, closed // nolint:wrapcheck
	}

	log.Warn().
		Str("transactionID", txn.ID).
		Str("status", string(txn.Status)).
		Int64("capturedAmount", validation.Amount).
		Msg("gateway captured a closed payment, refund required")

	s.emit(ctx, constant.TopicPaymentRefundRequired, txn)

	res.FromModel(txn)
	res.Message = dto.ReasonCapturedAfterClose

	return res, nil
}

// settle runs inside one unit of work. The booking row lock orders it against cancellation.
func (s *serviceImpl) settle(ctx context.Context, txn model.PaymentTransaction, validation gateway.Validation, payload dto.CallbackPayload) (res dto.CallbackResponse, err error) {
	booking, err := s.bookingRepo.GetForUpdate(ctx, shared.FilterByID(txn.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", txn.BookingID).Msg("failed to lock booking")

		return res, fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, fmt.Errorf("booking %s of payment %s is missing", txn.BookingID, txn.ID)
	}

	next, reason := model.StatusCompleted, constant.Empty

	switch {
	case booking.Status == bookingModel.StatusCancelled || booking.Status == bookingModel.StatusRejected:
		reason = dto.ReasonBookingEnded
	case booking.PaymentStatus == bookingModel.PaymentPaid:
		next, reason = model.StatusFailed, dto.ReasonAlreadyPaid
	}

	fields := map[string]any{
		model.FieldStatus:              next,
		model.FieldGatewayValidationID: validation.ValidationID,
		model.FieldRawGatewayPayload:   payload.RawJSON(),
		model.FieldFailureReason:       reason,
		model.FieldModifiedAt:          timezone.Now(),
		model.FieldModifiedBy:          constant.RoleSystem,
	}

	won, txn, err := s.transition(ctx, txn, fields)
	if err != nil {
		return res, err
	}

	if !won {
		if txn.Status == model.StatusCompleted {
			return duplicate(txn), nil
		}

		return res, failure.InvalidState(fmt.Sprintf("payment is already %s", txn.Status)) // nolint:wrapcheck
	}

	if reason != constant.Empty {
		log.Warn().Str("transactionID", txn.ID).Str("bookingID", booking.ID).Str("reason", reason).Msg("payment needs a refund")

		s.emit(ctx, constant.TopicPaymentRefundRequired, txn)

		res.FromModel(txn)

		return res, nil
	}

	if _, _, err = s.booking.MarkPaid(ctx, booking.ID); err != nil {
		return res, err //nolint:wrapcheck
	}

	if booking.CommissionAmount > 0 {
		_, err = s.ledger.Post(ctx, ledgerModel.LedgerEntry{
			Type:                ledgerModel.TypeCommission,
			ReferencedBookingID: ledgerModel.BookingRef(booking.ID),
			Amount:              booking.CommissionAmount,
			Note:                "commission for booking " + booking.TransactionRef,
			PostedBy:            constant.RoleSystem,
		})
		if err != nil {
			return res, err //nolint:wrapcheck
		}
	}

	s.emit(ctx, constant.TopicPaymentCompleted, txn)

	log.Info().Str("transactionID", txn.ID).Str("bookingID", booking.ID).Msg("payment completed")

	res.FromModel(txn)

	return res, nil
}

// close moves a pending transaction to failed or cancelled. Bookings are never touched.
func (s *serviceImpl) close(ctx context.Context, txn model.PaymentTransaction, next model.Status, reason string, payload dto.CallbackPayload) (res dto.CallbackResponse, err error) {
	fields := map[string]any{
		model.FieldStatus:            next,
		model.FieldRawGatewayPayload: payload.RawJSON(),
		model.FieldFailureReason:     reason,
		model.FieldModifiedAt:        timezone.Now(),
		model.FieldModifiedBy:        constant.RoleSystem,
	}

	won, txn, err := s.transition(ctx, txn, fields)
	if err != nil {
		return res, err
	}

	if !won {
		if txn.Status == next {
			return duplicate(txn), nil
		}

		return res, failure.InvalidState(fmt.Sprintf("payment is already %s", txn.Status)) // nolint:wrapcheck
	}

	s.emit(ctx, constant.TopicPaymentFailed, txn)

	log.Info().Str("transactionID", txn.ID).Str("status", string(next)).Str("reason", reason).Msg("payment closed")

	res.FromModel(txn)

	return res, nil
}

// transition compare-and-swaps a pending transaction and returns its state afterwards.
// won is false when another delivery moved it first.
func (s *serviceImpl) transition(ctx context.Context, txn model.PaymentTransaction, fields map[string]any) (won bool, res model.PaymentTransaction, err error) {
	affected, err := s.repo.UpdateCount(ctx, fields, pendingByID(txn.ID))
	if err != nil {
		log.Error().Err(err).Str("transactionID", txn.ID).Msg("failed to update payment transaction")

		return false, txn, fmt.Errorf("failed to update payment transaction: %w", err)
	}

	res, err = s.get(ctx, txn.ID)
	if err != nil {
		return false, txn, err
	}

	return affected > 0, res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.TransactionResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetPayment")
	defer scope.End()
	defer scope.TraceIfError(err)

	txn, err := s.get(ctx, id)
	if err != nil {
		return res, err
	}

	if err = s.authorize(ctx, txn.BookingID); err != nil {
		return res, err
	}

	res.FromModel(txn)

	return res, nil
}

func (s *serviceImpl) ListByBooking(ctx context.Context, bookingID string) (res []dto.TransactionResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListByBooking")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = s.authorize(ctx, bookingID); err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, gDto.QueryParams{SortBy: constant.FieldCreatedAt, SortDir: gDto.SortDirAsc}, gDto.And(gDto.Filter{
		Field:    model.FieldBookingID,
		Value:    bookingID,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	}))
	if err != nil {
		log.Error().Err(err).Str("bookingID", bookingID).Msg("failed to get payment transactions")

		return res, fmt.Errorf("failed to get payment transactions: %w", err)
	}

	res = make([]dto.TransactionResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res, nil
}

// authorize lets the booking's guest and host, admins and internal callers read its payments.
func (s *serviceImpl) authorize(ctx context.Context, bookingID string) error {
	actor := gDto.ActorFromContext(ctx)
	if actor.IsAdmin() || actor.IsSystem() {
		return nil
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if !actor.Is(booking.GuestID) && !actor.Is(booking.HostID) {
		return failure.ResourceRestrictedError
	}

	return nil
}

func (s *serviceImpl) get(ctx context.Context, id string) (model.PaymentTransaction, error) {
	txn, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("transactionID", id).Msg("failed to get payment transaction")

		return txn, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	if txn.ID == constant.Empty {
		return txn, failure.NotFound(model.EntityName) // nolint:wrapcheck
	}

	return txn, nil
}

func (s *serviceImpl) getBooking(ctx context.Context, id string) (bookingModel.Booking, error) {
	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(id, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(bookingModel.EntityName) // nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.cfg.Payment.TimeoutSeconds)*time.Second)
}

func (s *serviceImpl) emit(ctx context.Context, topic string, txn model.PaymentTransaction) {
	var payload dto.PaymentEvent
	payload.FromModel(txn)

	s.publisher.Publish(ctx, topic, txn.BookingID, payload)
}

func pendingByID(id string) gDto.FilterGroup {
	return gDto.And(
		gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		gDto.Filter{Field: model.FieldStatus, Value: model.StatusPending, Operator: gDto.FilterOperatorEq, Table: model.TableName},
	)
}

func duplicate(txn model.PaymentTransaction) dto.CallbackResponse {
	var res dto.CallbackResponse
	res.FromModel(txn)
	res.Duplicate = true

	return res
}
