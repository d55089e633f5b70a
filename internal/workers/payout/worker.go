package payout

import (
	"context"
	"fmt"
	"thakajabe/config"
	"thakajabe/infras/kafka"
	"thakajabe/infras/otel"
	"thakajabe/internal/domains/payout/model/dto"
	"thakajabe/internal/domains/payout/service"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/event"
	"thakajabe/shared/failure"
	"thakajabe/shared/validator"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

// Worker applies payout.approved events from the payout processor.
type Worker struct {
	client  kafka.Client
	service service.Payout
	cfg     *config.Config
	otel    otel.Otel
}

func New(client kafka.Client, service service.Payout, cfg *config.Config, otel otel.Otel) *Worker {
	return &Worker{
		client:  client,
		service: service,
		cfg:     cfg,
		otel:    otel,
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Str("topic", constant.TopicPayoutApproved).Str("group", w.cfg.Kafka.ConsumerGroup).Msg("Starting payout worker.")

	w.client.Consume(ctx, w.cfg.Kafka.ConsumerGroup, constant.TopicPayoutApproved, w.Handle)

	log.Info().Msg("Payout worker stopped.")
}

// Handle approves the payout named by one message. Malformed messages and requests that can
// never be approved are logged and committed; anything else is returned for redelivery.
func (w *Worker) Handle(ctx context.Context, message kafkaGo.Message) (err error) {
	ctx, scope := w.otel.NewScope(ctx, constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PayoutApproved")
	defer scope.End()
	defer scope.TraceIfError(err)

	envelope, err := kafka.Decode[event.Envelope](message)
	if err != nil {
		log.Error().Err(err).Str("key", string(message.Key)).Msg("dropping undecodable payout event")

		return nil
	}

	payload := dto.PayoutApprovedEvent{}

	if err = envelope.Decode(&payload); err != nil {
		log.Error().Err(err).Str("eventID", envelope.EventID).Msg("dropping undecodable payout event")

		return nil
	}

	if err = validator.ValidateStruct(&payload); err != nil {
		log.Error().Err(err).Str("eventID", envelope.EventID).Msg("dropping invalid payout event")

		return nil
	}

	scope.SetAttributes(map[string]any{
		"payout.id":        payload.PayoutID,
		"payout.reference": payload.Reference,
	})

	ctx = gDto.WithActor(ctx, gDto.Actor{UserID: constant.RoleSystem, Role: constant.RoleSystem})

	_, err = w.service.Approve(ctx, payload.PayoutID)

	switch {
	case err == nil:
		log.Info().Str("payoutID", payload.PayoutID).Str("reference", payload.Reference).Msg("payout approved by processor")

		return nil
	case failure.Is(err, failure.KindNotFound), failure.Is(err, failure.KindState):
		log.Warn().Err(err).Str("payoutID", payload.PayoutID).Msg("payout event cannot be applied")

		return nil
	default:
		return fmt.Errorf("failed to approve payout %s: %w", payload.PayoutID, err)
	}
}
