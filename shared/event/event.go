package event

import (
	"context"
	"encoding/json"
	"fmt"
	"thakajabe/config"
	"thakajabe/infras/kafka"
	gRepo "thakajabe/shared/repository"
	"thakajabe/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const schemaVersion = "v1"

// Envelope wraps every domain event published by the service.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PartitionKey  string          `json:"partition_key"`
	SourceService string          `json:"source_service"`
	TraceID       string          `json:"trace_id,omitempty"`
	SchemaVersion string          `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// Decode unmarshals the envelope payload into out.
func (e Envelope) Decode(out any) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}

	return nil
}

type Publisher interface {
	// Publish sends the event once the unit of work in ctx commits. It never fails the caller.
	Publish(ctx context.Context, topic, key string, data any)
}

type publisher struct {
	client kafka.Client
	cfg    *config.Config
}

func NewPublisher(client kafka.Client, cfg *config.Config) Publisher {
	return &publisher{
		client: client,
		cfg:    cfg,
	}
}

func (p *publisher) Publish(ctx context.Context, topic, key string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to marshal event payload")

		return
	}

	envelope := Envelope{
		EventID:       uuid.NewString(),
		EventType:     topic,
		OccurredAt:    timezone.Now(),
		PartitionKey:  key,
		SourceService: p.cfg.App.Name,
		SchemaVersion: schemaVersion,
		Data:          payload,
	}

	if spanContext := oteltrace.SpanContextFromContext(ctx); spanContext.HasTraceID() {
		envelope.TraceID = spanContext.TraceID().String()
	}

	gRepo.AfterCommit(ctx, func(ctx context.Context) {
		go func() {
			err := p.client.SendMessages(ctx, topic, kafka.Message{Key: key, Value: envelope})
			if err != nil {
				log.Error().Err(err).Str("topic", topic).Str("key", key).Msg("failed to publish event")
			}
		}()
	})
}
