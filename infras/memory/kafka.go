package memory

import (
	"context"
	"sync"
	"thakajabe/infras/kafka"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

// Broker is a process-local kafka.Client. Sent messages are recorded per topic and fanned
// out to every running consumer of that topic.
type Broker struct {
	mu          sync.Mutex
	sent        map[string][]kafkaGo.Message
	subscribers map[string][]chan kafkaGo.Message
}

func NewBroker() *Broker {
	return &Broker{
		sent:        map[string][]kafkaGo.Message{},
		subscribers: map[string][]chan kafkaGo.Message{},
	}
}

func (b *Broker) SendMessages(_ context.Context, topic string, messages ...kafka.Message) error {
	encoded := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		msg, err := message.ToKafkaMessage(topic)
		if err != nil {
			return err
		}

		encoded = append(encoded, msg)
	}

	b.mu.Lock()
	b.sent[topic] = append(b.sent[topic], encoded...)
	subscribers := append([]chan kafkaGo.Message{}, b.subscribers[topic]...)
	b.mu.Unlock()

	for _, subscriber := range subscribers {
		for _, msg := range encoded {
			subscriber <- msg
		}
	}

	return nil
}

// Consume delivers messages sent after it started until ctx is done. A failed message is logged and dropped.
func (b *Broker) Consume(ctx context.Context, _, topic string, handler kafka.Handler) {
	inbox := make(chan kafkaGo.Message, 64)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], inbox)
	b.mu.Unlock()

	defer b.unsubscribe(topic, inbox)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbox:
			if err := handler(ctx, msg); err != nil {
				log.Error().Err(err).Str("topic", topic).Str("key", string(msg.Key)).Msg("Failed to handle in-memory message.")
			}
		}
	}
}

func (b *Broker) unsubscribe(topic string, inbox chan kafkaGo.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[topic]
	for i, subscriber := range subscribers {
		if subscriber == inbox {
			b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)

			return
		}
	}
}

func (b *Broker) Close() error {
	return nil
}

// Sent returns a copy of every message sent to topic.
func (b *Broker) Sent(topic string) []kafkaGo.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]kafkaGo.Message{}, b.sent[topic]...)
}
