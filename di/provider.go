package di

import (
	"thakajabe/config"
	"thakajabe/infras/kafka"
	"thakajabe/infras/memory"

	"github.com/rs/zerolog/log"
)

// provideKafkaClient falls back to the in-process broker when Kafka is switched off.
func provideKafkaClient(cfg *config.Config) kafka.Client {
	if !cfg.Kafka.Enable {
		log.Warn().Msg("Kafka is disabled, events stay in process.")

		return memory.NewBroker()
	}

	return kafka.New(cfg)
}
