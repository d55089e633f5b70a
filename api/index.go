package handler

import (
	"net/http"
	"sync"
	"thakajabe/config"
	"thakajabe/di"
	"thakajabe/shared/constant"
	"thakajabe/shared/logger"
	transport "thakajabe/transport/http"
)

var (
	once   sync.Once
	server *transport.HTTP
)

// Handler is the serverless entry point. Warm invocations reuse the wired server.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger()

		logger.SetLogLevel(cfg)

		if cfg.DB.Driver == constant.DBDriverMemory {
			server = di.InitializeMemoryService()

			return
		}

		server = di.InitializeService()
	})

	server.ServeHTTP(w, r)
}
