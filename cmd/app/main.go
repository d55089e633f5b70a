package main

import (
	"thakajabe/config"
	"thakajabe/di"
	"thakajabe/shared/constant"
	"thakajabe/shared/logger"
)

// @title Thakajabe Booking API
// @version 1.0
// @description Bookings, gateway payments and the platform ledger for short-term rentals.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if cfg.DB.Driver == constant.DBDriverMemory {
		di.InitializeMemoryService().Serve()

		return
	}

	http := di.InitializeService()
	http.Serve()
}
