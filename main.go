// File: adspot/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adspot/config"
	"adspot/cron"
	"adspot/database"
	reservationRepo "adspot/database/repository/reservation"
	"adspot/handlers"
	"adspot/routes"
	"adspot/services/reservation"
	"adspot/utils"

	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	stripe.Key = config.AppConfig.StripeKey

	// Repository.
	store := reservationRepo.NewMongoReservationStore()
	if err := store.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure reservation indexes: %v", err)
	}

	// Payments: real Stripe when a key is configured, simulated otherwise.
	var gateway reservation.PaymentGateway
	if config.AppConfig.StripeKey != "" {
		gateway = reservation.NewStripeGateway(logger)
	} else {
		logger.Warn("no Stripe key configured, using simulated payment gateway")
		gateway = &reservation.SimulatedGateway{Logger: logger}
	}

	reservationService := &reservation.DefaultReservationService{
		Store:       store,
		Payments:    gateway,
		Notifier:    &reservation.LogNotifier{Logger: logger},
		RefundRetry: cron.NewAsynqRefundScheduler(),
		Logger:      logger,
		TxnAttempts: config.AppConfig.AcceptTxnAttempts,
	}

	// Background worker: deferred refunds and the lifecycle sweep.
	cron.InitLifecycleWorker(reservationService, gateway, logger)
	utils.StartHealthMonitor([]*redis.Client{utils.GetCacheClient()}, database.MongoClient)

	reservationHandler := handlers.NewReservationHandler(reservationService, logger)
	router := routes.SetupRouter(reservationHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
