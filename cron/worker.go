package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"adspot/config"
	"adspot/models"
	"adspot/services/reservation"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeLifecycleSweep = "reservation:sweep"
	TypeRefundRetry    = "payment:refund"
)

// refundPayload is the task body for a deferred refund.
type refundPayload struct {
	ReservationID string `json:"reservation_id"`
	ChargeRef     string `json:"charge_ref"`
}

// AsynqRefundScheduler queues refunds whose inline submission failed. Tasks
// retry with asynq's backoff until the provider accepts the refund.
type AsynqRefundScheduler struct {
	client *asynq.Client
}

func NewAsynqRefundScheduler() *AsynqRefundScheduler {
	return &AsynqRefundScheduler{
		client: asynq.NewClient(redisOpts()),
	}
}

func (s *AsynqRefundScheduler) ScheduleRefund(ctx context.Context, reservationID string, ref models.ChargeRef) error {
	payload, err := json.Marshal(refundPayload{ReservationID: reservationID, ChargeRef: string(ref)})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeRefundRetry, payload)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(10),
		asynq.Retention(24*time.Hour),
	)
	return err
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitLifecycleWorker runs the async worker in background: it processes
// deferred refunds and fires the periodic lifecycle sweep that moves
// accepted bookings live and live bookings to completed.
func InitLifecycleWorker(svc reservation.Service, gateway reservation.PaymentGateway, logger *zap.Logger) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRefundRetry, handleRefundTask(gateway, logger))
	mux.HandleFunc(TypeLifecycleSweep, handleSweepTask(svc, logger))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Enqueue the sweep on a fixed interval.
	go runSweepScheduler(logger)

	// Start async worker with retry logic
	go func() {
		log.Println("[LifecycleWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[LifecycleWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[LifecycleWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// runSweepScheduler enqueues one sweep task per interval. Unique guards
// against pile-up when a sweep outlives the interval.
func runSweepScheduler(logger *zap.Logger) {
	interval := time.Duration(config.AppConfig.SweepIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	client := asynq.NewClient(redisOpts())
	defer client.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		task := asynq.NewTask(TypeLifecycleSweep, nil)
		if _, err := client.Enqueue(task, asynq.Unique(interval)); err != nil {
			logger.Warn("failed to enqueue lifecycle sweep", zap.Error(err))
		}
	}
}

func handleSweepTask(svc reservation.Service, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		result, err := svc.RunLifecycleSweep(ctx)
		if err != nil {
			logger.Error("lifecycle sweep failed", zap.Error(err))
			return err
		}
		logger.Info("lifecycle sweep done",
			zap.Int("wentLive", result.WentLive),
			zap.Int("completed", result.Completed),
		)
		return nil
	}
}

func handleRefundTask(gateway reservation.PaymentGateway, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p refundPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid refund payload", zap.Error(err))
			return fmt.Errorf("invalid refund payload: %w", err)
		}

		if err := gateway.Refund(ctx, models.ChargeRef(p.ChargeRef)); err != nil {
			logger.Warn("refund retry failed, will back off",
				zap.String("reservationId", p.ReservationID),
				zap.String("chargeRef", p.ChargeRef),
				zap.Error(err),
			)
			return err
		}

		logger.Info("deferred refund submitted",
			zap.String("reservationId", p.ReservationID),
			zap.String("chargeRef", p.ChargeRef),
		)
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[LifecycleWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
