package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/bookverse/bookverse/internal/notification/application"
	notifkafka "github.com/bookverse/bookverse/internal/notification/infrastructure/kafka"
	"github.com/bookverse/bookverse/pkg/idempotency"
	"github.com/bookverse/bookverse/pkg/logging"
	"github.com/bookverse/bookverse/pkg/shutdown"
	"github.com/bookverse/bookverse/pkg/tracing"
)

func main() {
	_ = godotenv.Load()
	log := logging.New("notifier")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	kafkaAddr := env("KAFKA_ADDR", "localhost:9092")
	redisAddr := env("REDIS_ADDR", "localhost:6379")
	orderTopic := env("ORDER_TOPIC", "order.events")
	otlpURL := env("OTLP_URL", "http://localhost:4318")

	tp, err := tracing.Init(ctx, "notifier", otlpURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	redisDB := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisDB.Close()
	idem := idempotency.NewStore(redisDB, 24*time.Hour)

	svc := application.NewService(log)
	consumer := notifkafka.NewConsumer(log, []string{kafkaAddr}, orderTopic, "notifier", svc, idem)

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("notifier shutdown")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
