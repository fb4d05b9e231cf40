package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	ahttp "github.com/radieske/betwise-platform/internal/admin-service/http"
	arepo "github.com/radieske/betwise-platform/internal/admin-service/repo"
	"github.com/radieske/betwise-platform/internal/bet-service/profile"
	"github.com/radieske/betwise-platform/internal/settlement"
	"github.com/radieske/betwise-platform/internal/settlement/producer"
	srepo "github.com/radieske/betwise-platform/internal/settlement/repo"
	sharedcache "github.com/radieske/betwise-platform/internal/shared/cache"
	"github.com/radieske/betwise-platform/internal/shared/config"
	"github.com/radieske/betwise-platform/internal/shared/db"
	"github.com/radieske/betwise-platform/internal/shared/kafka"
	"github.com/radieske/betwise-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("admin-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "admin-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka producers pros eventos emitidos pela resolução de apostas
	paymentWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentCompleted)
	defer paymentWriter.Close()
	betWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer betWriter.Close()

	engine := settlement.NewEngine(log, srepo.NewPostgres(pg),
		producer.NewKafkaPublisher(paymentWriter, betWriter),
		profile.New(redisClient, 30*time.Second),
	)
	api := ahttp.NewServer(log, arepo.NewPostgres(pg), engine)

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8085
		Handler: api.Router(),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.PingContext(ctx); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux} // ex: 9101

	go func() {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics srv", zap.Error(err))
		}
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
