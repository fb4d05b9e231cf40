package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	bhttp "github.com/radieske/betwise-platform/internal/bet-service/http"
	"github.com/radieske/betwise-platform/internal/bet-service/producer"
	"github.com/radieske/betwise-platform/internal/bet-service/profile"
	brepo "github.com/radieske/betwise-platform/internal/bet-service/repo"
	sharedcache "github.com/radieske/betwise-platform/internal/shared/cache"
	"github.com/radieske/betwise-platform/internal/shared/config"
	"github.com/radieske/betwise-platform/internal/shared/db"
	"github.com/radieske/betwise-platform/internal/shared/kafka"
	"github.com/radieske/betwise-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("bet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "bet-service"), zap.String("env", cfg.Env))

	// Conexão com Postgres para apostas, jogos e perfis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis para o cache de perfil (saldo + acesso diário)
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka producer: evento bet_placed
	placedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()

	repo := brepo.NewPostgres(pg)
	cache := profile.New(redisClient, 30*time.Second)
	api := bhttp.NewServer(log, repo, cache, cfg.MinStakeCents, producer.NewKafkaPublisher(placedWriter))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8083
		Handler: api.Router(),
	}

	// Servidor de métricas e health check
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.PingContext(ctx); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux} // ex: 9099

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
