package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/bet-service/profile"
	"github.com/radieske/betwise-platform/internal/gateway"
	phttp "github.com/radieske/betwise-platform/internal/payment-service/http"
	prepo "github.com/radieske/betwise-platform/internal/payment-service/repo"
	"github.com/radieske/betwise-platform/internal/reconcile"
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

	// Inicializa logger estruturado
	log, err := logger.New("payment-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "payment-service"), zap.String("env", cfg.Env))

	// Conexão com Postgres para transações de pagamento e liquidação
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis para invalidação do cache de perfil após mutação de carteira
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka producers: eventos payment_completed e bet_settled
	paymentWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentCompleted)
	defer paymentWriter.Close()
	betWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer betWriter.Close()

	// Cliente do gateway conforme PAYMENT_PROVIDER
	gw, err := gateway.New(cfg)
	if err != nil {
		log.Fatal("gateway init", zap.Error(err))
	}

	payRepo := prepo.NewPostgres(pg)
	engine := settlement.NewEngine(log, srepo.NewPostgres(pg),
		producer.NewKafkaPublisher(paymentWriter, betWriter),
		profile.New(redisClient, 30*time.Second),
	)
	reconciler := reconcile.New(log, payRepo, gw, engine)

	api := phttp.NewServer(log, payRepo, gw, reconciler, phttp.Opts{
		MinDepositCents:        cfg.MinDepositCents,
		SubscriptionPriceCents: cfg.SubscriptionPriceCents,
		CallbackURL:            cfg.CallbackBaseURL + "/payments/callback",
		FrontendBaseURL:        cfg.FrontendBaseURL,
	})

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8084
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux} // ex: 9100

	go func() {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics srv", zap.Error(err))
		}
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.String("provider", cfg.PaymentProvider))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
