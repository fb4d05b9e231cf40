package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/bet-service/profile"
	"github.com/radieske/betwise-platform/internal/gateway"
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
	"github.com/radieske/betwise-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("reconciliation-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	paymentWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentCompleted)
	defer paymentWriter.Close()
	betWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer betWriter.Close()

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

	// Métricas Prometheus da varredura de pendências
	scanned := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconcile_transactions_scanned_total", Help: "pendências varridas"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconcile_transactions_settled_total", Help: "liquidadas pela varredura"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconcile_transactions_failed_total", Help: "marcadas como failed"})
	errorsC := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconcile_errors_total", Help: "erros de resolução"})
	prometheus.MustRegister(scanned, settled, failed, errorsC)

	// Servidor HTTP leve para métricas e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	// Varredura: pendências antigas demais são checadas contra o gateway.
	// O usuário pode ter pago e nunca voltado do checkout, e o IPN pode
	// ter se perdido; esta é a terceira via de entrega.
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		pending, err := payRepo.ListStalePending(ctx, cfg.ReconcileMinAge, 100)
		if err != nil {
			log.Error("list stale pending", zap.Error(err))
			errorsC.Inc()
			return
		}

		for _, tx := range pending {
			scanned.Inc()
			outcome, err := reconciler.Resolve(ctx, tx.ID, tx.GatewayOrderID)
			if err != nil {
				log.Error("reconcile resolve", zap.String("reference", tx.ID), zap.Error(err))
				errorsC.Inc()
				continue
			}
			switch outcome {
			case reconcile.OutcomeSettled:
				settled.Inc()
				log.Info("stale transaction settled", zap.String("reference", tx.ID))
			case reconcile.OutcomeFailed:
				failed.Inc()
				log.Info("stale transaction failed", zap.String("reference", tx.ID))
			}
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileSchedule, run); err != nil {
		log.Fatal("cron schedule", zap.String("schedule", cfg.ReconcileSchedule), zap.Error(err))
	}
	c.Start()

	log.Info("reconciliation-worker started",
		zap.String("schedule", cfg.ReconcileSchedule),
		zap.Duration("min_age", cfg.ReconcileMinAge),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	<-c.Stop().Done()
	log.Info("reconciliation-worker stopped")
}
