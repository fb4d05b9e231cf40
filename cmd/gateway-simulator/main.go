package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/shared/config"
	"github.com/radieske/betwise-platform/internal/shared/logger"
	"github.com/radieske/betwise-platform/internal/shared/metrics"
)

var (
	// Métricas Prometheus do ciclo de vida dos pedidos simulados
	ordersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_orders_created_total",
		Help: "Pedidos de pagamento criados",
	})
	ordersCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_orders_completed_total",
		Help: "Pedidos auto-completados",
	})
	ipnPushed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_ipn_pushed_total",
		Help: "IPNs enviados ao payment-service, por resultado",
	}, []string{"result"})
)

// Pedido simulado em memória; o simulador faz o papel do PesaPal local.
type simOrder struct {
	TrackingID  string
	Reference   string
	Amount      float64
	CallbackURL string
	Status      string // PENDING | COMPLETED
	CreatedAt   time.Time
}

// orderBook guarda os pedidos submetidos e serve as consultas de status.
type orderBook struct {
	mu     sync.RWMutex
	orders map[string]*simOrder
}

func newOrderBook() *orderBook {
	return &orderBook{orders: make(map[string]*simOrder)}
}

func (b *orderBook) add(o *simOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.TrackingID] = o
	ordersCreated.Inc()
}

func (b *orderBook) complete(trackingID string) *simOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[trackingID]
	if !ok || o.Status != "PENDING" {
		return nil
	}
	o.Status = "COMPLETED"
	ordersCompleted.Inc()
	return o
}

func (b *orderBook) get(trackingID string) *simOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.orders[trackingID]
}

func main() {
	cfg := config.Load()
	log, err := logger.New("gateway-simulator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(ordersCreated, ordersCompleted, ipnPushed)

	book := newOrderBook()

	mux := http.NewServeMux()

	// Mesmos caminhos da API PesaPal, pra apontar PESAPAL_BASE_URL pra cá
	mux.HandleFunc("/api/Auth/RequestToken", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{
			"token":      uuid.NewString(),
			"expiryDate": time.Now().Add(5 * time.Minute).Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/api/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ID          string  `json:"id"`
			Amount      float64 `json:"amount"`
			CallbackURL string  `json:"callback_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		o := &simOrder{
			TrackingID:  "SIM_" + uuid.NewString(),
			Reference:   req.ID,
			Amount:      req.Amount,
			CallbackURL: req.CallbackURL,
			Status:      "PENDING",
			CreatedAt:   time.Now(),
		}
		book.add(o)
		log.Info("order created", zap.String("tracking_id", o.TrackingID), zap.String("reference", o.Reference))

		// Completa sozinho após o delay e empurra o IPN, como o provedor real
		go func(trackingID string) {
			time.Sleep(cfg.SimulatorDelay)
			done := book.complete(trackingID)
			if done == nil {
				return
			}
			log.Info("order completed", zap.String("tracking_id", trackingID))
			pushIPN(log, cfg.IPNTargetURL, done)
		}(o.TrackingID)

		// redirect_url volta direto pro callback do payment-service
		writeJSON(w, map[string]any{
			"order_tracking_id": o.TrackingID,
			"redirect_url":      req.CallbackURL + "?OrderTrackingId=" + o.TrackingID + "&OrderMerchantReference=" + o.Reference,
		})
	})

	mux.HandleFunc("/api/Transactions/GetTransactionStatus", func(w http.ResponseWriter, r *http.Request) {
		o := book.get(r.URL.Query().Get("orderTrackingId"))
		if o == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"order_tracking_id":          o.TrackingID,
			"payment_status_description": o.Status,
			"amount":                     o.Amount,
			"created_date":               o.CreatedAt.Format(time.RFC3339),
		})
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error { return nil })

	addr := ":" + cfg.HTTPPort // ex: 8086
	log.Info("gateway-simulator listening", zap.String("addr", addr), zap.Duration("delay", cfg.SimulatorDelay))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("http", zap.Error(err))
	}
}

// pushIPN notifica o payment-service do desfecho, como o PesaPal faria.
func pushIPN(log *zap.Logger, target string, o *simOrder) {
	payload, _ := json.Marshal(map[string]any{
		"OrderTrackingId":        o.TrackingID,
		"OrderMerchantReference": o.Reference,
		"status":                 o.Status,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Warn("ipn push", zap.String("tracking_id", o.TrackingID), zap.Error(err))
		ipnPushed.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn("ipn push rejected", zap.String("tracking_id", o.TrackingID), zap.Int("status", resp.StatusCode))
		ipnPushed.WithLabelValues("rejected").Inc()
		return
	}
	ipnPushed.WithLabelValues("ok").Inc()
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
