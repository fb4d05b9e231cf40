package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/gateway"
	"github.com/radieske/betwise-platform/internal/payment-service/dto"
	"github.com/radieske/betwise-platform/internal/payment-service/phone"
	"github.com/radieske/betwise-platform/internal/payment-service/repo"
	"github.com/radieske/betwise-platform/internal/reconcile"
)

// Repo define a persistência de payment_transactions usada pelo handler.
type Repo interface {
	CreatePending(ctx context.Context, t *repo.PaymentTransaction) error
	ListByUser(ctx context.Context, userID string, limit int) ([]repo.PaymentTransaction, error)
}

// Resolver é o fluxo compartilhado de resolução callback/IPN.
type Resolver interface {
	Resolve(ctx context.Context, reference, gatewayOrderID string) (reconcile.Outcome, error)
}

// Opts são os parâmetros de negócio e URLs do serviço de pagamento.
type Opts struct {
	MinDepositCents        int64
	SubscriptionPriceCents int64
	CallbackURL            string // URL pública de /payments/callback
	FrontendBaseURL        string
}

// Server expõe a API HTTP de pagamentos: iniciação, callback e IPN.
type Server struct {
	log      *zap.Logger
	repo     Repo
	gw       gateway.Client
	resolver Resolver
	opts     Opts
}

func NewServer(log *zap.Logger, r Repo, gw gateway.Client, resolver Resolver, opts Opts) *Server {
	return &Server{log: log, repo: r, gw: gw, resolver: resolver, opts: opts}
}

// Router retorna o mux HTTP com as rotas da API de pagamento.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/payments/deposit/initiate", s.initiateDeposit)           // POST
	mux.HandleFunc("/payments/subscription/initiate", s.initiateSubscription) // POST
	mux.HandleFunc("/payments/callback", s.callback)                          // GET/POST (retorno do navegador)
	mux.HandleFunc("/payments/ipn", s.ipn)                                    // POST (push do gateway)
	mux.HandleFunc("/payments/transactions", s.listTransactions)              // GET ?userId=...
	return mux
}

// initiateDeposit inicia um depósito na carteira.
func (s *Server) initiateDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.InitiateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	// Validação antes de qualquer chamada ao gateway
	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	if req.AmountCents < s.opts.MinDepositCents {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("minimum deposit is KES %d", s.opts.MinDepositCents/100))
		return
	}

	reference := fmt.Sprintf("DEP_%s_%d", req.UserID, time.Now().UnixMilli())
	description := fmt.Sprintf("Wallet deposit of KES %d", req.AmountCents/100)

	s.initiate(w, r, reference, repo.TypeDeposit, req.UserID, req.AmountCents, msisdn, description)
}

// initiateSubscription inicia o pagamento da assinatura diária (valor fixo).
func (s *Server) initiateSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.InitiateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	reference := fmt.Sprintf("SUB_%s_%d", req.UserID, time.Now().UnixMilli())
	description := "Daily subscription for sure odds access"

	s.initiate(w, r, reference, repo.TypeSubscription, req.UserID, s.opts.SubscriptionPriceCents, msisdn, description)
}

// initiate submete o pedido ao gateway e persiste o registro pending antes
// de devolver o checkout. Falha do gateway não cria linha nenhuma: não há
// o que reconciliar depois, o caller só tenta de novo.
func (s *Server) initiate(w http.ResponseWriter, r *http.Request, reference, ptype, userID string, amountCents int64, msisdn, description string) {
	order, err := s.gw.SubmitOrder(r.Context(), gateway.OrderRequest{
		Reference:   reference,
		AmountCents: amountCents,
		Currency:    "KES",
		PhoneNumber: msisdn,
		Description: description,
		CallbackURL: s.opts.CallbackURL,
	})
	if err != nil {
		var authErr *gateway.AuthError
		if errors.As(err, &authErr) {
			// Credenciais rejeitadas: nunca expor detalhe pro caller
			s.log.Error("gateway auth failed", zap.String("reference", reference))
			writeJSONStatus(w, http.StatusBadGateway, dto.InitiateResponse{
				Success: false, Error: "payment temporarily unavailable",
			})
			return
		}
		s.log.Warn("gateway submit order failed", zap.String("reference", reference), zap.Error(err))
		writeJSONStatus(w, http.StatusBadGateway, dto.InitiateResponse{
			Success: false, Error: "payment initiation failed",
		})
		return
	}

	err = s.repo.CreatePending(r.Context(), &repo.PaymentTransaction{
		ID:             reference,
		UserID:         userID,
		Type:           ptype,
		AmountCents:    amountCents,
		GatewayOrderID: order.OrderTrackingID,
		PhoneNumber:    msisdn,
		Description:    description,
	})
	if err != nil {
		// Pedido existe no gateway sem linha local: a trilha de auditoria
		// some se isto passar quieto
		s.log.Error("persist pending transaction failed",
			zap.String("reference", reference),
			zap.String("gateway_order_id", order.OrderTrackingID),
			zap.Error(err),
		)
		writeJSONStatus(w, http.StatusInternalServerError, dto.InitiateResponse{
			Success: false, Error: "payment initiation failed",
		})
		return
	}

	writeJSON(w, dto.InitiateResponse{
		Success:     true,
		Reference:   reference,
		CheckoutURL: order.CheckoutURL,
	})
}

// callback é o retorno do navegador após o checkout. A resposta é um
// redirect pra página de resultado do frontend, nunca JSON cru.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reference := q.Get("reference")
	if reference == "" {
		reference = q.Get("OrderMerchantReference")
	}
	orderID := q.Get("OrderTrackingId")
	if orderID == "" {
		orderID = q.Get("token") // variante PayPal
	}

	outcome, err := s.resolver.Resolve(r.Context(), reference, orderID)

	var uiStatus string
	switch {
	case err != nil:
		// A transação ainda pode completar de forma assíncrona; a UI mostra
		// "pagamento em processamento", não um erro duro
		uiStatus = "pending"
	case outcome == reconcile.OutcomeSettled, outcome == reconcile.OutcomeAlreadyFinal:
		uiStatus = "success"
	case outcome == reconcile.OutcomeFailed:
		uiStatus = "failed"
	default:
		uiStatus = "pending"
	}

	dest := s.opts.FrontendBaseURL + "/payment/result?status=" + url.QueryEscape(uiStatus)
	if reference != "" {
		dest += "&reference=" + url.QueryEscape(reference)
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// ipn recebe o push assíncrono do gateway. Responde 200 em qualquer
// processamento bem-sucedido (inclusive referência desconhecida, pra parar
// o reenvio); não-200 só pra corpo malformado ou liquidação que falhou e
// precisa de reentrega.
func (s *Server) ipn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var n dto.IPNNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	outcome, err := s.resolver.Resolve(r.Context(), n.LocalReference(), n.OrderID())
	if err != nil {
		// Liquidação falhou com pagamento confirmado: o registro segue
		// pending e o reenvio do IPN tenta de novo
		http.Error(w, "settlement failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, dto.IPNAck{Received: true, Outcome: string(outcome)})
}

// listTransactions devolve o histórico de pagamentos do usuário.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	txs, err := s.repo.ListByUser(r.Context(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dto.TransactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, dto.TransactionView{
			ID:          t.ID,
			UserID:      t.UserID,
			Type:        t.Type,
			AmountCents: t.AmountCents,
			Status:      t.Status,
			PhoneNumber: t.PhoneNumber,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, dto.InitiateResponse{Success: false, Error: msg})
}
