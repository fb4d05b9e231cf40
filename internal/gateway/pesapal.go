package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// PesapalConfig são as credenciais e endereço da API PesaPal v3.
type PesapalConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// Pesapal implementa Client sobre a API PesaPal v3.
// Token de acesso é curto; obtido a cada chamada, sem cache local.
type Pesapal struct {
	cfg  PesapalConfig
	http *http.Client
}

func NewPesapal(cfg PesapalConfig) *Pesapal {
	return &Pesapal{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Mapa fixo de status do provedor; desconhecido vira pending, nunca completed.
var pesapalStatus = map[string]Status{
	"COMPLETED": StatusCompleted,
	"PENDING":   StatusPending,
	"FAILED":    StatusFailed,
	"CANCELLED": StatusFailed,
	"INVALID":   StatusFailed,
}

type pesapalTokenResp struct {
	Token string `json:"token"`
}

type pesapalOrderResp struct {
	OrderTrackingID string `json:"order_tracking_id"`
	RedirectURL     string `json:"redirect_url"`
	Error           any    `json:"error"`
}

type pesapalStatusResp struct {
	OrderTrackingID          string `json:"order_tracking_id"`
	PaymentStatusDescription string `json:"payment_status_description"`
}

// getAccessToken troca as credenciais por um bearer token de curta duração.
// O endpoint já foi visto devolvendo HTML em erro; body ilegível é AuthError.
func (p *Pesapal) getAccessToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"consumer_key":    p.cfg.ConsumerKey,
		"consumer_secret": p.cfg.ConsumerSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/Auth/RequestToken", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.doWithRetry(req, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &AuthError{Detail: fmt.Sprintf("token request http %d", resp.StatusCode)}
	}

	var out pesapalTokenResp
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" {
		return "", &AuthError{Detail: "token response is not valid JSON"}
	}
	return out.Token, nil
}

func (p *Pesapal) SubmitOrder(ctx context.Context, o OrderRequest) (Order, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return Order{}, err
	}

	payload := map[string]any{
		"id":              o.Reference,
		"currency":        o.Currency,
		"amount":          amountValue(o.AmountCents),
		"description":     o.Description,
		"callback_url":    o.CallbackURL,
		"notification_id": o.Reference,
		"billing_address": map[string]any{
			"phone_number": o.PhoneNumber,
			"country_code": "KE",
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/Transactions/SubmitOrderRequest", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.doWithRetry(req, body)
	if err != nil {
		return Order{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return Order{}, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	var out pesapalOrderResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return Order{}, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}
	if out.OrderTrackingID == "" {
		return Order{}, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	return Order{OrderTrackingID: out.OrderTrackingID, CheckoutURL: out.RedirectURL}, nil
}

func (p *Pesapal) QueryStatus(ctx context.Context, orderTrackingID string) (Status, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return StatusPending, err
	}

	u := p.cfg.BaseURL + "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(orderTrackingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return StatusPending, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.doWithRetry(req, nil)
	if err != nil {
		return StatusPending, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return StatusPending, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	var out pesapalStatusResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return StatusPending, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	if st, ok := pesapalStatus[out.PaymentStatusDescription]; ok {
		return st, nil
	}
	return StatusPending, nil
}

// doWithRetry repete a chamada em falha de transporte; erro HTTP não é repetido
// aqui, fica a critério do chamador.
func (p *Pesapal) doWithRetry(req *http.Request, body []byte) (*http.Response, error) {
	const retries = 3
	var resp *http.Response
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*i) * time.Millisecond)
			if body != nil {
				req.Body = io.NopCloser(bytes.NewReader(body))
			}
		}
		resp, err = p.http.Do(req)
		if err == nil {
			return resp, nil
		}
		if req.Context().Err() != nil {
			break
		}
	}
	return nil, err
}
