package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PaypalConfig são as credenciais e endereço da API PayPal (sandbox ou live).
type PaypalConfig struct {
	BaseURL  string
	ClientID string
	Secret   string
}

// Paypal implementa Client sobre a API de checkout orders do PayPal.
type Paypal struct {
	cfg  PaypalConfig
	http *http.Client
}

func NewPaypal(cfg PaypalConfig) *Paypal {
	return &Paypal{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

var paypalStatus = map[string]Status{
	"CREATED":               StatusPending,
	"SAVED":                 StatusPending,
	"APPROVED":              StatusPending,
	"PAYER_ACTION_REQUIRED": StatusPending,
	"COMPLETED":             StatusCompleted,
	"VOIDED":                StatusFailed,
}

type paypalTokenResp struct {
	AccessToken string `json:"access_token"`
}

type paypalOrderResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

// getAccessToken faz o client-credentials grant com basic auth.
func (p *Paypal) getAccessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &AuthError{Detail: "oauth token rejected"}
	}
	var out paypalTokenResp
	if err := json.Unmarshal(raw, &out); err != nil || out.AccessToken == "" {
		return "", &AuthError{Detail: "oauth token response is not valid JSON"}
	}
	return out.AccessToken, nil
}

func (p *Paypal) SubmitOrder(ctx context.Context, o OrderRequest) (Order, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return Order{}, err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": o.Reference,
			"description":  o.Description,
			"amount": map[string]any{
				"currency_code": o.Currency,
				"value":         amountString(o.AmountCents),
			},
		}},
		"application_context": map[string]any{
			"return_url": o.CallbackURL + "?reference=" + url.QueryEscape(o.Reference),
			"cancel_url": o.CallbackURL + "?reference=" + url.QueryEscape(o.Reference) + "&cancelled=1",
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return Order{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return Order{}, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	var out paypalOrderResp
	if err := json.Unmarshal(raw, &out); err != nil || out.ID == "" {
		return Order{}, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	var approval string
	for _, l := range out.Links {
		if l.Rel == "approve" {
			approval = l.Href
			break
		}
	}
	if approval == "" {
		return Order{}, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	return Order{OrderTrackingID: out.ID, CheckoutURL: approval}, nil
}

func (p *Paypal) QueryStatus(ctx context.Context, orderTrackingID string) (Status, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return StatusPending, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v2/checkout/orders/"+url.PathEscape(orderTrackingID), nil)
	if err != nil {
		return StatusPending, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return StatusPending, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return StatusPending, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	var out paypalOrderResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return StatusPending, &GatewayError{HTTPStatus: resp.StatusCode, RawBody: string(raw)}
	}

	if st, ok := paypalStatus[out.Status]; ok {
		return st, nil
	}
	return StatusPending, nil
}
