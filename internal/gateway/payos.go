package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"coachpay/config"
	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/internal/service"
)

// PayOSAdapter implements ports.GatewayAdapter for PayOS.
// PayOS callbacks carry no usable self-signed proof for our flows, so
// verification re-queries the gateway's own payment-request status API by
// order code; a successful authenticated response is the proof, and its
// fields override whatever the callback claimed.
type PayOSAdapter struct {
	cfg    config.PayOSConfig
	codec  *service.SignatureCodec
	client HTTPClient
}

// NewPayOSAdapter creates a PayOS adapter.
func NewPayOSAdapter(cfg config.PayOSConfig, codec *service.SignatureCodec, client HTTPClient) *PayOSAdapter {
	return &PayOSAdapter{cfg: cfg, codec: codec, client: client}
}

func (a *PayOSAdapter) Gateway() domain.PaymentGateway {
	return domain.GatewayPayOS
}

func (a *PayOSAdapter) ConfigValid(flow domain.PaymentFlow) bool {
	return a.cfg.IsConfiguredFor(string(flow))
}

// payosStatusResponse is the payment-request status envelope.
type payosStatusResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		OrderCode int64  `json:"orderCode"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// VerifyCallback re-queries the status API. The returned parameter set is the
// callback map overlaid with the authoritative response fields, so every
// later hook reads gateway truth rather than caller input.
func (a *PayOSAdapter) VerifyCallback(ctx context.Context, params map[string]string) (map[string]string, error) {
	orderCode := params["orderCode"]
	if orderCode == "" {
		return nil, ports.ErrSignatureInvalid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.cfg.BaseURL+"/v2/payment-requests/"+orderCode, nil)
	if err != nil {
		return nil, fmt.Errorf("payos: build status request: %w", err)
	}
	req.Header.Set("x-client-id", a.cfg.ClientID)
	req.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payos: status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ports.ErrSignatureInvalid
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payos: status request returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payos: read status response: %w", err)
	}
	var status payosStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("payos: decode status response: %w", err)
	}
	if status.Code != "00" {
		return nil, ports.ErrSignatureInvalid
	}

	merged := make(map[string]string, len(params)+4)
	for k, v := range params {
		merged[k] = v
	}
	merged["orderCode"] = strconv.FormatInt(status.Data.OrderCode, 10)
	merged["amount"] = strconv.FormatInt(status.Data.Amount, 10)
	merged["status"] = status.Data.Status
	merged["reference"] = status.Data.Reference
	merged["code"] = status.Code
	return merged, nil
}

// ResolvePaymentRef: PayOS only knows the numeric order code; the reconciler
// resolves it to the local payment.
func (a *PayOSAdapter) ResolvePaymentRef(params map[string]string) (ports.PaymentRef, error) {
	orderCode := params["orderCode"]
	if orderCode == "" {
		return ports.PaymentRef{}, ports.ErrPaymentRefMissing
	}
	return ports.PaymentRef{OrderCode: orderCode}, nil
}

func (a *PayOSAdapter) ResolveAmount(params map[string]string) (int64, error) {
	amount, err := strconv.ParseInt(params["amount"], 10, 64)
	if err != nil {
		return 0, ports.ErrAmountScale
	}
	return amount, nil
}

func (a *PayOSAdapter) ResolveResult(params map[string]string) (string, string) {
	return params["code"], params["status"]
}

func (a *PayOSAdapter) IsSuccess(code, status string) bool {
	return code == "00" && status == "PAID"
}

func (a *PayOSAdapter) ResolveExternalTxnID(params map[string]string) string {
	return params["reference"]
}

func (a *PayOSAdapter) LedgerDescription() string {
	return "PayOS capture"
}

// payosCreateRequest is the payment-request creation payload.
type payosCreateRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

// payosCreateResponse is the subset of the creation response we consume.
type payosCreateResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL string `json:"checkoutUrl"`
		QRCode      string `json:"qrCode"`
	} `json:"data"`
}

// BuildCheckout creates a PayOS payment request and returns its artifacts.
func (a *PayOSAdapter) BuildCheckout(ctx context.Context, p *domain.Payment) (*ports.CheckoutArtifacts, error) {
	urlParams := map[string]string{"paymentId": p.ID.String(), "orderCode": p.OrderCode}
	returnURL, ok := a.cfg.RedirectURL(string(p.Flow), urlParams)
	if !ok {
		return nil, fmt.Errorf("payos: no return url for flow %s", p.Flow)
	}
	cancelURL, ok := a.cfg.CancelURL(string(p.Flow), urlParams)
	if !ok {
		return nil, fmt.Errorf("payos: no cancel url for flow %s", p.Flow)
	}

	orderCode, err := strconv.ParseInt(p.OrderCode, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("payos: order code must be numeric: %w", err)
	}

	description := "coachpay " + p.OrderCode
	payload := a.codec.Canonicalize(map[string]string{
		"amount":      strconv.FormatInt(p.AmountVnd, 10),
		"cancelUrl":   cancelURL,
		"description": description,
		"orderCode":   p.OrderCode,
		"returnUrl":   returnURL,
	}, nil, false)
	signature := a.codec.SignSHA256(a.cfg.ChecksumKey, payload)

	body, err := json.Marshal(payosCreateRequest{
		OrderCode:   orderCode,
		Amount:      p.AmountVnd,
		Description: description,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
		Signature:   signature,
	})
	if err != nil {
		return nil, fmt.Errorf("payos: marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payos: build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", a.cfg.ClientID)
	req.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payos: create request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payos: read create response: %w", err)
	}
	var created payosCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("payos: decode create response: %w", err)
	}
	if created.Code != "00" {
		return nil, fmt.Errorf("payos: create rejected: %s %s", created.Code, created.Desc)
	}

	return &ports.CheckoutArtifacts{
		PaymentID:   p.ID,
		CheckoutURL: created.Data.CheckoutURL,
		QRCode:      created.Data.QRCode,
		Signature:   signature,
		OrderCode:   p.OrderCode,
	}, nil
}
