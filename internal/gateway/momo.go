package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"coachpay/config"
	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/internal/service"

	"github.com/google/uuid"
)

// MomoAdapter implements ports.GatewayAdapter for MoMo.
// IPN callbacks are signed with HMAC-SHA256 over a fixed-order raw string;
// the payment id travels in orderId or, for legacy clients, inside the
// base64-JSON extraData side channel.
type MomoAdapter struct {
	cfg    config.MomoConfig
	codec  *service.SignatureCodec
	client HTTPClient
}

// momoExtraData is the opaque blob MoMo echoes back unchanged.
type momoExtraData struct {
	PaymentID string `json:"paymentId"`
}

// NewMomoAdapter creates a MoMo adapter.
func NewMomoAdapter(cfg config.MomoConfig, codec *service.SignatureCodec, client HTTPClient) *MomoAdapter {
	return &MomoAdapter{cfg: cfg, codec: codec, client: client}
}

func (a *MomoAdapter) Gateway() domain.PaymentGateway {
	return domain.GatewayMomo
}

func (a *MomoAdapter) ConfigValid(flow domain.PaymentFlow) bool {
	return a.cfg.IsConfiguredFor(string(flow))
}

// ipnSignaturePayload builds the raw signing string for an IPN callback.
// MoMo requires this exact field order; values are used unescaped, empty
// fields included.
func (a *MomoAdapter) ipnSignaturePayload(params map[string]string) string {
	return "accessKey=" + a.cfg.AccessKey +
		"&amount=" + params["amount"] +
		"&extraData=" + params["extraData"] +
		"&message=" + params["message"] +
		"&orderId=" + params["orderId"] +
		"&orderInfo=" + params["orderInfo"] +
		"&orderType=" + params["orderType"] +
		"&partnerCode=" + params["partnerCode"] +
		"&payType=" + params["payType"] +
		"&requestId=" + params["requestId"] +
		"&responseTime=" + params["responseTime"] +
		"&resultCode=" + params["resultCode"] +
		"&transId=" + params["transId"]
}

func (a *MomoAdapter) VerifyCallback(_ context.Context, params map[string]string) (map[string]string, error) {
	got := params["signature"]
	if got == "" {
		return nil, ports.ErrSignatureInvalid
	}
	if !a.codec.VerifySHA256(a.cfg.SecretKey, a.ipnSignaturePayload(params), got) {
		return nil, ports.ErrSignatureInvalid
	}
	return params, nil
}

// ResolvePaymentRef prefers the explicit orderId; otherwise it decodes the
// extraData blob for the fallback id.
func (a *MomoAdapter) ResolvePaymentRef(params map[string]string) (ports.PaymentRef, error) {
	if raw := params["orderId"]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return ports.PaymentRef{PaymentID: id}, nil
		}
	}
	if blob := params["extraData"]; blob != "" {
		decoded, err := base64.StdEncoding.DecodeString(blob)
		if err == nil {
			var extra momoExtraData
			if json.Unmarshal(decoded, &extra) == nil {
				if id, err := uuid.Parse(extra.PaymentID); err == nil {
					return ports.PaymentRef{PaymentID: id}, nil
				}
			}
		}
	}
	return ports.PaymentRef{}, ports.ErrPaymentRefMissing
}

// ResolveAmount: MoMo already reports whole VND.
func (a *MomoAdapter) ResolveAmount(params map[string]string) (int64, error) {
	amount, err := strconv.ParseInt(params["amount"], 10, 64)
	if err != nil {
		return 0, ports.ErrAmountScale
	}
	return amount, nil
}

func (a *MomoAdapter) ResolveResult(params map[string]string) (string, string) {
	return params["resultCode"], ""
}

// IsSuccess: a single zero result code is MoMo's success signal.
func (a *MomoAdapter) IsSuccess(code, _ string) bool {
	return code == "0"
}

func (a *MomoAdapter) ResolveExternalTxnID(params map[string]string) string {
	return params["transId"]
}

func (a *MomoAdapter) LedgerDescription() string {
	return "MoMo capture"
}

// momoCreateRequest is the checkout creation payload.
type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

// momoCreateResponse is the subset of the creation response we consume.
type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
	Deeplink   string `json:"deeplink"`
	QRCodeURL  string `json:"qrCodeUrl"`
}

// BuildCheckout creates a MoMo payment request and returns its artifacts.
func (a *MomoAdapter) BuildCheckout(ctx context.Context, p *domain.Payment) (*ports.CheckoutArtifacts, error) {
	redirectURL, ok := a.cfg.RedirectURL(string(p.Flow), map[string]string{
		"paymentId": p.ID.String(),
	})
	if !ok {
		return nil, fmt.Errorf("momo: no redirect url for flow %s", p.Flow)
	}

	extraJSON, err := json.Marshal(momoExtraData{PaymentID: p.ID.String()})
	if err != nil {
		return nil, fmt.Errorf("momo: marshal extra data: %w", err)
	}
	extraData := base64.StdEncoding.EncodeToString(extraJSON)

	requestID := uuid.New().String()
	orderInfo := "coachpay payment " + p.OrderCode
	requestType := "captureWallet"

	payload := "accessKey=" + a.cfg.AccessKey +
		"&amount=" + strconv.FormatInt(p.AmountVnd, 10) +
		"&extraData=" + extraData +
		"&ipnUrl=" + a.cfg.IPNURL +
		"&orderId=" + p.ID.String() +
		"&orderInfo=" + orderInfo +
		"&partnerCode=" + a.cfg.PartnerCode +
		"&redirectUrl=" + redirectURL +
		"&requestId=" + requestID +
		"&requestType=" + requestType
	signature := a.codec.SignSHA256(a.cfg.SecretKey, payload)

	body, err := json.Marshal(momoCreateRequest{
		PartnerCode: a.cfg.PartnerCode,
		RequestID:   requestID,
		Amount:      p.AmountVnd,
		OrderID:     p.ID.String(),
		OrderInfo:   orderInfo,
		RedirectURL: redirectURL,
		IpnURL:      a.cfg.IPNURL,
		RequestType: requestType,
		ExtraData:   extraData,
		Lang:        "vi",
		Signature:   signature,
	})
	if err != nil {
		return nil, fmt.Errorf("momo: marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint+"/v2/gateway/api/create", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("momo: build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("momo: create request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("momo: read create response: %w", err)
	}
	var created momoCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("momo: decode create response: %w", err)
	}
	if created.ResultCode != 0 {
		return nil, fmt.Errorf("momo: create rejected: %d %s", created.ResultCode, created.Message)
	}

	return &ports.CheckoutArtifacts{
		PaymentID:   p.ID,
		CheckoutURL: created.PayURL,
		Deeplink:    created.Deeplink,
		QRCode:      created.QRCodeURL,
		Signature:   signature,
		OrderCode:   p.OrderCode,
	}, nil
}
