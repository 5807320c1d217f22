package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coachpay/config"
	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/internal/service"

	"github.com/google/uuid"
)

// VNPay reports amounts multiplied by 100.
const vnpayAmountScale = 100

// VNPayAdapter implements ports.GatewayAdapter for VNPay.
// Callbacks arrive as vnp_-prefixed query parameters signed with HMAC-SHA512
// over the URL-encoded sorted parameter set.
type VNPayAdapter struct {
	cfg   config.VNPayConfig
	codec *service.SignatureCodec
	now   func() time.Time
}

// NewVNPayAdapter creates a VNPay adapter.
func NewVNPayAdapter(cfg config.VNPayConfig, codec *service.SignatureCodec) *VNPayAdapter {
	return &VNPayAdapter{cfg: cfg, codec: codec, now: time.Now}
}

func (a *VNPayAdapter) Gateway() domain.PaymentGateway {
	return domain.GatewayVNPay
}

func (a *VNPayAdapter) ConfigValid(flow domain.PaymentFlow) bool {
	return a.cfg.IsConfiguredFor(string(flow))
}

// VerifyCallback recomputes the secure hash over every vnp_ parameter except
// the hash fields themselves.
func (a *VNPayAdapter) VerifyCallback(_ context.Context, params map[string]string) (map[string]string, error) {
	got := params["vnp_SecureHash"]
	if got == "" {
		return nil, ports.ErrSignatureInvalid
	}
	payload := a.codec.Canonicalize(params, []string{"vnp_SecureHash", "vnp_SecureHashType"}, true)
	if !a.codec.VerifySHA512(a.cfg.HashSecret, payload, got) {
		return nil, ports.ErrSignatureInvalid
	}
	return params, nil
}

func (a *VNPayAdapter) ResolvePaymentRef(params map[string]string) (ports.PaymentRef, error) {
	ref := params["vnp_TxnRef"]
	if ref == "" {
		return ports.PaymentRef{}, ports.ErrPaymentRefMissing
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return ports.PaymentRef{}, ports.ErrPaymentRefMissing
	}
	return ports.PaymentRef{PaymentID: id}, nil
}

// ResolveAmount converts the x100 minor-unit amount back to VND. A remainder
// means the value cannot be a genuine VNPay amount and is rejected outright.
func (a *VNPayAdapter) ResolveAmount(params map[string]string) (int64, error) {
	raw, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil {
		return 0, ports.ErrAmountScale
	}
	if raw%vnpayAmountScale != 0 {
		return 0, ports.ErrAmountScale
	}
	return raw / vnpayAmountScale, nil
}

func (a *VNPayAdapter) ResolveResult(params map[string]string) (string, string) {
	return params["vnp_ResponseCode"], params["vnp_TransactionStatus"]
}

// IsSuccess requires both the response code and the transaction status to be
// "00"; VNPay can report a successful request for a failed transaction.
func (a *VNPayAdapter) IsSuccess(code, status string) bool {
	return code == "00" && status == "00"
}

func (a *VNPayAdapter) ResolveExternalTxnID(params map[string]string) string {
	return params["vnp_TransactionNo"]
}

func (a *VNPayAdapter) LedgerDescription() string {
	return "VNPay capture"
}

// BuildCheckout assembles the hosted-checkout URL for the payment.
func (a *VNPayAdapter) BuildCheckout(_ context.Context, p *domain.Payment) (*ports.CheckoutArtifacts, error) {
	returnURL, ok := a.cfg.RedirectURL(string(p.Flow), map[string]string{
		"paymentId": p.ID.String(),
	})
	if !ok {
		return nil, fmt.Errorf("vnpay: no return url for flow %s", p.Flow)
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    a.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(p.AmountVnd*vnpayAmountScale, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     p.ID.String(),
		"vnp_OrderInfo":  "coachpay payment " + p.OrderCode,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     p.ClientIP,
		"vnp_CreateDate": a.now().Format("20060102150405"),
	}

	query := a.codec.Canonicalize(params, nil, true)
	secureHash := a.codec.SignSHA512(a.cfg.HashSecret, query)

	checkoutURL := a.cfg.PayURL
	if strings.Contains(checkoutURL, "?") {
		checkoutURL += "&"
	} else {
		checkoutURL += "?"
	}
	checkoutURL += query + "&vnp_SecureHash=" + url.QueryEscape(secureHash)

	return &ports.CheckoutArtifacts{
		PaymentID:   p.ID,
		CheckoutURL: checkoutURL,
		Signature:   secureHash,
		OrderCode:   p.OrderCode,
	}, nil
}
