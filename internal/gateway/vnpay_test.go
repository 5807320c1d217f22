package gateway

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"coachpay/config"
	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vnpayTestConfig() config.VNPayConfig {
	return config.VNPayConfig{
		TmnCode:    "TESTTMN1",
		HashSecret: "vnpaysecret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURLs: map[string]string{
			"package_purchase": "https://app.example.com/packages/return?paymentId={paymentId}",
		},
	}
}

func newVNPayTestAdapter() *VNPayAdapter {
	return NewVNPayAdapter(vnpayTestConfig(), testCodec())
}

// signedVNPayCallback builds a callback parameter set with a valid secure hash.
func signedVNPayCallback(a *VNPayAdapter, paymentID uuid.UUID, overrides map[string]string) map[string]string {
	params := map[string]string{
		"vnp_TmnCode":           "TESTTMN1",
		"vnp_Amount":            "15000000",
		"vnp_TxnRef":            paymentID.String(),
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TransactionNo":     "14226112",
		"vnp_BankCode":          "NCB",
		"vnp_PayDate":           "20260901102233",
	}
	for k, v := range overrides {
		params[k] = v
	}
	payload := a.codec.Canonicalize(params, []string{"vnp_SecureHash", "vnp_SecureHashType"}, true)
	params["vnp_SecureHash"] = a.codec.SignSHA512(a.cfg.HashSecret, payload)
	return params
}

func TestVNPayVerifyCallback_AcceptsValidSignature(t *testing.T) {
	a := newVNPayTestAdapter()
	params := signedVNPayCallback(a, uuid.New(), nil)

	verified, err := a.VerifyCallback(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, params, verified)
}

func TestVNPayVerifyCallback_RejectsTamperedAmount(t *testing.T) {
	a := newVNPayTestAdapter()
	params := signedVNPayCallback(a, uuid.New(), nil)
	params["vnp_Amount"] = "1000000"

	_, err := a.VerifyCallback(context.Background(), params)
	assert.ErrorIs(t, err, ports.ErrSignatureInvalid)
}

func TestVNPayVerifyCallback_RejectsMissingHash(t *testing.T) {
	a := newVNPayTestAdapter()
	params := signedVNPayCallback(a, uuid.New(), nil)
	delete(params, "vnp_SecureHash")

	_, err := a.VerifyCallback(context.Background(), params)
	assert.ErrorIs(t, err, ports.ErrSignatureInvalid)
}

func TestVNPayVerifyCallback_IgnoresSecureHashType(t *testing.T) {
	a := newVNPayTestAdapter()
	params := signedVNPayCallback(a, uuid.New(), nil)
	params["vnp_SecureHashType"] = "HMACSHA512"

	_, err := a.VerifyCallback(context.Background(), params)
	assert.NoError(t, err)
}

func TestVNPayResolveAmount(t *testing.T) {
	a := newVNPayTestAdapter()

	amount, err := a.ResolveAmount(map[string]string{"vnp_Amount": "15000000"})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), amount)

	_, err = a.ResolveAmount(map[string]string{"vnp_Amount": "15000050"})
	assert.ErrorIs(t, err, ports.ErrAmountScale)

	_, err = a.ResolveAmount(map[string]string{"vnp_Amount": "abc"})
	assert.ErrorIs(t, err, ports.ErrAmountScale)
}

func TestVNPayResolvePaymentRef(t *testing.T) {
	a := newVNPayTestAdapter()
	id := uuid.New()

	ref, err := a.ResolvePaymentRef(map[string]string{"vnp_TxnRef": id.String()})
	require.NoError(t, err)
	assert.Equal(t, id, ref.PaymentID)

	_, err = a.ResolvePaymentRef(map[string]string{})
	assert.ErrorIs(t, err, ports.ErrPaymentRefMissing)

	_, err = a.ResolvePaymentRef(map[string]string{"vnp_TxnRef": "not-a-uuid"})
	assert.ErrorIs(t, err, ports.ErrPaymentRefMissing)
}

func TestVNPayIsSuccess_RequiresBothCodes(t *testing.T) {
	a := newVNPayTestAdapter()

	assert.True(t, a.IsSuccess("00", "00"))
	assert.False(t, a.IsSuccess("00", "02"))
	assert.False(t, a.IsSuccess("24", "00"))
}

func TestVNPayConfigValid_EmptyFlowChecksCredentialsOnly(t *testing.T) {
	a := newVNPayTestAdapter()

	assert.True(t, a.ConfigValid(""))
	assert.True(t, a.ConfigValid(domain.FlowPackagePurchase))
	assert.False(t, a.ConfigValid(domain.FlowBooking))

	broken := NewVNPayAdapter(config.VNPayConfig{}, testCodec())
	assert.False(t, broken.ConfigValid(""))
}

func TestVNPayBuildCheckout_SignsPayURL(t *testing.T) {
	a := newVNPayTestAdapter()
	payment := &domain.Payment{
		ID:        uuid.New(),
		AmountVnd: 150000,
		Flow:      domain.FlowPackagePurchase,
		OrderCode: "1756700000000",
		ClientIP:  "203.0.113.10",
	}

	artifacts, err := a.BuildCheckout(context.Background(), payment)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, artifacts.PaymentID)
	assert.True(t, strings.HasPrefix(artifacts.CheckoutURL, vnpayTestConfig().PayURL+"?"))

	parsed, err := url.Parse(artifacts.CheckoutURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "15000000", q.Get("vnp_Amount"))
	assert.Equal(t, payment.ID.String(), q.Get("vnp_TxnRef"))
	assert.NotEmpty(t, q.Get("vnp_SecureHash"))

	// The embedded hash must verify over the non-hash parameters.
	params := map[string]string{}
	for k := range q {
		params[k] = q.Get(k)
	}
	payload := a.codec.Canonicalize(params, []string{"vnp_SecureHash"}, true)
	assert.True(t, a.codec.VerifySHA512(vnpayTestConfig().HashSecret, payload, q.Get("vnp_SecureHash")))
}

func TestVNPayBuildCheckout_UnknownFlowFails(t *testing.T) {
	a := newVNPayTestAdapter()
	payment := &domain.Payment{ID: uuid.New(), AmountVnd: 1000, Flow: domain.FlowBooking, OrderCode: "1"}

	_, err := a.BuildCheckout(context.Background(), payment)
	assert.Error(t, err)
}
