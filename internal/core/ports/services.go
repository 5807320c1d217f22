package ports

import (
	"context"
	"errors"
	"time"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
)

// Sentinel errors returned by gateway adapter hooks. The reconciler maps
// these to webhook rejections; any other error is treated as an
// infrastructure failure and propagated.
var (
	ErrSignatureInvalid  = errors.New("callback signature invalid")
	ErrAmountScale       = errors.New("amount not divisible by gateway scale")
	ErrPaymentRefMissing = errors.New("payment reference not present in callback")
)

// PaymentRef identifies the local payment a callback refers to. Adapters fill
// whichever field the gateway exposes; the reconciler resolves the rest.
type PaymentRef struct {
	PaymentID uuid.UUID
	OrderCode string
}

// CheckoutArtifacts is what a gateway hands back at initiation. Which fields
// are set depends on the gateway (URL for redirects, deeplink/QR for app
// payments, order code + signature for client-side SDK flows).
type CheckoutArtifacts struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	CheckoutURL string    `json:"checkout_url,omitempty"`
	Deeplink    string    `json:"deeplink,omitempty"`
	QRCode      string    `json:"qr_code,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	OrderCode   string    `json:"order_code,omitempty"`
}

// GatewayAdapter is the per-gateway capability set consumed by the shared
// reconciliation algorithm and by checkout initiation. Nothing else varies
// per gateway.
type GatewayAdapter interface {
	Gateway() domain.PaymentGateway

	// ConfigValid reports whether all credentials and the flow-specific
	// routes are present. An empty flow checks credentials only; the
	// reconciler fails closed when this is false.
	ConfigValid(flow domain.PaymentFlow) bool

	// VerifyCallback authenticates the raw callback parameters. It returns
	// the parameter set to use for the remaining hooks; adapters that have
	// to re-query the gateway's status API merge the authoritative response
	// fields into the returned map.
	VerifyCallback(ctx context.Context, params map[string]string) (map[string]string, error)

	// ResolvePaymentRef extracts the local payment reference, consulting any
	// side-channel blob when the explicit field is absent.
	ResolvePaymentRef(params map[string]string) (PaymentRef, error)

	// ResolveAmount converts the gateway-reported amount to VND. A non-exact
	// minor-unit remainder returns ErrAmountScale.
	ResolveAmount(params map[string]string) (int64, error)

	// ResolveResult extracts the (response code, transaction status) pair.
	ResolveResult(params map[string]string) (code string, status string)

	// IsSuccess evaluates the gateway-specific success predicate.
	IsSuccess(code string, status string) bool

	// ResolveExternalTxnID extracts the gateway's own transaction reference.
	ResolveExternalTxnID(params map[string]string) string

	// LedgerDescription is the description stamped on posted entries.
	LedgerDescription() string

	// BuildCheckout produces the checkout artifacts for an initiated payment.
	BuildCheckout(ctx context.Context, p *domain.Payment) (*CheckoutArtifacts, error)
}

// Reconciler handles one gateway callback end to end.
type Reconciler interface {
	HandleCallback(ctx context.Context, gw domain.PaymentGateway, params map[string]string) (domain.ReconcileResult, error)
}

// CheckoutRequest asks for a new payment attempt.
type CheckoutRequest struct {
	BookingID *uuid.UUID
	WalletID  uuid.UUID
	AmountVnd int64
	Gateway   domain.PaymentGateway
	Flow      domain.PaymentFlow
	ClientIP  string
}

// CheckoutService creates a payment with its staged journal and entries and
// obtains the gateway checkout artifacts.
type CheckoutService interface {
	Initiate(ctx context.Context, req CheckoutRequest) (*CheckoutArtifacts, uuid.UUID, error)
}

// WithdrawalService manages payout requests against wallet available funds.
// A request is validated and recorded PENDING; approval posts the payout
// journal, rejection leaves the ledger untouched.
type WithdrawalService interface {
	Request(ctx context.Context, walletID uuid.UUID, amountVnd int64, bankAccount string) (*domain.WithdrawalRequest, error)
	Approve(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	Reject(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
}

// EventPublisher publishes integration events keyed by correlation id.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key uuid.UUID, event any) error
}

// CheckoutStatusCache is the fast-path read model for checkout artifacts,
// upserted by key so at-least-once delivery is harmless.
type CheckoutStatusCache interface {
	Upsert(ctx context.Context, ready domain.PaymentReady, ttl time.Duration) error
	Get(ctx context.Context, subscriptionID uuid.UUID) (*domain.PaymentReady, error)
}
