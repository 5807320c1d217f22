package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentGateway identifies the external gateway a payment runs through.
type PaymentGateway string

const (
	GatewayVNPay PaymentGateway = "VNPAY"
	GatewayMomo  PaymentGateway = "MOMO"
	GatewayPayOS PaymentGateway = "PAYOS"
)

// PaymentFlow identifies the checkout flow the payment belongs to.
// Each flow has its own redirect/cancel routes per gateway.
type PaymentFlow string

const (
	FlowPackagePurchase PaymentFlow = "PACKAGE_PURCHASE"
	FlowBooking         PaymentFlow = "BOOKING"
	FlowWalletTopup     PaymentFlow = "WALLET_TOPUP"
)

// PaymentStatus represents the lifecycle state of a payment attempt.
// Transitions are one-way: INITIATED -> CAPTURED or INITIATED -> FAILED.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusCaptured  PaymentStatus = "CAPTURED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment represents one attempt to collect money via a gateway.
// Created at checkout initiation, mutated exactly once by reconciliation
// (or by the expiry sweep when the callback never arrives).
type Payment struct {
	ID              uuid.UUID      `json:"id"`
	BookingID       *uuid.UUID     `json:"booking_id,omitempty"`
	WalletID        uuid.UUID      `json:"wallet_id"`
	AmountVnd       int64          `json:"amount_vnd"` // minor-currency integer
	Gateway         PaymentGateway `json:"gateway"`
	Flow            PaymentFlow    `json:"flow"`
	Status          PaymentStatus  `json:"status"`
	ExternalTxnID   *string        `json:"external_txn_id,omitempty"`
	OrderCode       string         `json:"order_code"`
	ClientIP        string         `json:"client_ip,omitempty"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	RefundAmountVnd int64          `json:"refund_amount_vnd"`
	CreatedAt       time.Time      `json:"created_at"`
}

// IsTerminal returns true if the payment reached a final state.
// Terminal payments are never mutated again; repeated callbacks are
// acknowledged without effect.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCaptured || p.Status == PaymentStatusFailed
}
