package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalStatus represents the visibility state of a wallet journal.
// Entries are staged at creation; only the journal status ever changes.
type JournalStatus string

const (
	JournalStatusPending   JournalStatus = "PENDING"
	JournalStatusPosted    JournalStatus = "POSTED"
	JournalStatusCancelled JournalStatus = "CANCELLED"
)

// JournalType classifies the economic event a journal represents.
type JournalType string

const (
	JournalTypePackagePurchase JournalType = "PACKAGE_PURCHASE"
	JournalTypeBookingHold     JournalType = "BOOKING_HOLD"
	JournalTypeBookingRelease  JournalType = "BOOKING_RELEASE"
	JournalTypeWalletTopup     JournalType = "WALLET_TOPUP"
	JournalTypePayout          JournalType = "PAYOUT"
	JournalTypeRefund          JournalType = "REFUND"
)

// EntryDirection marks a ledger entry as a debit or a credit.
type EntryDirection string

const (
	EntryDebit  EntryDirection = "DEBIT"
	EntryCredit EntryDirection = "CREDIT"
)

// AccountType is the wallet sub-account an entry applies to.
type AccountType string

const (
	AccountAvailable AccountType = "AVAILABLE"
	AccountEscrow    AccountType = "ESCROW"
	AccountFrozen    AccountType = "FROZEN"
)

// WalletJournal groups the ledger entries of one economic event.
// For every POSTED journal the debit and credit entry sums are equal.
type WalletJournal struct {
	ID        uuid.UUID     `json:"id"`
	BookingID *uuid.UUID    `json:"booking_id,omitempty"`
	PaymentID *uuid.UUID    `json:"payment_id,omitempty"`
	Status    JournalStatus `json:"status"`
	Type      JournalType   `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	PostedAt  *time.Time    `json:"posted_at,omitempty"`
}

// IsTerminal returns true once the journal has been posted or cancelled.
func (j *WalletJournal) IsTerminal() bool {
	return j.Status == JournalStatusPosted || j.Status == JournalStatusCancelled
}

// WalletLedgerEntry is one immutable debit-or-credit line against a wallet
// sub-account. Entries are written once when the journal is staged and are
// never rewritten or deleted.
type WalletLedgerEntry struct {
	ID          uuid.UUID      `json:"id"`
	JournalID   uuid.UUID      `json:"journal_id"`
	WalletID    uuid.UUID      `json:"wallet_id"`
	AmountVnd   int64          `json:"amount_vnd"`
	Direction   EntryDirection `json:"direction"`
	AccountType AccountType    `json:"account_type"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EntriesBalanced reports whether debit and credit amounts cancel out.
// A journal may only be staged (and therefore ever posted) when this holds.
func EntriesBalanced(entries []WalletLedgerEntry) bool {
	var debits, credits int64
	for _, e := range entries {
		switch e.Direction {
		case EntryDebit:
			debits += e.AmountVnd
		case EntryCredit:
			credits += e.AmountVnd
		}
	}
	return debits == credits && len(entries) > 0
}

// WalletBalance is the cached balance per wallet and sub-account. It is a
// derived projection over the ledger entries, not the source of truth.
type WalletBalance struct {
	WalletID    uuid.UUID   `json:"wallet_id"`
	AccountType AccountType `json:"account_type"`
	BalanceVnd  int64       `json:"balance_vnd"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// WalletStatus represents the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "ACTIVE"
	WalletStatusFrozen WalletStatus = "FROZEN"
	WalletStatusClosed WalletStatus = "CLOSED"
)

// Wallet is an ownership record for a set of sub-ledger accounts.
type Wallet struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"owner_id"`
	Currency  string       `json:"currency"`
	Status    WalletStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// WithdrawalStatus represents the lifecycle of a payout request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved WithdrawalStatus = "APPROVED"
	WithdrawalStatusRejected WithdrawalStatus = "REJECTED"
	WithdrawalStatusPaid     WithdrawalStatus = "PAID"
)

// WithdrawalRequest records a request to pay funds out of a wallet.
type WithdrawalRequest struct {
	ID          uuid.UUID        `json:"id"`
	WalletID    uuid.UUID        `json:"wallet_id"`
	AmountVnd   int64            `json:"amount_vnd"`
	Status      WithdrawalStatus `json:"status"`
	BankAccount string           `json:"bank_account"`
	CreatedAt   time.Time        `json:"created_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}
