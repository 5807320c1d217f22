package ports

import (
	"context"
	"time"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepository defines persistence operations for payments.
// Methods accepting pgx.Tx run inside transaction blocks; MarkCaptured and
// MarkFailed are conditional on the row still being INITIATED, so a
// concurrent duplicate write loses the race instead of double-applying.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByOrderCode(ctx context.Context, orderCode string) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error)
	MarkCaptured(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxnID string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	ListExpiredInitiated(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error)
}

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	Create(ctx context.Context, w *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
}

// WalletBalanceRepository maintains the derived balance projection.
// AdjustBalance is an upsert: it adds delta to the cached balance for the
// wallet/account pair, creating the row if absent.
type WalletBalanceRepository interface {
	Get(ctx context.Context, walletID uuid.UUID, account domain.AccountType) (*domain.WalletBalance, error)
	AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, account domain.AccountType, deltaVnd int64) error
}

// WalletJournalRepository defines persistence operations for journals.
// UpdateStatus is conditional on the journal still being PENDING.
type WalletJournalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, j *domain.WalletJournal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletJournal, error)
	ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WalletJournal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.JournalStatus, postedAt *time.Time) (bool, error)
}

// WalletLedgerEntryRepository is append-only: entries are created when a
// journal is staged and never rewritten.
type WalletLedgerEntryRepository interface {
	CreateBatch(ctx context.Context, tx pgx.Tx, entries []domain.WalletLedgerEntry) error
	ListByJournalID(ctx context.Context, journalID uuid.UUID) ([]domain.WalletLedgerEntry, error)
}

// WithdrawalRequestRepository defines persistence for payout requests.
type WithdrawalRequestRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, processedAt *time.Time) (bool, error)
}

// SagaRepository persists saga instance snapshots keyed by correlation id.
// Upsert makes event redelivery converge on a single row.
type SagaRepository interface {
	Get(ctx context.Context, correlationID uuid.UUID) (*domain.SagaInstance, error)
	Upsert(ctx context.Context, instance *domain.SagaInstance) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
