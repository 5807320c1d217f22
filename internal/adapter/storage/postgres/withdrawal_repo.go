package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalRequestRepo implements ports.WithdrawalRequestRepository.
type WithdrawalRequestRepo struct {
	pool Pool
}

// NewWithdrawalRequestRepo creates a new WithdrawalRequestRepo.
func NewWithdrawalRequestRepo(pool Pool) *WithdrawalRequestRepo {
	return &WithdrawalRequestRepo{pool: pool}
}

// Create inserts a new withdrawal request within a transaction.
func (r *WithdrawalRequestRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests
		(id, wallet_id, amount_vnd, status, bank_account, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.WalletID, w.AmountVnd, w.Status, w.BankAccount, w.CreatedAt, w.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal request by UUID. Returns nil, nil when absent.
func (r *WithdrawalRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	query := `SELECT id, wallet_id, amount_vnd, status, bank_account, created_at, processed_at
		FROM withdrawal_requests WHERE id = $1`

	w := &domain.WithdrawalRequest{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.WalletID, &w.AmountVnd, &w.Status, &w.BankAccount, &w.CreatedAt, &w.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan withdrawal request: %w", err)
	}
	return w, nil
}

// UpdateStatus flips a PENDING request to the given status. Returns false
// when the request was already processed.
func (r *WithdrawalRequestRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, processedAt *time.Time) (bool, error) {
	query := `UPDATE withdrawal_requests SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, status, processedAt, id, domain.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("update withdrawal status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
