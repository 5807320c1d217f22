package postgres

import (
	"context"
	"errors"
	"fmt"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletBalanceRepo implements ports.WalletBalanceRepository. Balances are a
// projection over the ledger entries, so AdjustBalance is only ever called
// inside the transaction that posts the journal.
type WalletBalanceRepo struct {
	pool Pool
}

// NewWalletBalanceRepo creates a new WalletBalanceRepo.
func NewWalletBalanceRepo(pool Pool) *WalletBalanceRepo {
	return &WalletBalanceRepo{pool: pool}
}

// Get fetches the cached balance for a wallet/account pair. Returns nil, nil
// when no entry has ever touched the pair.
func (r *WalletBalanceRepo) Get(ctx context.Context, walletID uuid.UUID, account domain.AccountType) (*domain.WalletBalance, error) {
	query := `SELECT wallet_id, account_type, balance_vnd, updated_at
		FROM wallet_balances WHERE wallet_id = $1 AND account_type = $2`

	b := &domain.WalletBalance{}
	err := r.pool.QueryRow(ctx, query, walletID, account).Scan(
		&b.WalletID, &b.AccountType, &b.BalanceVnd, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet balance: %w", err)
	}
	return b, nil
}

// AdjustBalance adds deltaVnd to the cached balance, creating the row when
// the pair has never been touched.
func (r *WalletBalanceRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, account domain.AccountType, deltaVnd int64) error {
	query := `INSERT INTO wallet_balances (wallet_id, account_type, balance_vnd, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (wallet_id, account_type)
		DO UPDATE SET balance_vnd = wallet_balances.balance_vnd + $3, updated_at = NOW()`

	_, err := tx.Exec(ctx, query, walletID, account, deltaVnd)
	if err != nil {
		return fmt.Errorf("adjust wallet balance: %w", err)
	}
	return nil
}
