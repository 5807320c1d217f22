package postgres

import (
	"context"
	"fmt"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletLedgerEntryRepo implements ports.WalletLedgerEntryRepository.
// Entries are append-only: there is no update or delete path.
type WalletLedgerEntryRepo struct {
	pool Pool
}

// NewWalletLedgerEntryRepo creates a new WalletLedgerEntryRepo.
func NewWalletLedgerEntryRepo(pool Pool) *WalletLedgerEntryRepo {
	return &WalletLedgerEntryRepo{pool: pool}
}

// CreateBatch inserts the entries of one journal within a transaction.
func (r *WalletLedgerEntryRepo) CreateBatch(ctx context.Context, tx pgx.Tx, entries []domain.WalletLedgerEntry) error {
	query := `INSERT INTO wallet_ledger_entries
		(id, journal_id, wallet_id, amount_vnd, direction, account_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i := range entries {
		e := &entries[i]
		_, err := tx.Exec(ctx, query,
			e.ID, e.JournalID, e.WalletID, e.AmountVnd, e.Direction, e.AccountType, e.Description, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}

// ListByJournalID fetches the entries of one journal.
func (r *WalletLedgerEntryRepo) ListByJournalID(ctx context.Context, journalID uuid.UUID) ([]domain.WalletLedgerEntry, error) {
	query := `SELECT id, journal_id, wallet_id, amount_vnd, direction, account_type, description, created_at
		FROM wallet_ledger_entries WHERE journal_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, journalID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletLedgerEntry
	for rows.Next() {
		e := domain.WalletLedgerEntry{}
		err := rows.Scan(&e.ID, &e.JournalID, &e.WalletID, &e.AmountVnd, &e.Direction, &e.AccountType, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, nil
}
