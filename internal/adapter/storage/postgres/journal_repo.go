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

// WalletJournalRepo implements ports.WalletJournalRepository.
type WalletJournalRepo struct {
	pool Pool
}

// NewWalletJournalRepo creates a new WalletJournalRepo.
func NewWalletJournalRepo(pool Pool) *WalletJournalRepo {
	return &WalletJournalRepo{pool: pool}
}

const journalColumns = `id, booking_id, payment_id, status, type, created_at, posted_at`

// Create inserts a new journal within a database transaction.
func (r *WalletJournalRepo) Create(ctx context.Context, tx pgx.Tx, j *domain.WalletJournal) error {
	query := `INSERT INTO wallet_journals (` + journalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		j.ID, j.BookingID, j.PaymentID, j.Status, j.Type, j.CreatedAt, j.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet journal: %w", err)
	}
	return nil
}

// GetByID fetches a journal by UUID. Returns nil, nil when absent.
func (r *WalletJournalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletJournal, error) {
	query := `SELECT ` + journalColumns + ` FROM wallet_journals WHERE id = $1`

	j := &domain.WalletJournal{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.BookingID, &j.PaymentID, &j.Status, &j.Type, &j.CreatedAt, &j.PostedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet journal: %w", err)
	}
	return j, nil
}

// ListByPaymentID fetches all journals attached to a payment.
func (r *WalletJournalRepo) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WalletJournal, error) {
	query := `SELECT ` + journalColumns + ` FROM wallet_journals
		WHERE payment_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list journals by payment: %w", err)
	}
	defer rows.Close()

	var journals []domain.WalletJournal
	for rows.Next() {
		j := domain.WalletJournal{}
		err := rows.Scan(&j.ID, &j.BookingID, &j.PaymentID, &j.Status, &j.Type, &j.CreatedAt, &j.PostedAt)
		if err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return journals, nil
}

// UpdateStatus flips a PENDING journal to the given terminal status. Returns
// false when the journal was already finalized.
func (r *WalletJournalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.JournalStatus, postedAt *time.Time) (bool, error) {
	query := `UPDATE wallet_journals SET status = $1, posted_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, status, postedAt, id, domain.JournalStatusPending)
	if err != nil {
		return false, fmt.Errorf("update journal status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
