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

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, booking_id, wallet_id, amount_vnd, gateway, flow, status,
	external_txn_id, order_code, client_ip, paid_at, refund_amount_vnd, created_at`

// Create inserts a new payment within a database transaction.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.BookingID, p.WalletID, p.AmountVnd, p.Gateway, p.Flow, p.Status,
		p.ExternalTxnID, p.OrderCode, p.ClientIP, p.PaidAt, p.RefundAmountVnd, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.pool.QueryRow(ctx, query, id))
}

// GetByOrderCode fetches a payment by its gateway order code.
func (r *PaymentRepo) GetByOrderCode(ctx context.Context, orderCode string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_code = $1`
	return scanPayment(r.pool.QueryRow(ctx, query, orderCode))
}

// GetByIDForUpdate fetches a payment with pessimistic locking.
// This MUST be called within a transaction.
func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPayment(tx.QueryRow(ctx, query, id))
}

// MarkCaptured flips an INITIATED payment to CAPTURED. Returns false when
// the payment was already terminal; a concurrent duplicate loses here
// instead of double-capturing.
func (r *PaymentRepo) MarkCaptured(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxnID string, paidAt time.Time) (bool, error) {
	query := `UPDATE payments SET status = $1, external_txn_id = $2, paid_at = $3
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query,
		domain.PaymentStatusCaptured, externalTxnID, paidAt, id, domain.PaymentStatusInitiated,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment captured: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed flips an INITIATED payment to FAILED. Returns false when the
// payment was already terminal.
func (r *PaymentRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE payments SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query,
		domain.PaymentStatusFailed, id, domain.PaymentStatusInitiated,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpiredInitiated fetches INITIATED payments created before olderThan.
func (r *PaymentRepo) ListExpiredInitiated(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.PaymentStatusInitiated, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p := domain.Payment{}
		err := rows.Scan(
			&p.ID, &p.BookingID, &p.WalletID, &p.AmountVnd, &p.Gateway, &p.Flow, &p.Status,
			&p.ExternalTxnID, &p.OrderCode, &p.ClientIP, &p.PaidAt, &p.RefundAmountVnd, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}

// scanPayment is a helper to scan a single row into a Payment.
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.BookingID, &p.WalletID, &p.AmountVnd, &p.Gateway, &p.Flow, &p.Status,
		&p.ExternalTxnID, &p.OrderCode, &p.ClientIP, &p.PaidAt, &p.RefundAmountVnd, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
