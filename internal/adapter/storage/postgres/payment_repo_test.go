package postgres

import (
	"context"
	"testing"
	"time"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment() *domain.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Payment{
		ID:        uuid.New(),
		WalletID:  uuid.New(),
		AmountVnd: 150000,
		Gateway:   domain.GatewayVNPay,
		Flow:      domain.FlowPackagePurchase,
		Status:    domain.PaymentStatusInitiated,
		OrderCode: "1756700000000",
		ClientIP:  "203.0.113.10",
		CreatedAt: now,
	}
}

func paymentCols() []string {
	return []string{"id", "booking_id", "wallet_id", "amount_vnd", "gateway", "flow", "status",
		"external_txn_id", "order_code", "client_ip", "paid_at", "refund_amount_vnd", "created_at"}
}

func paymentRow(p *domain.Payment) *pgxmock.Rows {
	return pgxmock.NewRows(paymentCols()).AddRow(
		p.ID, p.BookingID, p.WalletID, p.AmountVnd, p.Gateway, p.Flow, p.Status,
		p.ExternalTxnID, p.OrderCode, p.ClientIP, p.PaidAt, p.RefundAmountVnd, p.CreatedAt,
	)
}

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(
			p.ID, p.BookingID, p.WalletID, p.AmountVnd, p.Gateway, p.Flow, p.Status,
			p.ExternalTxnID, p.OrderCode, p.ClientIP, p.PaidAt, p.RefundAmountVnd, p.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE id").
		WithArgs(p.ID).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.AmountVnd, result.AmountVnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(paymentCols()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestPaymentRepo_GetByOrderCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE order_code").
		WithArgs(p.OrderCode).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByOrderCode(context.Background(), p.OrderCode)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.OrderCode, result.OrderCode)
}

func TestPaymentRepo_MarkCaptured_OnlyFlipsInitiated(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()
	paidAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusCaptured, "VNP123", paidAt, id, domain.PaymentStatusInitiated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	flipped, err := repo.MarkCaptured(context.Background(), dbTx, id, "VNP123", paidAt)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_MarkCaptured_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()
	paidAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusCaptured, "VNP123", paidAt, id, domain.PaymentStatusInitiated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	flipped, err := repo.MarkCaptured(context.Background(), dbTx, id, "VNP123", paidAt)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestPaymentRepo_MarkFailed_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusFailed, id, domain.PaymentStatusInitiated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	flipped, err := repo.MarkFailed(context.Background(), dbTx, id)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestPaymentRepo_ListExpiredInitiated(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()
	cutoff := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(domain.PaymentStatusInitiated, cutoff, 100).
		WillReturnRows(paymentRow(p))

	result, err := repo.ListExpiredInitiated(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, p.ID, result[0].ID)
}
