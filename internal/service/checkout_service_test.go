package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	adapter    *stubAdapter
	payments   *fakePaymentRepo
	wallets    *fakeWalletRepo
	journals   *fakeJournalRepo
	entries    *fakeEntryRepo
	balances   *fakeBalanceRepo
	svc        *CheckoutServiceImpl
	clearingID uuid.UUID
	walletID   uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{
		adapter:    &stubAdapter{gateway: domain.GatewayMomo, configValid: true},
		payments:   newFakePaymentRepo(),
		wallets:    newFakeWalletRepo(),
		journals:   newFakeJournalRepo(),
		entries:    newFakeEntryRepo(),
		balances:   newFakeBalanceRepo(),
		clearingID: uuid.New(),
		walletID:   uuid.New(),
	}

	require.NoError(t, f.wallets.Create(context.Background(), &domain.Wallet{
		ID:       f.walletID,
		OwnerID:  uuid.New(),
		Currency: "VND",
		Status:   domain.WalletStatusActive,
	}))

	poster := NewLedgerPoster(f.journals, f.entries, f.balances, zerolog.Nop())
	f.svc = NewCheckoutService(
		map[domain.PaymentGateway]ports.GatewayAdapter{domain.GatewayMomo: f.adapter},
		f.payments, f.wallets, poster, &fakeTransactor{}, f.clearingID, zerolog.Nop(),
	)
	return f
}

func validRequest(f *checkoutFixture) ports.CheckoutRequest {
	return ports.CheckoutRequest{
		WalletID:  f.walletID,
		AmountVnd: 200000,
		Gateway:   domain.GatewayMomo,
		Flow:      domain.FlowPackagePurchase,
		ClientIP:  "203.0.113.10",
	}
}

func TestInitiate_StagesPaymentAndJournal(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	artifacts, journalID, err := f.svc.Initiate(ctx, validRequest(f))
	require.NoError(t, err)
	require.NotNil(t, artifacts)
	require.NotEqual(t, uuid.Nil, journalID)

	p, err := f.payments.GetByID(ctx, artifacts.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.PaymentStatusInitiated, p.Status)
	assert.Equal(t, int64(200000), p.AmountVnd)
	assert.NotEmpty(t, p.OrderCode)

	j, err := f.journals.GetByID(ctx, journalID)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, domain.JournalStatusPending, j.Status)
	assert.Equal(t, domain.JournalTypePackagePurchase, j.Type)
	require.NotNil(t, j.PaymentID)
	assert.Equal(t, p.ID, *j.PaymentID)

	entries, err := f.entries.ListByJournalID(ctx, journalID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, domain.EntriesBalanced(entries))

	var debit, credit *domain.WalletLedgerEntry
	for i := range entries {
		switch entries[i].Direction {
		case domain.EntryDebit:
			debit = &entries[i]
		case domain.EntryCredit:
			credit = &entries[i]
		}
	}
	require.NotNil(t, debit)
	require.NotNil(t, credit)
	assert.Equal(t, f.clearingID, debit.WalletID)
	assert.Equal(t, domain.AccountAvailable, debit.AccountType)
	assert.Equal(t, f.walletID, credit.WalletID)
	assert.Equal(t, domain.AccountEscrow, credit.AccountType)

	// Staging never touches balances; only posting does.
	b, err := f.balances.Get(ctx, f.walletID, domain.AccountEscrow)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestInitiate_RejectsNonPositiveAmount(t *testing.T) {
	f := newCheckoutFixture(t)

	req := validRequest(f)
	req.AmountVnd = 0
	_, _, err := f.svc.Initiate(context.Background(), req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
}

func TestInitiate_RejectsUnknownGateway(t *testing.T) {
	f := newCheckoutFixture(t)

	req := validRequest(f)
	req.Gateway = domain.GatewayPayOS
	_, _, err := f.svc.Initiate(context.Background(), req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CFG_002", appErr.Code)
}

func TestInitiate_RejectsUnconfiguredFlow(t *testing.T) {
	f := newCheckoutFixture(t)
	f.adapter.configValid = false

	_, _, err := f.svc.Initiate(context.Background(), validRequest(f))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CFG_001", appErr.Code)
}

func TestInitiate_RejectsMissingWallet(t *testing.T) {
	f := newCheckoutFixture(t)

	req := validRequest(f)
	req.WalletID = uuid.New()
	_, _, err := f.svc.Initiate(context.Background(), req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_003", appErr.Code)
}

func TestInitiate_GatewayFailureLeavesPaymentForSweep(t *testing.T) {
	f := newCheckoutFixture(t)
	f.adapter.buildErr = errors.New("gateway unavailable")
	ctx := context.Background()

	_, _, err := f.svc.Initiate(ctx, validRequest(f))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_004", appErr.Code)

	// The payment and its journal are committed before the gateway call;
	// the expiry sweep reclaims them.
	expired, listErr := f.payments.ListExpiredInitiated(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, listErr)
	require.Len(t, expired, 1)
	assert.Equal(t, domain.PaymentStatusInitiated, expired[0].Status)
}

func TestInitiate_BookingFlowStagesHoldJournal(t *testing.T) {
	f := newCheckoutFixture(t)
	bookingID := uuid.New()

	req := validRequest(f)
	req.BookingID = &bookingID
	req.Flow = domain.FlowBooking

	_, journalID, err := f.svc.Initiate(context.Background(), req)
	require.NoError(t, err)

	j, err := f.journals.GetByID(context.Background(), journalID)
	require.NoError(t, err)
	assert.Equal(t, domain.JournalTypeBookingHold, j.Type)
	require.NotNil(t, j.BookingID)
	assert.Equal(t, bookingID, *j.BookingID)
}
