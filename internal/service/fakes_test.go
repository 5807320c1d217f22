package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Payment Repo ---

type fakePaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByOrderCode(ctx context.Context, orderCode string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.OrderCode == orderCode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *fakePaymentRepo) MarkCaptured(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxnID string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusInitiated {
		return false, nil
	}
	p.Status = domain.PaymentStatusCaptured
	p.ExternalTxnID = &externalTxnID
	p.PaidAt = &paidAt
	return true, nil
}

func (r *fakePaymentRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusInitiated {
		return false, nil
	}
	p.Status = domain.PaymentStatusFailed
	return true, nil
}

func (r *fakePaymentRepo) ListExpiredInitiated(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusInitiated && p.CreatedAt.Before(olderThan) {
			out = append(out, *p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// --- In-Memory Wallet Repo ---

type fakeWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *fakeWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *fakeWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// --- In-Memory Balance Repo ---

type balanceKey struct {
	walletID uuid.UUID
	account  domain.AccountType
}

type fakeBalanceRepo struct {
	mu       sync.RWMutex
	balances map[balanceKey]int64
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[balanceKey]int64)}
}

func (r *fakeBalanceRepo) Get(ctx context.Context, walletID uuid.UUID, account domain.AccountType) (*domain.WalletBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.balances[balanceKey{walletID, account}]
	if !ok {
		return nil, nil
	}
	return &domain.WalletBalance{WalletID: walletID, AccountType: account, BalanceVnd: v}, nil
}

func (r *fakeBalanceRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, account domain.AccountType, deltaVnd int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[balanceKey{walletID, account}] += deltaVnd
	return nil
}

// --- In-Memory Journal Repo ---

type fakeJournalRepo struct {
	mu       sync.RWMutex
	journals map[uuid.UUID]*domain.WalletJournal
}

func newFakeJournalRepo() *fakeJournalRepo {
	return &fakeJournalRepo{journals: make(map[uuid.UUID]*domain.WalletJournal)}
}

func (r *fakeJournalRepo) Create(ctx context.Context, tx pgx.Tx, j *domain.WalletJournal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.journals[j.ID] = &cp
	return nil
}

func (r *fakeJournalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletJournal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.journals[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJournalRepo) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WalletJournal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WalletJournal
	for _, j := range r.journals {
		if j.PaymentID != nil && *j.PaymentID == paymentID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeJournalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.JournalStatus, postedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.journals[id]
	if !ok || j.Status != domain.JournalStatusPending {
		return false, nil
	}
	j.Status = status
	j.PostedAt = postedAt
	return true, nil
}

// --- In-Memory Ledger Entry Repo ---

type fakeEntryRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletLedgerEntry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{}
}

func (r *fakeEntryRepo) CreateBatch(ctx context.Context, tx pgx.Tx, entries []domain.WalletLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeEntryRepo) ListByJournalID(ctx context.Context, journalID uuid.UUID) ([]domain.WalletLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WalletLedgerEntry
	for _, e := range r.entries {
		if e.JournalID == journalID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- In-Memory Withdrawal Repo ---

type fakeWithdrawalRepo struct {
	mu          sync.RWMutex
	withdrawals map[uuid.UUID]*domain.WithdrawalRequest
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{withdrawals: make(map[uuid.UUID]*domain.WithdrawalRequest)}
}

func (r *fakeWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.withdrawals[w.ID] = &cp
	return nil
}

func (r *fakeWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, processedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = status
	w.ProcessedAt = processedAt
	return true, nil
}

// --- In-Memory Transactor (no-op tx) ---

type fakeTransactor struct{}

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Stub Gateway Adapter ---

// stubAdapter is a scriptable ports.GatewayAdapter.
type stubAdapter struct {
	gateway       domain.PaymentGateway
	configValid   bool
	verifyErr     error
	ref           ports.PaymentRef
	refErr        error
	amount        int64
	amountErr     error
	code          string
	status        string
	success       bool
	externalTxnID string
	artifacts     *ports.CheckoutArtifacts
	buildErr      error
}

func (a *stubAdapter) Gateway() domain.PaymentGateway { return a.gateway }

func (a *stubAdapter) ConfigValid(flow domain.PaymentFlow) bool { return a.configValid }

func (a *stubAdapter) VerifyCallback(ctx context.Context, params map[string]string) (map[string]string, error) {
	if a.verifyErr != nil {
		return nil, a.verifyErr
	}
	return params, nil
}

func (a *stubAdapter) ResolvePaymentRef(params map[string]string) (ports.PaymentRef, error) {
	return a.ref, a.refErr
}

func (a *stubAdapter) ResolveAmount(params map[string]string) (int64, error) {
	return a.amount, a.amountErr
}

func (a *stubAdapter) ResolveResult(params map[string]string) (string, string) {
	return a.code, a.status
}

func (a *stubAdapter) IsSuccess(code, status string) bool { return a.success }

func (a *stubAdapter) ResolveExternalTxnID(params map[string]string) string {
	return a.externalTxnID
}

func (a *stubAdapter) LedgerDescription() string { return "stub capture" }

func (a *stubAdapter) BuildCheckout(ctx context.Context, p *domain.Payment) (*ports.CheckoutArtifacts, error) {
	if a.buildErr != nil {
		return nil, a.buildErr
	}
	if a.artifacts != nil {
		return a.artifacts, nil
	}
	return &ports.CheckoutArtifacts{
		PaymentID:   p.ID,
		CheckoutURL: fmt.Sprintf("https://stub.example.com/pay/%s", p.ID),
		OrderCode:   p.OrderCode,
	}, nil
}
