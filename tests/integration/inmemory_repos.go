package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) GetByOrderCode(ctx context.Context, orderCode string) (*domain.Payment, error) {
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

func (r *inMemoryPaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

// MarkCaptured mirrors the conditional UPDATE: only an INITIATED row flips,
// so concurrent duplicates lose the race exactly as they would in Postgres.
func (r *inMemoryPaymentRepo) MarkCaptured(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxnID string, paidAt time.Time) (bool, error) {
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

func (r *inMemoryPaymentRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusInitiated {
		return false, nil
	}
	p.Status = domain.PaymentStatusFailed
	return true, nil
}

func (r *inMemoryPaymentRepo) ListExpiredInitiated(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusInitiated && p.CreatedAt.Before(olderThan) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
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

type inMemoryBalanceRepo struct {
	mu       sync.RWMutex
	balances map[balanceKey]int64
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{balances: make(map[balanceKey]int64)}
}

func (r *inMemoryBalanceRepo) Get(ctx context.Context, walletID uuid.UUID, account domain.AccountType) (*domain.WalletBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.balances[balanceKey{walletID, account}]
	if !ok {
		return nil, nil
	}
	return &domain.WalletBalance{WalletID: walletID, AccountType: account, BalanceVnd: v}, nil
}

func (r *inMemoryBalanceRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, account domain.AccountType, deltaVnd int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[balanceKey{walletID, account}] += deltaVnd
	return nil
}

// --- In-Memory Journal Repo ---

type inMemoryJournalRepo struct {
	mu       sync.RWMutex
	journals map[uuid.UUID]*domain.WalletJournal
}

func newInMemoryJournalRepo() *inMemoryJournalRepo {
	return &inMemoryJournalRepo{journals: make(map[uuid.UUID]*domain.WalletJournal)}
}

func (r *inMemoryJournalRepo) Create(ctx context.Context, tx pgx.Tx, j *domain.WalletJournal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.journals[j.ID] = &cp
	return nil
}

func (r *inMemoryJournalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletJournal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.journals[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *inMemoryJournalRepo) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WalletJournal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletJournal
	for _, j := range r.journals {
		if j.PaymentID != nil && *j.PaymentID == paymentID {
			result = append(result, *j)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// UpdateStatus mirrors the conditional UPDATE: only a PENDING journal flips.
func (r *inMemoryJournalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.JournalStatus, postedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.journals[id]
	if !ok {
		return false, fmt.Errorf("journal not found")
	}
	if j.Status != domain.JournalStatusPending {
		return false, nil
	}
	j.Status = status
	j.PostedAt = postedAt
	return true, nil
}

// --- In-Memory Ledger Entry Repo ---

type inMemoryEntryRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletLedgerEntry
}

func newInMemoryEntryRepo() *inMemoryEntryRepo {
	return &inMemoryEntryRepo{}
}

func (r *inMemoryEntryRepo) CreateBatch(ctx context.Context, tx pgx.Tx, entries []domain.WalletLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *inMemoryEntryRepo) ListByJournalID(ctx context.Context, journalID uuid.UUID) ([]domain.WalletLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletLedgerEntry
	for _, e := range r.entries {
		if e.JournalID == journalID {
			result = append(result, e)
		}
	}
	return result, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
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
