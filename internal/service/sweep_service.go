package service

import (
	"context"
	"fmt"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"

	"github.com/rs/zerolog"
)

// SweepService is the liveness mechanism for payments whose gateway callback
// never arrives: a single-instance poller that fails INITIATED payments past
// the timeout and cancels their staged journals. It only ever touches
// non-terminal rows, so a genuine late callback and the sweep race on
// whoever commits first.
type SweepService struct {
	paymentRepo ports.PaymentRepository
	journalRepo ports.WalletJournalRepository
	poster      *LedgerPoster
	transactor  ports.DBTransactor
	interval    time.Duration
	timeout     time.Duration
	batch       int
	log         zerolog.Logger
}

// NewSweepService creates a SweepService.
func NewSweepService(
	paymentRepo ports.PaymentRepository,
	journalRepo ports.WalletJournalRepository,
	poster *LedgerPoster,
	transactor ports.DBTransactor,
	interval, timeout time.Duration,
	batch int,
	log zerolog.Logger,
) *SweepService {
	return &SweepService{
		paymentRepo: paymentRepo,
		journalRepo: journalRepo,
		poster:      poster,
		transactor:  transactor,
		interval:    interval,
		timeout:     timeout,
		batch:       batch,
		log:         log,
	}
}

// Run polls until ctx is cancelled.
func (s *SweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.interval).
		Dur("timeout", s.timeout).
		Msg("payment expiry sweep started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("payment expiry sweep stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("expiry sweep pass failed")
			}
		}
	}
}

// SweepOnce expires one batch of timed-out payments. Each payment is handled
// in its own transaction so one conflicting row cannot wedge the batch.
func (s *SweepService) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.timeout)
	expired, err := s.paymentRepo.ListExpiredInitiated(ctx, cutoff, s.batch)
	if err != nil {
		return fmt.Errorf("list expired payments: %w", err)
	}

	for _, p := range expired {
		if err := s.expire(ctx, p); err != nil {
			s.log.Error().Err(err).Str("payment_id", p.ID.String()).Msg("failed to expire payment")
		}
	}
	return nil
}

func (s *SweepService) expire(ctx context.Context, p domain.Payment) error {
	now := time.Now().UTC()

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Conditional flip: a callback that captured the payment in the
	// meantime wins and the sweep skips the row.
	failed, err := s.paymentRepo.MarkFailed(ctx, tx, p.ID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if !failed {
		return nil
	}

	journals, err := s.journalRepo.ListByPaymentID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list journals: %w", err)
	}
	for _, j := range journals {
		if _, err := s.poster.PostOrCancel(ctx, tx, j.ID, domain.JournalStatusCancelled, now); err != nil {
			return fmt.Errorf("cancel journal %s: %w", j.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit expiry: %w", err)
	}

	s.log.Info().
		Str("payment_id", p.ID.String()).
		Time("created_at", p.CreatedAt).
		Msg("initiated payment expired")
	return nil
}
