package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// Failure code used when initiation dies on something without a domain code.
const packagePurchaseExceptionCode = "SAGA_EXCEPTION"

// PackagePurchaseSaga is the single-shot workflow behind a pending
// subscription-package reservation: it invokes payment initiation in-process
// and finalizes immediately. Failures become PaymentFailed events so the
// booking owner can release the reservation; they never crash the consumer.
type PackagePurchaseSaga struct {
	checkout  ports.CheckoutService
	sagaRepo  ports.SagaRepository
	publisher ports.EventPublisher
	log       zerolog.Logger
}

// NewPackagePurchaseSaga creates a PackagePurchaseSaga.
func NewPackagePurchaseSaga(
	checkout ports.CheckoutService,
	sagaRepo ports.SagaRepository,
	publisher ports.EventPublisher,
	log zerolog.Logger,
) *PackagePurchaseSaga {
	return &PackagePurchaseSaga{
		checkout:  checkout,
		sagaRepo:  sagaRepo,
		publisher: publisher,
		log:       log,
	}
}

// OnReservationCreated handles one PackageReservationCreated event. The
// subscription id is the correlation key; a redelivered event that finds a
// finalized instance is acknowledged without effect.
func (s *PackagePurchaseSaga) OnReservationCreated(ctx context.Context, evt domain.PackageReservationCreated) error {
	existing, err := s.sagaRepo.Get(ctx, evt.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load saga instance: %w", err)
	}
	if existing != nil && existing.IsTerminal() {
		s.log.Debug().
			Str("correlation_id", evt.SubscriptionID.String()).
			Str("state", string(existing.State)).
			Msg("package-purchase saga already finalized, ignoring redelivery")
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal saga payload: %w", err)
	}
	now := time.Now().UTC()
	instance := &domain.SagaInstance{
		CorrelationID: evt.SubscriptionID,
		Workflow:      domain.WorkflowPackagePurchase,
		Payload:       payload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing != nil {
		instance.CreatedAt = existing.CreatedAt
	}

	bookingID := evt.BookingID
	artifacts, journalID, err := s.checkout.Initiate(ctx, ports.CheckoutRequest{
		BookingID: &bookingID,
		WalletID:  evt.WalletID,
		AmountVnd: evt.AmountVnd,
		Gateway:   evt.Gateway,
		Flow:      evt.Flow,
		ClientIP:  evt.ClientIP,
	})
	if err != nil {
		return s.finalizeFailed(ctx, instance, evt, err)
	}

	instance.State = domain.SagaStateCompleted
	instance.UpdatedAt = time.Now().UTC()
	if err := s.sagaRepo.Upsert(ctx, instance); err != nil {
		return fmt.Errorf("persist saga instance: %w", err)
	}

	ready := domain.PaymentReady{
		SubscriptionID: evt.SubscriptionID,
		PaymentID:      artifacts.PaymentID,
		CheckoutURL:    artifacts.CheckoutURL,
		Deeplink:       artifacts.Deeplink,
		QRCode:         artifacts.QRCode,
		Signature:      artifacts.Signature,
		OrderCode:      artifacts.OrderCode,
	}
	if err := s.publisher.Publish(ctx, domain.TopicPaymentReady, evt.SubscriptionID, ready); err != nil {
		return fmt.Errorf("publish payment ready: %w", err)
	}

	succeeded := domain.PaymentSucceeded{
		SubscriptionID:  evt.SubscriptionID,
		PaymentID:       artifacts.PaymentID,
		WalletJournalID: journalID,
		WalletCaptured:  false,
	}
	if err := s.publisher.Publish(ctx, domain.TopicPaymentSucceeded, evt.SubscriptionID, succeeded); err != nil {
		return fmt.Errorf("publish payment succeeded: %w", err)
	}

	s.log.Info().
		Str("correlation_id", evt.SubscriptionID.String()).
		Str("payment_id", artifacts.PaymentID.String()).
		Str("gateway", string(evt.Gateway)).
		Msg("package-purchase saga completed")
	return nil
}

// finalizeFailed records the failure on the instance and tells the booking
// owner to release the reservation. The error itself is swallowed: the
// audit trail is the instance plus the PaymentFailed event.
func (s *PackagePurchaseSaga) finalizeFailed(ctx context.Context, instance *domain.SagaInstance, evt domain.PackageReservationCreated, cause error) error {
	code := packagePurchaseExceptionCode
	var appErr *apperror.AppError
	if errors.As(cause, &appErr) {
		code = appErr.Code
	}

	instance.State = domain.SagaStateFailed
	instance.FailureCode = code
	instance.FailureReason = cause.Error()
	instance.UpdatedAt = time.Now().UTC()
	if err := s.sagaRepo.Upsert(ctx, instance); err != nil {
		return fmt.Errorf("persist failed saga instance: %w", err)
	}

	failed := domain.PaymentFailed{
		SubscriptionID: evt.SubscriptionID,
		Code:           code,
		Reason:         cause.Error(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicPaymentFailed, evt.SubscriptionID, failed); err != nil {
		return fmt.Errorf("publish payment failed: %w", err)
	}

	s.log.Warn().
		Str("correlation_id", evt.SubscriptionID.String()).
		Str("code", code).
		Str("reason", cause.Error()).
		Msg("package-purchase saga failed")
	return nil
}
