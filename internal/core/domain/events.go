package domain

import "github.com/google/uuid"

// Kafka topics carrying the integration events. Messages are keyed by the
// correlation id so per-saga ordering is preserved.
const (
	TopicPackageReservationCreated = "subscriptions.reservation.created"
	TopicPaymentReady              = "payments.checkout.ready"
	TopicPaymentSucceeded          = "payments.payment.succeeded"
	TopicPaymentFailed             = "payments.payment.failed"
	TopicProfileCreated            = "coaches.profile.created"
	TopicRoleAssignRequested       = "identity.role.assign-requested"
	TopicRoleAssigned              = "identity.role.assigned"
	TopicRoleAssignFailed          = "identity.role.assign-failed"
)

// PackageReservationCreated starts the package-purchase saga. The subscription
// id doubles as the correlation id for every downstream event.
type PackageReservationCreated struct {
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	BookingID      uuid.UUID      `json:"booking_id"`
	WalletID       uuid.UUID      `json:"wallet_id"`
	AmountVnd      int64          `json:"amount_vnd"`
	Gateway        PaymentGateway `json:"gateway"`
	Flow           PaymentFlow    `json:"flow"`
	ClientIP       string         `json:"client_ip"`
}

// PaymentReady carries the checkout artifacts for the fast-path status cache.
type PaymentReady struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	PaymentID      uuid.UUID `json:"payment_id"`
	CheckoutURL    string    `json:"checkout_url,omitempty"`
	Deeplink       string    `json:"deeplink,omitempty"`
	QRCode         string    `json:"qr_code,omitempty"`
	Signature      string    `json:"signature,omitempty"`
	OrderCode      string    `json:"order_code,omitempty"`
}

// PaymentSucceeded tells the booking owner to confirm the reservation.
type PaymentSucceeded struct {
	SubscriptionID  uuid.UUID `json:"subscription_id"`
	PaymentID       uuid.UUID `json:"payment_id"`
	WalletJournalID uuid.UUID `json:"wallet_journal_id"`
	WalletCaptured  bool      `json:"wallet_captured"`
}

// PaymentFailed tells the booking owner to release the reservation.
type PaymentFailed struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Code           string    `json:"code"`
	Reason         string    `json:"reason"`
}

// ProfileCreated starts the coach-profile-creation saga.
type ProfileCreated struct {
	CoachID uuid.UUID `json:"coach_id"`
	Role    string    `json:"role"`
}

// RoleAssignRequested asks the identity service to assign the coach role.
type RoleAssignRequested struct {
	CoachID uuid.UUID `json:"coach_id"`
	Role    string    `json:"role"`
}

// RoleAssigned reports a successful role assignment.
type RoleAssigned struct {
	CoachID uuid.UUID `json:"coach_id"`
}

// RoleAssignFailed reports a failed role assignment.
type RoleAssignFailed struct {
	CoachID uuid.UUID `json:"coach_id"`
	Reason  string    `json:"reason"`
}
