package domain

// ReconcileOutcome is the terminal classification of one callback handling.
type ReconcileOutcome string

const (
	// OutcomeConfirmed: the payment was captured and its journals posted.
	OutcomeConfirmed ReconcileOutcome = "CONFIRMED"
	// OutcomeFailed: a validly-signed failure; payment failed, journals cancelled.
	OutcomeFailed ReconcileOutcome = "FAILED"
	// OutcomeAlreadyConfirmed: idempotent success path, nothing mutated.
	OutcomeAlreadyConfirmed ReconcileOutcome = "ALREADY_CONFIRMED"
	// OutcomeRejected: callback rejected, zero mutation.
	OutcomeRejected ReconcileOutcome = "REJECTED"
)

// Rejection codes carried in ReconcileResult. Rejections are answers to the
// gateway, not errors: infrastructure failures propagate as errors instead
// and rely on the gateway's own retry policy.
const (
	ReconcileCodeConfirmed            = "00"
	ReconcileCodeConfigurationMissing = "95"
	ReconcileCodeSignatureInvalid     = "97"
	ReconcileCodePaymentNotFound      = "01"
	ReconcileCodeAmountMismatch       = "04"
	ReconcileCodeAlreadyConfirmed     = "02"
	ReconcileCodePaymentFailed        = "03"
)

// ReconcileResult is the machine-readable answer to one gateway callback.
// Code/Message are rendered into the gateway's own webhook vocabulary by the
// HTTP layer.
type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
}

// Mutated reports whether this result implies a ledger mutation happened.
func (r ReconcileResult) Mutated() bool {
	return r.Outcome == OutcomeConfirmed || r.Outcome == OutcomeFailed
}
