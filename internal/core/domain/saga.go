package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SagaWorkflow names a saga definition.
type SagaWorkflow string

const (
	WorkflowCoachProfile    SagaWorkflow = "COACH_PROFILE_CREATION"
	WorkflowPackagePurchase SagaWorkflow = "PACKAGE_PURCHASE"
)

// SagaState is the current state tag of a saga instance. The meaning of each
// tag is workflow-specific.
type SagaState string

const (
	SagaStateRoleAssigning SagaState = "ROLE_ASSIGNING"
	SagaStateCompleted     SagaState = "COMPLETED"
	SagaStateFailed        SagaState = "FAILED"
)

// SagaInstance is the durable snapshot of one correlation-keyed workflow.
// It is created on the first correlated event, updated by each subsequent
// event, and finalized on reaching a terminal state. Persistence is an
// upsert by correlation id, so redelivered events converge on one row.
type SagaInstance struct {
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Workflow      SagaWorkflow    `json:"workflow"`
	State         SagaState       `json:"state"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	FailureCode   string          `json:"failure_code,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsTerminal returns true once the instance will accept no further events.
func (s *SagaInstance) IsTerminal() bool {
	return s.State == SagaStateCompleted || s.State == SagaStateFailed
}
