package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NextCoachProfileState is the pure transition for the coach-profile-creation
// workflow. An empty current state means no instance exists yet. Events that
// do not apply to the current state (redeliveries, late arrivals after a
// terminal state) produce no change and no effects.
func NextCoachProfileState(current domain.SagaState, event any) (domain.SagaState, []Effect, string) {
	switch e := event.(type) {
	case domain.ProfileCreated:
		if current != "" {
			return current, nil, ""
		}
		return domain.SagaStateRoleAssigning, []Effect{{
			Topic: domain.TopicRoleAssignRequested,
			Key:   e.CoachID,
			Event: domain.RoleAssignRequested{CoachID: e.CoachID, Role: e.Role},
		}}, ""
	case domain.RoleAssigned:
		if current != domain.SagaStateRoleAssigning {
			return current, nil, ""
		}
		return domain.SagaStateCompleted, nil, ""
	case domain.RoleAssignFailed:
		if current != domain.SagaStateRoleAssigning {
			return current, nil, ""
		}
		return domain.SagaStateFailed, nil, e.Reason
	default:
		return current, nil, ""
	}
}

// CoachProfileSaga drives the coach-profile workflow: persist first, then
// publish, so a crash between the two redelivers into an idempotent
// transition.
type CoachProfileSaga struct {
	sagaRepo  ports.SagaRepository
	publisher ports.EventPublisher
	log       zerolog.Logger
}

// NewCoachProfileSaga creates a CoachProfileSaga.
func NewCoachProfileSaga(sagaRepo ports.SagaRepository, publisher ports.EventPublisher, log zerolog.Logger) *CoachProfileSaga {
	return &CoachProfileSaga{sagaRepo: sagaRepo, publisher: publisher, log: log}
}

// OnProfileCreated starts the workflow for a new coach profile.
func (s *CoachProfileSaga) OnProfileCreated(ctx context.Context, evt domain.ProfileCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal saga payload: %w", err)
	}
	return s.apply(ctx, evt, payload)
}

// OnRoleAssigned completes the workflow.
func (s *CoachProfileSaga) OnRoleAssigned(ctx context.Context, evt domain.RoleAssigned) error {
	return s.apply(ctx, evt, nil)
}

// OnRoleAssignFailed fails the workflow, keeping the reason on the instance.
func (s *CoachProfileSaga) OnRoleAssignFailed(ctx context.Context, evt domain.RoleAssignFailed) error {
	return s.apply(ctx, evt, nil)
}

func coachID(event any) (uuid.UUID, bool) {
	switch e := event.(type) {
	case domain.ProfileCreated:
		return e.CoachID, true
	case domain.RoleAssigned:
		return e.CoachID, true
	case domain.RoleAssignFailed:
		return e.CoachID, true
	}
	return uuid.Nil, false
}

func (s *CoachProfileSaga) apply(ctx context.Context, event any, payload json.RawMessage) error {
	correlationID, ok := coachID(event)
	if !ok {
		return fmt.Errorf("unsupported coach-profile event %T", event)
	}

	instance, err := s.sagaRepo.Get(ctx, correlationID)
	if err != nil {
		return fmt.Errorf("load saga instance: %w", err)
	}

	now := time.Now().UTC()
	current := domain.SagaState("")
	if instance != nil {
		current = instance.State
	}

	next, effects, failureReason := NextCoachProfileState(current, event)
	if next == current && len(effects) == 0 {
		s.log.Debug().
			Str("correlation_id", correlationID.String()).
			Str("state", string(current)).
			Msgf("coach-profile event %T ignored", event)
		return nil
	}

	if instance == nil {
		instance = &domain.SagaInstance{
			CorrelationID: correlationID,
			Workflow:      domain.WorkflowCoachProfile,
			Payload:       payload,
			CreatedAt:     now,
		}
	}
	instance.State = next
	instance.UpdatedAt = now
	if failureReason != "" {
		instance.FailureReason = failureReason
	}

	if err := s.sagaRepo.Upsert(ctx, instance); err != nil {
		return fmt.Errorf("persist saga instance: %w", err)
	}

	for _, effect := range effects {
		if err := s.publisher.Publish(ctx, effect.Topic, effect.Key, effect.Event); err != nil {
			return fmt.Errorf("publish %s: %w", effect.Topic, err)
		}
	}

	s.log.Info().
		Str("correlation_id", correlationID.String()).
		Str("from", string(current)).
		Str("to", string(next)).
		Msg("coach-profile saga transition")
	return nil
}
