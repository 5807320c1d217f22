package postgres

import (
	"context"
	"errors"
	"fmt"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SagaRepo implements ports.SagaRepository. One row per correlation id;
// redelivered events converge on that row through the upsert.
type SagaRepo struct {
	pool Pool
}

// NewSagaRepo creates a new SagaRepo.
func NewSagaRepo(pool Pool) *SagaRepo {
	return &SagaRepo{pool: pool}
}

// Get fetches a saga instance by correlation id. Returns nil, nil when no
// workflow has started for the key.
func (r *SagaRepo) Get(ctx context.Context, correlationID uuid.UUID) (*domain.SagaInstance, error) {
	query := `SELECT correlation_id, workflow, state, payload, failure_code, failure_reason, created_at, updated_at
		FROM saga_instances WHERE correlation_id = $1`

	i := &domain.SagaInstance{}
	err := r.pool.QueryRow(ctx, query, correlationID).Scan(
		&i.CorrelationID, &i.Workflow, &i.State, &i.Payload,
		&i.FailureCode, &i.FailureReason, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan saga instance: %w", err)
	}
	return i, nil
}

// Upsert writes the instance snapshot, replacing any previous state for the
// same correlation id.
func (r *SagaRepo) Upsert(ctx context.Context, instance *domain.SagaInstance) error {
	query := `INSERT INTO saga_instances
		(correlation_id, workflow, state, payload, failure_code, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (correlation_id)
		DO UPDATE SET state = $3, payload = COALESCE($4, saga_instances.payload),
			failure_code = $5, failure_reason = $6, updated_at = $8`

	_, err := r.pool.Exec(ctx, query,
		instance.CorrelationID, instance.Workflow, instance.State, instance.Payload,
		instance.FailureCode, instance.FailureReason, instance.CreatedAt, instance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert saga instance: %w", err)
	}
	return nil
}
