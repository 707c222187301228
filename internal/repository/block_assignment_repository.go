package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

const blockAssignmentColumns = `id, event_id, division_id, phase_id, court_group_id, day_number, valid_from, valid_to, priority, depends_on_block_id, created_at, updated_at`

// BlockAssignmentRepository persists division/phase to court group bindings.
type BlockAssignmentRepository struct {
	db *sqlx.DB
}

// NewBlockAssignmentRepository creates a new block assignment repository.
func NewBlockAssignmentRepository(db *sqlx.DB) *BlockAssignmentRepository {
	return &BlockAssignmentRepository{db: db}
}

func (r *BlockAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByEvent returns the blocks of an event ordered by priority.
func (r *BlockAssignmentRepository) ListByEvent(ctx context.Context, eventID string) ([]models.BlockAssignment, error) {
	query := `SELECT ` + blockAssignmentColumns + ` FROM block_assignments WHERE event_id = $1 ORDER BY priority ASC, created_at ASC, id ASC`
	var blocks []models.BlockAssignment
	if err := r.db.SelectContext(ctx, &blocks, query, eventID); err != nil {
		return nil, fmt.Errorf("list block assignments: %w", err)
	}
	return blocks, nil
}

// DeleteByEvent removes every block of the event.
func (r *BlockAssignmentRepository) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM block_assignments WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete block assignments: %w", err)
	}
	return nil
}

// CreateBatch inserts blocks in the given order; dependencies must precede their dependents.
func (r *BlockAssignmentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.BlockAssignment) error {
	if len(blocks) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	query := `INSERT INTO block_assignments (` + blockAssignmentColumns + `) VALUES (:id, :event_id, :division_id, :phase_id, :court_group_id, :day_number, :valid_from, :valid_to, :priority, :depends_on_block_id, :created_at, :updated_at)`
	for i := range blocks {
		block := &blocks[i]
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		if block.CreatedAt.IsZero() {
			block.CreatedAt = now
		}
		block.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, block); err != nil {
			return fmt.Errorf("insert block assignment: %w", err)
		}
	}
	return nil
}
