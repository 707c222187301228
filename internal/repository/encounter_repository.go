package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

const encounterSelect = `SELECT e.id, e.event_id, e.division_id, e.phase_id, e.unit1_id, e.unit2_id, e.court_id, e.estimated_start, e.estimated_end, e.duration_minutes, e.status, e.round_number, e.round_type, e.round_name, e.encounter_number, ARRAY(SELECT d.depends_on_id::text FROM encounter_dependencies d WHERE d.encounter_id = e.id ORDER BY d.depends_on_id) AS predecessor_ids, e.created_at, e.updated_at FROM encounters e`

// EncounterRepository reads encounters and writes their court/time assignment.
type EncounterRepository struct {
	db *sqlx.DB
}

// NewEncounterRepository creates a new encounter repository.
func NewEncounterRepository(db *sqlx.DB) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// ListByEvent returns all encounters of an event with their predecessor edges.
func (r *EncounterRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Encounter, error) {
	query := encounterSelect + ` WHERE e.event_id = $1 ORDER BY e.division_id ASC, e.round_number ASC, e.encounter_number ASC, e.id ASC`
	var encounters []models.Encounter
	if err := r.db.SelectContext(ctx, &encounters, query, eventID); err != nil {
		return nil, fmt.Errorf("list encounters by event: %w", err)
	}
	return encounters, nil
}

// FindByID loads an encounter by id.
func (r *EncounterRepository) FindByID(ctx context.Context, id string) (*models.Encounter, error) {
	query := encounterSelect + ` WHERE e.id = $1`
	var encounter models.Encounter
	if err := r.db.GetContext(ctx, &encounter, query, id); err != nil {
		return nil, err
	}
	return &encounter, nil
}

// AssignSlot writes court, start and end together. Frozen encounters are never touched;
// sql.ErrNoRows is returned when no row qualified.
func (r *EncounterRepository) AssignSlot(ctx context.Context, assignment models.SlotAssignment) error {
	const query = `UPDATE encounters SET court_id = $2, estimated_start = $3, estimated_end = $4, status = $5, updated_at = $6 WHERE id = $1 AND status NOT IN ('IN_PROGRESS', 'COMPLETED')`
	res, err := r.db.ExecContext(ctx, query,
		assignment.EncounterID,
		assignment.CourtID,
		assignment.Start.UTC(),
		assignment.End.UTC(),
		models.EncounterStatusScheduled,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("assign encounter slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign encounter slot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearByDivision unsets court/time on schedulable encounters of a division (optionally one phase)
// and returns how many rows actually changed.
func (r *EncounterRepository) ClearByDivision(ctx context.Context, divisionID string, phaseID *string) (int, error) {
	query := `UPDATE encounters SET court_id = NULL, estimated_start = NULL, estimated_end = NULL, status = $2, updated_at = $3 WHERE division_id = $1 AND status NOT IN ('IN_PROGRESS', 'COMPLETED', 'CANCELLED') AND (court_id IS NOT NULL OR estimated_start IS NOT NULL OR estimated_end IS NOT NULL)`
	args := []interface{}{divisionID, models.EncounterStatusPending, time.Now().UTC()}
	if phaseID != nil {
		query += ` AND phase_id = $4`
		args = append(args, *phaseID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear division schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear division schedule rows: %w", err)
	}
	return int(affected), nil
}

// ClearSlot unsets court/time on one encounter; it reports whether the row changed.
func (r *EncounterRepository) ClearSlot(ctx context.Context, encounterID string) (bool, error) {
	const query = `UPDATE encounters SET court_id = NULL, estimated_start = NULL, estimated_end = NULL, status = $2, updated_at = $3 WHERE id = $1 AND status NOT IN ('IN_PROGRESS', 'COMPLETED', 'CANCELLED') AND (court_id IS NOT NULL OR estimated_start IS NOT NULL OR estimated_end IS NOT NULL)`
	res, err := r.db.ExecContext(ctx, query, encounterID, models.EncounterStatusPending, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("clear encounter slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear encounter slot rows: %w", err)
	}
	return affected > 0, nil
}
