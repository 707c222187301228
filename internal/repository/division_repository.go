package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// DivisionRepository reads divisions and their phases.
type DivisionRepository struct {
	db *sqlx.DB
}

// NewDivisionRepository creates a new division repository.
func NewDivisionRepository(db *sqlx.DB) *DivisionRepository {
	return &DivisionRepository{db: db}
}

// FindByID loads a division by id.
func (r *DivisionRepository) FindByID(ctx context.Context, id string) (*models.Division, error) {
	const query = `SELECT id, event_id, name, estimated_match_minutes, min_rest_minutes, created_at, updated_at FROM divisions WHERE id = $1`
	var division models.Division
	if err := r.db.GetContext(ctx, &division, query, id); err != nil {
		return nil, err
	}
	return &division, nil
}

// ListByEvent returns the divisions of an event.
func (r *DivisionRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Division, error) {
	const query = `SELECT id, event_id, name, estimated_match_minutes, min_rest_minutes, created_at, updated_at FROM divisions WHERE event_id = $1 ORDER BY name ASC`
	var divisions []models.Division
	if err := r.db.SelectContext(ctx, &divisions, query, eventID); err != nil {
		return nil, fmt.Errorf("list divisions by event: %w", err)
	}
	return divisions, nil
}

// ListPhasesByEvent returns every phase of every division in the event ordered by division then phase order.
func (r *DivisionRepository) ListPhasesByEvent(ctx context.Context, eventID string) ([]models.Phase, error) {
	const query = `SELECT p.id, p.division_id, p.name, p.phase_order, p.estimated_match_minutes, p.created_at, p.updated_at FROM phases p JOIN divisions d ON d.id = p.division_id WHERE d.event_id = $1 ORDER BY p.division_id ASC, p.phase_order ASC`
	var phases []models.Phase
	if err := r.db.SelectContext(ctx, &phases, query, eventID); err != nil {
		return nil, fmt.Errorf("list phases by event: %w", err)
	}
	return phases, nil
}

// ListUnitsByEvent returns the units competing in any division of the event.
func (r *DivisionRepository) ListUnitsByEvent(ctx context.Context, eventID string) ([]models.Unit, error) {
	const query = `SELECT u.id, u.division_id, u.name, u.member_user_ids FROM units u JOIN divisions d ON d.id = u.division_id WHERE d.event_id = $1 ORDER BY u.division_id ASC, u.name ASC`
	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, query, eventID); err != nil {
		return nil, fmt.Errorf("list units by event: %w", err)
	}
	return units, nil
}
