package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// CourtRepository reads courts of an event.
type CourtRepository struct {
	db *sqlx.DB
}

// NewCourtRepository creates a new court repository.
func NewCourtRepository(db *sqlx.DB) *CourtRepository {
	return &CourtRepository{db: db}
}

// ListByEvent returns every court of the event ordered for display.
func (r *CourtRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Court, error) {
	const query = `SELECT id, event_id, label, is_active, sort_order, created_at, updated_at FROM courts WHERE event_id = $1 ORDER BY sort_order ASC, label ASC`
	var courts []models.Court
	if err := r.db.SelectContext(ctx, &courts, query, eventID); err != nil {
		return nil, fmt.Errorf("list courts by event: %w", err)
	}
	return courts, nil
}

// FindByID loads a court by id.
func (r *CourtRepository) FindByID(ctx context.Context, id string) (*models.Court, error) {
	const query = `SELECT id, event_id, label, is_active, sort_order, created_at, updated_at FROM courts WHERE id = $1`
	var court models.Court
	if err := r.db.GetContext(ctx, &court, query, id); err != nil {
		return nil, err
	}
	return &court, nil
}
