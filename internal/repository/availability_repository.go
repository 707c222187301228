package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// AvailabilityRepository persists event-default and per-court open hours.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByEvent returns every window of the event.
func (r *AvailabilityRepository) ListByEvent(ctx context.Context, eventID string) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, event_id, court_id, day_number, open_from, open_to, created_at, updated_at FROM availability_windows WHERE event_id = $1 ORDER BY day_number ASC, court_id ASC NULLS FIRST`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, eventID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ReplaceForEvent deletes the event windows and inserts the provided set.
func (r *AvailabilityRepository) ReplaceForEvent(ctx context.Context, exec sqlx.ExtContext, eventID string, windows []models.AvailabilityWindow) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM availability_windows WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete availability windows: %w", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO availability_windows (id, event_id, court_id, day_number, open_from, open_to, created_at, updated_at) VALUES (:id, :event_id, :court_id, :day_number, :open_from, :open_to, :created_at, :updated_at)`
	for i := range windows {
		window := &windows[i]
		if window.ID == "" {
			window.ID = uuid.NewString()
		}
		window.EventID = eventID
		window.CreatedAt = now
		window.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, window); err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}
	return nil
}
