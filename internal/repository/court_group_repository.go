package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// CourtGroupRepository manages court groups and their ordered membership.
type CourtGroupRepository struct {
	db *sqlx.DB
}

// NewCourtGroupRepository creates a new court group repository.
func NewCourtGroupRepository(db *sqlx.DB) *CourtGroupRepository {
	return &CourtGroupRepository{db: db}
}

func (r *CourtGroupRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByEvent returns groups with their court ids in membership order.
func (r *CourtGroupRepository) ListByEvent(ctx context.Context, eventID string) ([]models.CourtGroup, error) {
	const groupsQuery = `SELECT id, event_id, name, priority, sort_order, created_at, updated_at FROM court_groups WHERE event_id = $1 ORDER BY priority ASC, sort_order ASC, name ASC`
	var groups []models.CourtGroup
	if err := r.db.SelectContext(ctx, &groups, groupsQuery, eventID); err != nil {
		return nil, fmt.Errorf("list court groups: %w", err)
	}
	if len(groups) == 0 {
		return groups, nil
	}

	const membersQuery = `SELECT m.court_group_id, m.court_id, m.sort_order FROM court_group_courts m JOIN court_groups g ON g.id = m.court_group_id WHERE g.event_id = $1 ORDER BY m.court_group_id ASC, m.sort_order ASC`
	var members []models.CourtGroupMember
	if err := r.db.SelectContext(ctx, &members, membersQuery, eventID); err != nil {
		return nil, fmt.Errorf("list court group members: %w", err)
	}

	byGroup := make(map[string][]string, len(groups))
	for _, member := range members {
		byGroup[member.CourtGroupID] = append(byGroup[member.CourtGroupID], member.CourtID)
	}
	for i := range groups {
		groups[i].CourtIDs = byGroup[groups[i].ID]
		if groups[i].CourtIDs == nil {
			groups[i].CourtIDs = []string{}
		}
	}
	return groups, nil
}

// CreateWithMembers inserts a group and its ordered court membership.
func (r *CourtGroupRepository) CreateWithMembers(ctx context.Context, exec sqlx.ExtContext, group *models.CourtGroup) error {
	target := r.exec(exec)
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const insertGroup = `INSERT INTO court_groups (id, event_id, name, priority, sort_order, created_at, updated_at) VALUES (:id, :event_id, :name, :priority, :sort_order, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertGroup, group); err != nil {
		return fmt.Errorf("insert court group: %w", err)
	}

	const insertMember = `INSERT INTO court_group_courts (court_group_id, court_id, sort_order) VALUES (:court_group_id, :court_id, :sort_order)`
	for idx, courtID := range group.CourtIDs {
		member := models.CourtGroupMember{CourtGroupID: group.ID, CourtID: courtID, SortOrder: idx}
		if _, err := sqlx.NamedExecContext(ctx, target, insertMember, member); err != nil {
			return fmt.Errorf("insert court group member: %w", err)
		}
	}
	return nil
}
