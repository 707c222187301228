package models

import (
	"time"

	"github.com/lib/pq"
)

// Division is a competitive bracket segment of an event.
type Division struct {
	ID                    string    `db:"id" json:"id"`
	EventID               string    `db:"event_id" json:"event_id"`
	Name                  string    `db:"name" json:"name"`
	EstimatedMatchMinutes int       `db:"estimated_match_minutes" json:"estimated_match_minutes"`
	MinRestMinutes        int       `db:"min_rest_minutes" json:"min_rest_minutes"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Phase is an ordered stage inside a division (pool play, bracket, ...).
type Phase struct {
	ID                    string    `db:"id" json:"id"`
	DivisionID            string    `db:"division_id" json:"division_id"`
	Name                  string    `db:"name" json:"name"`
	PhaseOrder            int       `db:"phase_order" json:"phase_order"`
	EstimatedMatchMinutes *int      `db:"estimated_match_minutes" json:"estimated_match_minutes,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Unit is a player or fixed team competing in a division.
type Unit struct {
	ID            string         `db:"id" json:"id"`
	DivisionID    string         `db:"division_id" json:"division_id"`
	Name          string         `db:"name" json:"name"`
	MemberUserIDs pq.StringArray `db:"member_user_ids" json:"member_user_ids"`
}
