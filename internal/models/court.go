package models

import "time"

// Court is a physical playing surface of an event.
type Court struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Label     string    `db:"label" json:"label"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourtGroup is a named, ordered pool of courts.
type CourtGroup struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Name      string    `db:"name" json:"name"`
	Priority  int       `db:"priority" json:"priority"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CourtIDs  []string  `db:"-" json:"court_ids"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasCourt reports group membership.
func (g CourtGroup) HasCourt(courtID string) bool {
	for _, id := range g.CourtIDs {
		if id == courtID {
			return true
		}
	}
	return false
}

// CourtGroupMember is a row of the court_group_courts join table.
type CourtGroupMember struct {
	CourtGroupID string `db:"court_group_id" json:"court_group_id"`
	CourtID      string `db:"court_id" json:"court_id"`
	SortOrder    int    `db:"sort_order" json:"sort_order"`
}
