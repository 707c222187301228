package models

import "time"

// BlockAssignment binds a division (optionally one phase) to a court group for a time window.
type BlockAssignment struct {
	ID               string     `db:"id" json:"id"`
	EventID          string     `db:"event_id" json:"event_id"`
	DivisionID       string     `db:"division_id" json:"division_id"`
	PhaseID          *string    `db:"phase_id" json:"phase_id,omitempty"`
	CourtGroupID     string     `db:"court_group_id" json:"court_group_id"`
	DayNumber        *int       `db:"day_number" json:"day_number,omitempty"`
	ValidFrom        *TimeOfDay `db:"valid_from" json:"valid_from,omitempty"`
	ValidTo          *TimeOfDay `db:"valid_to" json:"valid_to,omitempty"`
	Priority         int        `db:"priority" json:"priority"`
	DependsOnBlockID *string    `db:"depends_on_block_id" json:"depends_on_block_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Window returns the time-of-day validity of the block; unbounded sides cover the whole day.
func (b BlockAssignment) Window() TimeWindow {
	window := TimeWindow{Open: true, From: 0, To: MinutesPerDay}
	if b.ValidFrom != nil {
		window.From = *b.ValidFrom
	}
	if b.ValidTo != nil {
		window.To = *b.ValidTo
	}
	if window.From >= window.To {
		return ClosedWindow()
	}
	return window
}

// AppliesTo reports whether the block covers the division/phase pair on the given day.
func (b BlockAssignment) AppliesTo(divisionID string, phaseID *string, day int) bool {
	if b.DivisionID != divisionID {
		return false
	}
	if b.PhaseID != nil && (phaseID == nil || *b.PhaseID != *phaseID) {
		return false
	}
	if b.DayNumber != nil && *b.DayNumber != day {
		return false
	}
	return true
}
