package models

import "time"

// AvailabilityWindow holds the open hours of a court (or the event default when CourtID is nil) for one day.
type AvailabilityWindow struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	CourtID   *string   `db:"court_id" json:"court_id,omitempty"`
	DayNumber int       `db:"day_number" json:"day_number"`
	OpenFrom  TimeOfDay `db:"open_from" json:"open_from"`
	OpenTo    TimeOfDay `db:"open_to" json:"open_to"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Window converts the record into a TimeWindow.
func (w AvailabilityWindow) Window() TimeWindow {
	if w.OpenFrom >= w.OpenTo {
		return ClosedWindow()
	}
	return TimeWindow{Open: true, From: w.OpenFrom, To: w.OpenTo}
}
