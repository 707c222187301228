package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds a TimeOfDay; 24:00 is accepted as the end of a day.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes after midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	value := TimeOfDay(hour*60 + minute)
	if hour < 0 || value > MinutesPerDay {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return value, nil
}

// Valid reports whether the value is inside [00:00, 24:00].
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

// Duration converts the value into an offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM" strings.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan reads Postgres TIME columns.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute())
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case int64:
		*t = TimeOfDay(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) scanString(raw string) error {
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value writes the value as a Postgres TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	if t == MinutesPerDay {
		return "24:00:00", nil
	}
	return t.String() + ":00", nil
}

// TimeWindow is an open interval of a day, [From, To). A closed window has Open=false.
type TimeWindow struct {
	Open bool      `json:"open"`
	From TimeOfDay `json:"from"`
	To   TimeOfDay `json:"to"`
}

// ClosedWindow is the window of a court with no availability that day.
func ClosedWindow() TimeWindow {
	return TimeWindow{}
}

// Covers reports whether [from, to) lies inside the window.
func (w TimeWindow) Covers(from, to TimeOfDay) bool {
	if !w.Open {
		return false
	}
	return from >= w.From && to <= w.To && from < to
}

// Intersect narrows the window to the overlap with other.
func (w TimeWindow) Intersect(other TimeWindow) TimeWindow {
	if !w.Open || !other.Open {
		return ClosedWindow()
	}
	from := w.From
	if other.From > from {
		from = other.From
	}
	to := w.To
	if other.To < to {
		to = other.To
	}
	if from >= to {
		return ClosedWindow()
	}
	return TimeWindow{Open: true, From: from, To: to}
}
