package dto

import (
	"time"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// GridCourt is a column of the schedule grid.
type GridCourt struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	SortOrder int      `json:"sortOrder"`
	IsActive  bool     `json:"isActive"`
	GroupIDs  []string `json:"groupIds"`
}

// GridDivision carries division display data.
type GridDivision struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Phases []GridPhase `json:"phases"`
}

// GridPhase carries phase display data.
type GridPhase struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// GridCell is one scheduled encounter placed on the grid.
type GridCell struct {
	EncounterID   string                 `json:"encounterId"`
	CourtID       string                 `json:"courtId"`
	Day           int                    `json:"day"`
	StartTime     time.Time              `json:"startTime"`
	EndTime       time.Time              `json:"endTime"`
	DivisionID    string                 `json:"divisionId"`
	DivisionName  string                 `json:"divisionName"`
	PhaseID       *string                `json:"phaseId,omitempty"`
	PhaseName     string                 `json:"phaseName,omitempty"`
	RoundNumber   int                    `json:"roundNumber"`
	RoundName     string                 `json:"roundName"`
	Unit1Name     string                 `json:"unit1Name"`
	Unit2Name     string                 `json:"unit2Name"`
	Status        models.EncounterStatus `json:"status"`
	ConflictKinds []models.ConflictKind  `json:"conflictKinds,omitempty"`
}

// ScheduleGrid is the read-only projection consumed by the schedule UI.
type ScheduleGrid struct {
	EventID          string                   `json:"eventId"`
	EventName        string                   `json:"eventName"`
	Timezone         string                   `json:"timezone"`
	Day              *int                     `json:"day,omitempty"`
	Days             []int                    `json:"days"`
	Courts           []GridCourt              `json:"courts"`
	Groups           []models.CourtGroup      `json:"groups"`
	Divisions        []GridDivision           `json:"divisions"`
	Blocks           []models.BlockAssignment `json:"blocks"`
	Cells            []GridCell               `json:"cells"`
	UnscheduledCount int                      `json:"unscheduledCount"`
	ConflictCount    int                      `json:"conflictCount"`
	GeneratedAt      time.Time                `json:"generatedAt"`
}

// GridExportFormat selects the export renderer.
type GridExportFormat string

const (
	GridExportCSV  GridExportFormat = "csv"
	GridExportPDF  GridExportFormat = "pdf"
	GridExportXLSX GridExportFormat = "xlsx"
)

// GridExport is a rendered grid file.
type GridExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
