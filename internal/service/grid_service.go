package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
	"github.com/noah-isme/courtside-scheduler/pkg/export"
	"github.com/noah-isme/courtside-scheduler/pkg/jobs"
)

const gridWarmJobType = "grid.warm"

type gridCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type warmQueue interface {
	EnqueueUnique(job jobs.Job) (bool, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// GridConfig tunes caching and exports of the schedule grid.
type GridConfig struct {
	CacheTTL       time.Duration
	ExportsEnabled bool
	ExportTitle    string
}

// GridService assembles the read-only schedule grid and its file exports.
type GridService struct {
	stores ScheduleStores
	rules  SchedulingRules
	cache  gridCache
	warm   warmQueue
	csv    tableRenderer
	pdf    tableRenderer
	xlsx   tableRenderer
	cfg    GridConfig
	logger *zap.Logger
}

// NewGridService constructs the grid assembler. cache may be nil.
func NewGridService(stores ScheduleStores, rules SchedulingRules, cache gridCache, cfg GridConfig, logger *zap.Logger) *GridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportTitle == "" {
		cfg.ExportTitle = "Court schedule"
	}
	return &GridService{
		stores: stores,
		rules:  rules.normalize(),
		cache:  cache,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		xlsx:   export.NewXLSXExporter(),
		cfg:    cfg,
		logger: logger,
	}
}

// AttachWarmQueue enables asynchronous rebuilds after invalidation.
func (s *GridService) AttachWarmQueue(queue warmQueue) {
	s.warm = queue
}

// BuildGrid returns the grid for the whole event or one day, served from cache when possible.
func (s *GridService) BuildGrid(ctx context.Context, eventID string, day *int) (*dto.ScheduleGrid, error) {
	key := GridCacheKey(eventID, day)
	if s.cache != nil {
		var cached dto.ScheduleGrid
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	grid, err := s.assemble(ctx, eventID, day)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, grid, s.cfg.CacheTTL)
	}
	return grid, nil
}

// Invalidate drops every cached grid of the event and schedules a rebuild.
func (s *GridService) Invalidate(ctx context.Context, eventID string) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, GridCachePattern(eventID))
	}
	if s.warm == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Key: GridCachePattern(eventID), Type: gridWarmJobType, Payload: eventID}
	if _, err := s.warm.EnqueueUnique(job); err != nil {
		s.logger.Warn("grid warm enqueue failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

// WarmJob rebuilds and caches the whole-event grid and every day grid.
func (s *GridService) WarmJob(ctx context.Context, job jobs.Job) error {
	eventID, ok := job.Payload.(string)
	if !ok || eventID == "" {
		return fmt.Errorf("grid warm job %s: missing event id", job.ID)
	}
	grid, err := s.assemble(ctx, eventID, nil)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Set(ctx, GridCacheKey(eventID, nil), grid, s.cfg.CacheTTL); err != nil {
		return err
	}
	for _, d := range grid.Days {
		day := d
		dayGrid := filterGridDay(grid, day)
		if err := s.cache.Set(ctx, GridCacheKey(eventID, &day), dayGrid, s.cfg.CacheTTL); err != nil {
			return err
		}
	}
	s.logger.Debug("grid cache warmed", zap.String("event_id", eventID), zap.Int("days", len(grid.Days)))
	return nil
}

func (s *GridService) assemble(ctx context.Context, eventID string, day *int) (*dto.ScheduleGrid, error) {
	snap, err := loadSnapshot(ctx, s.stores, s.rules, eventID)
	if err != nil {
		return nil, err
	}
	if day != nil && !snap.event.HasDay(*day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d is outside the event", *day))
	}

	conflicts := detectConflicts(snap, nil)
	kindsByEncounter := make(map[string]map[models.ConflictKind]bool)
	flag := func(id string, kind models.ConflictKind) {
		if kindsByEncounter[id] == nil {
			kindsByEncounter[id] = make(map[models.ConflictKind]bool)
		}
		kindsByEncounter[id][kind] = true
	}
	for _, conflict := range conflicts {
		flag(conflict.EncounterID1, conflict.Kind)
		if conflict.EncounterID2 != nil {
			flag(*conflict.EncounterID2, conflict.Kind)
		}
	}

	grid := &dto.ScheduleGrid{
		EventID:     snap.event.ID,
		EventName:   snap.event.Name,
		Timezone:    snap.event.Location().String(),
		Days:        make([]int, 0, snap.event.DayCount()),
		Courts:      gridCourts(snap),
		Groups:      snap.groups,
		Divisions:   gridDivisions(snap),
		Blocks:      snap.blocks,
		Cells:       []dto.GridCell{},
		GeneratedAt: time.Now().UTC(),
	}
	if grid.Groups == nil {
		grid.Groups = []models.CourtGroup{}
	}
	if grid.Blocks == nil {
		grid.Blocks = []models.BlockAssignment{}
	}
	for d := 1; d <= snap.event.DayCount(); d++ {
		grid.Days = append(grid.Days, d)
	}

	for _, enc := range snap.encounters {
		if enc.Status == models.EncounterStatusCancelled {
			continue
		}
		if !enc.IsScheduled() {
			grid.UnscheduledCount++
			continue
		}
		cellDay, _ := snap.event.DayOf(*enc.EstimatedStart)
		cell := dto.GridCell{
			EncounterID:  enc.ID,
			CourtID:      *enc.CourtID,
			Day:          cellDay,
			StartTime:    *enc.EstimatedStart,
			EndTime:      *enc.EstimatedEnd,
			DivisionID:   enc.DivisionID,
			DivisionName: snap.divisions[enc.DivisionID].Name,
			PhaseID:      enc.PhaseID,
			RoundNumber:  enc.RoundNumber,
			RoundName:    enc.RoundName,
			Unit1Name:    unitName(snap, enc.Unit1ID),
			Unit2Name:    unitName(snap, enc.Unit2ID),
			Status:       enc.Status,
		}
		if enc.PhaseID != nil {
			cell.PhaseName = snap.phases[*enc.PhaseID].Name
		}
		for kind := range kindsByEncounter[enc.ID] {
			cell.ConflictKinds = append(cell.ConflictKinds, kind)
		}
		sort.Slice(cell.ConflictKinds, func(i, j int) bool { return cell.ConflictKinds[i] < cell.ConflictKinds[j] })
		grid.Cells = append(grid.Cells, cell)
	}

	courtOrder := make(map[string]int, len(grid.Courts))
	for i, court := range grid.Courts {
		courtOrder[court.ID] = i
	}
	sort.SliceStable(grid.Cells, func(i, j int) bool {
		a, b := grid.Cells[i], grid.Cells[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return courtOrder[a.CourtID] < courtOrder[b.CourtID]
	})
	grid.ConflictCount = len(conflicts)

	if day != nil {
		return filterGridDay(grid, *day), nil
	}
	return grid, nil
}

// filterGridDay narrows a whole-event grid to one day without reloading state.
func filterGridDay(grid *dto.ScheduleGrid, day int) *dto.ScheduleGrid {
	out := *grid
	out.Day = &day
	out.Cells = make([]dto.GridCell, 0)
	conflicted := 0
	for _, cell := range grid.Cells {
		if cell.Day == day {
			out.Cells = append(out.Cells, cell)
			if len(cell.ConflictKinds) > 0 {
				conflicted++
			}
		}
	}
	out.Blocks = make([]models.BlockAssignment, 0)
	for _, block := range grid.Blocks {
		if block.DayNumber == nil || *block.DayNumber == day {
			out.Blocks = append(out.Blocks, block)
		}
	}
	out.ConflictCount = conflicted
	return &out
}

func gridCourts(snap *eventSnapshot) []dto.GridCourt {
	courts := make([]models.Court, len(snap.courts))
	copy(courts, snap.courts)
	sort.SliceStable(courts, func(i, j int) bool {
		if courts[i].SortOrder != courts[j].SortOrder {
			return courts[i].SortOrder < courts[j].SortOrder
		}
		return naturalLess(courts[i].Label, courts[j].Label)
	})
	out := make([]dto.GridCourt, 0, len(courts))
	for _, court := range courts {
		groupIDs := []string{}
		for _, group := range snap.groups {
			if group.HasCourt(court.ID) {
				groupIDs = append(groupIDs, group.ID)
			}
		}
		out = append(out, dto.GridCourt{ID: court.ID, Label: court.Label, SortOrder: court.SortOrder, IsActive: court.IsActive, GroupIDs: groupIDs})
	}
	return out
}

func gridDivisions(snap *eventSnapshot) []dto.GridDivision {
	out := make([]dto.GridDivision, 0, len(snap.divisions))
	for _, division := range snap.divisions {
		entry := dto.GridDivision{ID: division.ID, Name: division.Name, Phases: []dto.GridPhase{}}
		for _, phase := range snap.phases {
			if phase.DivisionID == division.ID {
				entry.Phases = append(entry.Phases, dto.GridPhase{ID: phase.ID, Name: phase.Name, Order: phase.PhaseOrder})
			}
		}
		sort.Slice(entry.Phases, func(i, j int) bool { return entry.Phases[i].Order < entry.Phases[j].Order })
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func unitName(snap *eventSnapshot, unitID *string) string {
	if unitID == nil || *unitID == "" {
		return "TBD"
	}
	if unit, ok := snap.units[*unitID]; ok && unit.Name != "" {
		return unit.Name
	}
	return *unitID
}

var gridExportHeaders = []string{"Day", "Start", "End", "Court", "Division", "Phase", "Round", "Unit 1", "Unit 2", "Status", "Conflicts"}

// Export renders the grid as csv, pdf or xlsx.
func (s *GridService) Export(ctx context.Context, eventID string, day *int, format dto.GridExportFormat) (*dto.GridExport, error) {
	if !s.cfg.ExportsEnabled {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "grid exports are disabled")
	}
	var renderer tableRenderer
	var contentType string
	switch format {
	case dto.GridExportCSV, "":
		format, renderer, contentType = dto.GridExportCSV, s.csv, "text/csv"
	case dto.GridExportPDF:
		renderer, contentType = s.pdf, "application/pdf"
	case dto.GridExportXLSX:
		renderer, contentType = s.xlsx, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	grid, err := s.BuildGrid(ctx, eventID, day)
	if err != nil {
		return nil, err
	}
	table := gridTable(grid, s.cfg.ExportTitle)
	body, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grid export")
	}

	name := "schedule-" + eventID
	if day != nil {
		name += "-day-" + strconv.Itoa(*day)
	}
	return &dto.GridExport{Filename: name + "." + string(format), ContentType: contentType, Body: body}, nil
}

func gridTable(grid *dto.ScheduleGrid, title string) export.Table {
	loc, err := time.LoadLocation(grid.Timezone)
	if err != nil {
		loc = time.UTC
	}
	labels := make(map[string]string, len(grid.Courts))
	for _, court := range grid.Courts {
		labels[court.ID] = court.Label
	}
	rows := make([][]string, 0, len(grid.Cells))
	for _, cell := range grid.Cells {
		kinds := make([]string, len(cell.ConflictKinds))
		for i, kind := range cell.ConflictKinds {
			kinds[i] = string(kind)
		}
		round := cell.RoundName
		if round == "" {
			round = "Round " + strconv.Itoa(cell.RoundNumber)
		}
		rows = append(rows, []string{
			strconv.Itoa(cell.Day),
			cell.StartTime.In(loc).Format("15:04"),
			cell.EndTime.In(loc).Format("15:04"),
			labels[cell.CourtID],
			cell.DivisionName,
			cell.PhaseName,
			round,
			cell.Unit1Name,
			cell.Unit2Name,
			string(cell.Status),
			strings.Join(kinds, " "),
		})
	}
	if grid.EventName != "" {
		title = title + " - " + grid.EventName
	}
	return export.Table{Title: title, Headers: gridExportHeaders, Rows: rows}
}
