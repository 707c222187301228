package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

// BlockAllocator keeps block assignments consistent and can carve unassigned courts into groups.
type BlockAllocator struct {
	stores    ScheduleStores
	blocks    blockStore
	groups    courtGroupStore
	tx        txProvider
	locker    EventLocker
	grid      gridInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlockAllocator wires the allocator.
func NewBlockAllocator(stores ScheduleStores, tx txProvider, locker EventLocker, grid gridInvalidator, validate *validator.Validate, logger *zap.Logger) *BlockAllocator {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalEventLocker(nil)
	}
	return &BlockAllocator{
		stores:    stores,
		blocks:    stores.Blocks,
		groups:    stores.Groups,
		tx:        tx,
		locker:    locker,
		grid:      grid,
		validator: validate,
		logger:    logger,
	}
}

// ListBlocks returns the event's blocks in resolution order.
func (a *BlockAllocator) ListBlocks(ctx context.Context, eventID string) ([]models.BlockAssignment, error) {
	if _, err := loadEvent(ctx, a.stores.Events, eventID); err != nil {
		return nil, err
	}
	blocks, err := a.blocks.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list block assignments")
	}
	return sortBlocks(blocks), nil
}

// ReplaceBlocks validates and swaps the full block set of an event in one transaction.
func (a *BlockAllocator) ReplaceBlocks(ctx context.Context, eventID string, req dto.ReplaceBlocksRequest) ([]models.BlockAssignment, error) {
	if err := a.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid block assignment payload")
	}
	release, err := a.locker.Lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer release()

	refs, err := a.loadReferences(ctx, eventID)
	if err != nil {
		return nil, err
	}

	blocks := make([]models.BlockAssignment, len(req.Blocks))
	byKey := make(map[string]string, len(req.Blocks))
	byID := make(map[string]bool, len(req.Blocks))
	for idx, input := range req.Blocks {
		id := uuid.NewString()
		if input.ID != nil && *input.ID != "" {
			id = *input.ID
		}
		if byID[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: duplicate id %s", idx, id))
		}
		byID[id] = true
		if input.Key != "" {
			if _, dup := byKey[input.Key]; dup {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: duplicate key %s", idx, input.Key))
			}
			byKey[input.Key] = id
		}
		blocks[idx] = models.BlockAssignment{
			ID:           id,
			EventID:      eventID,
			DivisionID:   input.DivisionID,
			PhaseID:      input.PhaseID,
			CourtGroupID: input.CourtGroupID,
			DayNumber:    input.DayNumber,
			ValidFrom:    input.ValidFrom,
			ValidTo:      input.ValidTo,
			Priority:     input.Priority,
		}
	}

	for idx, input := range req.Blocks {
		block := &blocks[idx]
		if err := refs.checkBlock(*block); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: %s", idx, err.Error()))
		}
		switch {
		case input.DependsOnKey != nil && *input.DependsOnKey != "":
			target, ok := byKey[*input.DependsOnKey]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: unknown dependsOnKey %s", idx, *input.DependsOnKey))
			}
			block.DependsOnBlockID = &target
		case input.DependsOnBlockID != nil && *input.DependsOnBlockID != "":
			if !byID[*input.DependsOnBlockID] {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: dependsOnBlockId %s is not part of the payload", idx, *input.DependsOnBlockID))
			}
			target := *input.DependsOnBlockID
			block.DependsOnBlockID = &target
		}
		if block.DependsOnBlockID != nil && *block.DependsOnBlockID == block.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: a block cannot depend on itself", idx))
		}
	}

	ordered, err := orderBlocks(blocks)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if err := withTx(ctx, a.tx, func(exec sqlx.ExtContext) error {
		if err := a.blocks.DeleteByEvent(ctx, exec, eventID); err != nil {
			return err
		}
		return a.blocks.CreateBatch(ctx, exec, ordered)
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace block assignments")
	}
	if a.grid != nil {
		a.grid.Invalidate(ctx, eventID)
	}
	a.logger.Info("block assignments replaced", zap.String("event_id", eventID), zap.Int("blocks", len(ordered)))
	return sortBlocks(ordered), nil
}

// AutoAllocate splits the event's unassigned active courts into one group per requested block.
func (a *BlockAllocator) AutoAllocate(ctx context.Context, req dto.AutoAllocateRequest) (*dto.AutoAllocateResult, error) {
	if err := a.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid auto-allocate payload")
	}
	release, err := a.locker.Lock(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	refs, err := a.loadReferences(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	unassigned := refs.unassignedCourts()
	if len(unassigned) < len(req.Blocks) {
		return &dto.AutoAllocateResult{
			Success: false,
			Message: fmt.Sprintf("%d blocks requested but only %d unassigned active courts are available", len(req.Blocks), len(unassigned)),
			Groups:  []models.CourtGroup{},
			Blocks:  []models.BlockAssignment{},
		}, nil
	}

	partitions := partitionCourts(unassigned, len(req.Blocks))
	nextSort := refs.nextGroupSortOrder()
	groups := make([]models.CourtGroup, len(partitions))
	blocks := make([]models.BlockAssignment, len(req.Blocks))
	assigned := 0
	for idx, courts := range partitions {
		ids := make([]string, len(courts))
		for i, court := range courts {
			ids[i] = court.ID
		}
		assigned += len(ids)
		groups[idx] = models.CourtGroup{
			ID:        uuid.NewString(),
			EventID:   req.EventID,
			Name:      courtGroupName(courts),
			Priority:  req.Blocks[idx].Priority,
			SortOrder: nextSort + idx,
			CourtIDs:  ids,
		}
		blocks[idx] = models.BlockAssignment{
			ID:           uuid.NewString(),
			EventID:      req.EventID,
			DivisionID:   req.Blocks[idx].DivisionID,
			PhaseID:      req.Blocks[idx].PhaseID,
			CourtGroupID: groups[idx].ID,
			DayNumber:    req.Blocks[idx].DayNumber,
			ValidFrom:    req.Blocks[idx].ValidFrom,
			ValidTo:      req.Blocks[idx].ValidTo,
			Priority:     req.Blocks[idx].Priority,
		}
	}
	refs.addGroups(groups)

	for idx, input := range req.Blocks {
		if input.DependsOnIdx != nil {
			dep := *input.DependsOnIdx
			if dep < 0 || dep >= len(blocks) || dep == idx {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: dependsOnIndex %d is invalid", idx, dep))
			}
			target := blocks[dep].ID
			blocks[idx].DependsOnBlockID = &target
		}
		if err := refs.checkBlock(blocks[idx]); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocks[%d]: %s", idx, err.Error()))
		}
	}
	ordered, err := orderBlocks(blocks)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if err := withTx(ctx, a.tx, func(exec sqlx.ExtContext) error {
		for i := range groups {
			if err := a.groups.CreateWithMembers(ctx, exec, &groups[i]); err != nil {
				return err
			}
		}
		return a.blocks.CreateBatch(ctx, exec, ordered)
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist auto-allocated blocks")
	}
	if a.grid != nil {
		a.grid.Invalidate(ctx, req.EventID)
	}

	a.logger.Info("courts auto-allocated",
		zap.String("event_id", req.EventID),
		zap.Int("groups", len(groups)),
		zap.Int("courts", assigned),
	)
	return &dto.AutoAllocateResult{
		Success:       true,
		Message:       fmt.Sprintf("assigned %d courts to %d groups", assigned, len(groups)),
		AssignedCount: assigned,
		Groups:        groups,
		Blocks:        sortBlocks(blocks),
	}, nil
}

type blockReferences struct {
	event     *models.Event
	courts    []models.Court
	groups    []models.CourtGroup
	divisions map[string]models.Division
	phases    map[string]models.Phase
}

func (a *BlockAllocator) loadReferences(ctx context.Context, eventID string) (*blockReferences, error) {
	event, err := loadEvent(ctx, a.stores.Events, eventID)
	if err != nil {
		return nil, err
	}
	refs := &blockReferences{event: event, divisions: make(map[string]models.Division), phases: make(map[string]models.Phase)}
	if refs.courts, err = a.stores.Courts.ListByEvent(ctx, eventID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courts")
	}
	if refs.groups, err = a.groups.ListByEvent(ctx, eventID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load court groups")
	}
	divisions, err := a.stores.Divisions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load divisions")
	}
	for _, division := range divisions {
		refs.divisions[division.ID] = division
	}
	phases, err := a.stores.Divisions.ListPhasesByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load phases")
	}
	for _, phase := range phases {
		refs.phases[phase.ID] = phase
	}
	return refs, nil
}

func (r *blockReferences) checkBlock(block models.BlockAssignment) error {
	if _, ok := r.divisions[block.DivisionID]; !ok {
		return fmt.Errorf("division %s does not belong to the event", block.DivisionID)
	}
	if block.PhaseID != nil {
		phase, ok := r.phases[*block.PhaseID]
		if !ok || phase.DivisionID != block.DivisionID {
			return fmt.Errorf("phase %s does not belong to division %s", *block.PhaseID, block.DivisionID)
		}
	}
	groupFound := false
	for _, group := range r.groups {
		if group.ID == block.CourtGroupID {
			groupFound = true
			break
		}
	}
	if !groupFound {
		return fmt.Errorf("court group %s does not belong to the event", block.CourtGroupID)
	}
	if block.DayNumber != nil && !r.event.HasDay(*block.DayNumber) {
		return fmt.Errorf("day %d is outside the event", *block.DayNumber)
	}
	if (block.ValidFrom != nil && !block.ValidFrom.Valid()) || (block.ValidTo != nil && !block.ValidTo.Valid()) {
		return fmt.Errorf("validFrom/validTo must be between 00:00 and 24:00")
	}
	if block.ValidFrom != nil && block.ValidTo != nil && *block.ValidFrom >= *block.ValidTo {
		return fmt.Errorf("validFrom must be before validTo")
	}
	return nil
}

func (r *blockReferences) unassignedCourts() []models.Court {
	grouped := make(map[string]bool)
	for _, group := range r.groups {
		for _, id := range group.CourtIDs {
			grouped[id] = true
		}
	}
	courts := make([]models.Court, 0, len(r.courts))
	for _, court := range r.courts {
		if court.IsActive && !grouped[court.ID] {
			courts = append(courts, court)
		}
	}
	sort.SliceStable(courts, func(i, j int) bool {
		return naturalLess(courts[i].Label, courts[j].Label)
	})
	return courts
}

func (r *blockReferences) nextGroupSortOrder() int {
	next := 0
	for _, group := range r.groups {
		if group.SortOrder >= next {
			next = group.SortOrder + 1
		}
	}
	return next
}

func (r *blockReferences) addGroups(groups []models.CourtGroup) {
	r.groups = append(r.groups, groups...)
}

// partitionCourts splits courts, in order, into n groups whose sizes differ by at most one; larger groups come first.
func partitionCourts(courts []models.Court, n int) [][]models.Court {
	if n <= 0 {
		return nil
	}
	base, extra := len(courts)/n, len(courts)%n
	out := make([][]models.Court, 0, n)
	offset := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, courts[offset:offset+size])
		offset += size
	}
	return out
}

func courtGroupName(courts []models.Court) string {
	switch len(courts) {
	case 0:
		return ""
	case 1:
		return courts[0].Label
	default:
		return courts[0].Label + " - " + courts[len(courts)-1].Label
	}
}

// sortBlocks orders blocks for first-match resolution: priority, then phase-specific before division-wide.
func sortBlocks(blocks []models.BlockAssignment) []models.BlockAssignment {
	sorted := make([]models.BlockAssignment, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if (a.PhaseID != nil) != (b.PhaseID != nil) {
			return a.PhaseID != nil
		}
		if (a.DayNumber != nil) != (b.DayNumber != nil) {
			return a.DayNumber != nil
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return sorted
}

// ResolveBlock returns the first block of a priority-sorted list covering the division/phase at day and tod.
func ResolveBlock(sorted []models.BlockAssignment, divisionID string, phaseID *string, day int, tod models.TimeOfDay) (models.BlockAssignment, bool) {
	for _, block := range sorted {
		if !block.AppliesTo(divisionID, phaseID, day) {
			continue
		}
		window := block.Window()
		if window.Open && tod >= window.From && tod < window.To {
			return block, true
		}
	}
	return models.BlockAssignment{}, false
}

// nextBlockChange returns the earliest time of day strictly inside (from, to) at which a block ranked
// ahead of current starts to apply, taking over the division/phase from current.
func nextBlockChange(sorted []models.BlockAssignment, current models.BlockAssignment, divisionID string, phaseID *string, day int, from, to models.TimeOfDay) (models.TimeOfDay, bool) {
	var (
		change models.TimeOfDay
		found  bool
	)
	for _, block := range sorted {
		if block.ID == current.ID {
			break
		}
		if !block.AppliesTo(divisionID, phaseID, day) {
			continue
		}
		window := block.Window()
		if !window.Open || window.From <= from || window.From >= to {
			continue
		}
		if !found || window.From < change {
			change, found = window.From, true
		}
	}
	return change, found
}

// blocksFor lists every block that may ever apply to the division/phase, in resolution order.
func blocksFor(sorted []models.BlockAssignment, divisionID string, phaseID *string) []models.BlockAssignment {
	var matches []models.BlockAssignment
	for _, block := range sorted {
		if block.DivisionID != divisionID {
			continue
		}
		if block.PhaseID != nil && (phaseID == nil || *block.PhaseID != *phaseID) {
			continue
		}
		matches = append(matches, block)
	}
	return matches
}

// orderBlocks sorts blocks so every dependency precedes its dependents. Dependencies outside the
// set are treated as satisfied. A cycle is an error.
func orderBlocks(blocks []models.BlockAssignment) ([]models.BlockAssignment, error) {
	sorted := sortBlocks(blocks)
	index := make(map[string]int, len(sorted))
	for i, block := range sorted {
		index[block.ID] = i
	}
	pending := make([]int, len(sorted))
	dependents := make(map[int][]int)
	for i, block := range sorted {
		if block.DependsOnBlockID == nil {
			continue
		}
		if dep, ok := index[*block.DependsOnBlockID]; ok {
			pending[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	ordered := make([]models.BlockAssignment, 0, len(sorted))
	done := make([]bool, len(sorted))
	for len(ordered) < len(sorted) {
		progressed := false
		for i := range sorted {
			if done[i] || pending[i] > 0 {
				continue
			}
			done[i] = true
			progressed = true
			ordered = append(ordered, sorted[i])
			for _, next := range dependents[i] {
				pending[next]--
			}
			break
		}
		if !progressed {
			var cyclic []string
			for i, block := range sorted {
				if !done[i] {
					cyclic = append(cyclic, block.ID)
				}
			}
			return nil, fmt.Errorf("block dependencies form a cycle: %s", strings.Join(cyclic, ", "))
		}
	}
	return ordered, nil
}

// naturalLess compares labels so that "Court 2" sorts before "Court 10".
func naturalLess(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if unicode.IsDigit(ra[i]) && unicode.IsDigit(rb[j]) {
			si := i
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			na := strings.TrimLeft(string(ra[si:i]), "0")
			nb := strings.TrimLeft(string(rb[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		ca, cb := unicode.ToLower(ra[i]), unicode.ToLower(rb[j])
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	if len(ra)-i != len(rb)-j {
		return len(ra)-i < len(rb)-j
	}
	return a < b
}
