package service

import (
	"time"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

type occupiedSpan struct {
	encounterID string
	start       time.Time
	end         time.Time
	rest        time.Duration
}

// occupancy is the in-memory index of committed court and participant time used for incremental
// feasibility checks during one scheduling run.
type occupancy struct {
	snap      *eventSnapshot
	courts    map[string][]occupiedSpan
	people    map[string][]occupiedSpan
	ends      map[string]time.Time
	blockEnds map[string]time.Time
}

type slotChoice struct {
	court   models.Court
	start   time.Time
	end     time.Time
	blockID string
}

func newOccupancy(snap *eventSnapshot, exclude string) *occupancy {
	occ := &occupancy{
		snap:      snap,
		courts:    make(map[string][]occupiedSpan),
		people:    make(map[string][]occupiedSpan),
		ends:      make(map[string]time.Time),
		blockEnds: make(map[string]time.Time),
	}
	for _, enc := range snap.encounters {
		if enc.ID == exclude || enc.Status == models.EncounterStatusCancelled || !enc.IsScheduled() {
			continue
		}
		blockID := ""
		if block, ok := occ.blockAt(enc, *enc.CourtID, *enc.EstimatedStart); ok {
			blockID = block.ID
		}
		occ.commit(enc, slotChoice{
			court:   snap.courtByID[*enc.CourtID],
			start:   *enc.EstimatedStart,
			end:     *enc.EstimatedEnd,
			blockID: blockID,
		})
	}
	return occ
}

func (o *occupancy) commit(enc models.Encounter, slot slotChoice) {
	span := occupiedSpan{
		encounterID: enc.ID,
		start:       slot.start,
		end:         slot.end,
		rest:        time.Duration(o.snap.restMinutes(enc.DivisionID)) * time.Minute,
	}
	courtID := slot.court.ID
	if courtID == "" && enc.CourtID != nil {
		courtID = *enc.CourtID
	}
	o.courts[courtID] = append(o.courts[courtID], span)
	for _, key := range o.snap.participants(enc) {
		o.people[key] = append(o.people[key], span)
	}
	o.ends[enc.ID] = slot.end
	if slot.blockID != "" && slot.end.After(o.blockEnds[slot.blockID]) {
		o.blockEnds[slot.blockID] = slot.end
	}
}

// blockAt returns the block an encounter placed at start on courtID falls under.
func (o *occupancy) blockAt(enc models.Encounter, courtID string, start time.Time) (models.BlockAssignment, bool) {
	if len(o.snap.blocks) == 0 {
		return models.BlockAssignment{}, false
	}
	day, tod := o.snap.event.DayOf(start)
	block, ok := ResolveBlock(o.snap.blocks, enc.DivisionID, enc.PhaseID, day, tod)
	if !ok || !o.snap.groupByID[block.CourtGroupID].HasCourt(courtID) {
		return models.BlockAssignment{}, false
	}
	return block, true
}

// predecessorGate returns the earliest start allowed by predecessor edges. waiting is true when a
// predecessor is still queued in this run; blocker names a predecessor that will never get an end.
func (o *occupancy) predecessorGate(enc models.Encounter, queued map[string]bool) (gate time.Time, waiting bool, blocker string) {
	for _, id := range enc.PredecessorIDs {
		predecessor, ok := o.snap.byID[id]
		if !ok || predecessor.Status == models.EncounterStatusCancelled {
			continue
		}
		if end, ok := o.ends[id]; ok {
			if end.After(gate) {
				gate = end
			}
			continue
		}
		if queued[id] {
			waiting = true
			continue
		}
		if blocker == "" {
			blocker = id
		}
	}
	return gate, waiting, blocker
}

// eligibleCourts returns active courts in sort order, limited to the groups of the blocks that may apply.
func (o *occupancy) eligibleCourts(blocks []models.BlockAssignment) []models.Court {
	active := o.snap.activeCourts()
	if len(blocks) == 0 {
		return active
	}
	allowed := make(map[string]bool)
	for _, block := range blocks {
		for _, id := range o.snap.groupByID[block.CourtGroupID].CourtIDs {
			allowed[id] = true
		}
	}
	courts := active[:0]
	for _, court := range active {
		if allowed[court.ID] {
			courts = append(courts, court)
		}
	}
	return courts
}

// findSlot picks the earliest feasible start over all eligible courts, scanning day by day.
// Ties go to the court that sorts first.
func (o *occupancy) findSlot(enc models.Encounter, notBefore time.Time) (slotChoice, bool) {
	duration := o.snap.matchDuration(enc)
	blocks := blocksFor(o.snap.blocks, enc.DivisionID, enc.PhaseID)
	courts := o.eligibleCourts(blocks)
	for day := 1; day <= o.snap.event.DayCount(); day++ {
		var best *slotChoice
		for _, court := range courts {
			choice, ok := o.earliestOnCourt(enc, court, day, duration, blocks, notBefore)
			if ok && (best == nil || choice.start.Before(best.start)) {
				c := choice
				best = &c
			}
		}
		if best != nil {
			return *best, true
		}
	}
	return slotChoice{}, false
}

func (o *occupancy) earliestOnCourt(enc models.Encounter, court models.Court, day int, duration time.Duration, blocks []models.BlockAssignment, notBefore time.Time) (slotChoice, bool) {
	opensAt, closesAt, ok := o.snap.calendar.Bounds(court.ID, day)
	if !ok {
		return slotChoice{}, false
	}
	step := o.snap.rules.SlotGranularity
	dayStart := o.snap.event.DayStart(day)
	t := opensAt
	if notBefore.After(t) {
		t = notBefore
	}
	t = alignUp(t, dayStart, step)

	rest := time.Duration(o.snap.restMinutes(enc.DivisionID)) * time.Minute
	keys := o.snap.participants(enc)
	for !t.Add(duration).After(closesAt) {
		end := t.Add(duration)
		blockID, next, ok := o.fits(enc, court.ID, day, t, end, rest, keys, blocks)
		if ok {
			return slotChoice{court: court, start: t, end: end, blockID: blockID}, true
		}
		if floor := t.Add(step); next.Before(floor) {
			next = floor
		}
		t = alignUp(next, dayStart, step)
	}
	return slotChoice{}, false
}

// fits checks one candidate interval; on failure it returns the earliest start worth trying next.
func (o *occupancy) fits(enc models.Encounter, courtID string, day int, start, end time.Time, rest time.Duration, keys []string, blocks []models.BlockAssignment) (string, time.Time, bool) {
	next := start
	blockID := ""
	if len(blocks) > 0 {
		_, tod := o.snap.event.DayOf(start)
		block, ok := ResolveBlock(blocks, enc.DivisionID, enc.PhaseID, day, tod)
		if !ok || !o.snap.groupByID[block.CourtGroupID].HasCourt(courtID) {
			return "", next, false
		}
		if blockEnd := o.snap.event.At(day, block.Window().To); end.After(blockEnd) {
			return "", blockEnd, false
		}
		endTod := tod + models.TimeOfDay(end.Sub(start)/time.Minute)
		if change, ok := nextBlockChange(blocks, block, enc.DivisionID, enc.PhaseID, day, tod, endTod); ok {
			return "", o.snap.event.At(day, change), false
		}
		if block.DependsOnBlockID != nil {
			if gate := o.blockEnds[*block.DependsOnBlockID]; start.Before(gate) {
				return "", gate, false
			}
		}
		blockID = block.ID
	}

	fits := true
	for _, span := range o.courts[courtID] {
		if span.start.Before(end) && start.Before(span.end) {
			fits = false
			if span.end.After(next) {
				next = span.end
			}
		}
	}
	for _, key := range keys {
		for _, span := range o.people[key] {
			gap := rest
			if span.rest > gap {
				gap = span.rest
			}
			if span.start.Before(end.Add(gap)) && start.Before(span.end.Add(gap)) {
				fits = false
				if candidate := span.end.Add(gap); candidate.After(next) {
					next = candidate
				}
			}
		}
	}
	return blockID, next, fits
}

// alignUp rounds t up to the next multiple of step measured from base.
func alignUp(t, base time.Time, step time.Duration) time.Time {
	if step <= 0 || t.Before(base) {
		return t
	}
	offset := t.Sub(base)
	if rem := offset % step; rem != 0 {
		return t.Add(step - rem)
	}
	return t
}
