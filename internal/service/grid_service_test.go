package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
	"github.com/noah-isme/courtside-scheduler/pkg/jobs"
)

type memCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: make(map[string][]byte)}
}

func (r *memCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = raw
	return nil
}

func (r *memCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.entries, key)
		}
	}
	return nil
}

func (r *memCacheRepo) has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

type recordingQueue struct {
	jobs []jobs.Job
	seen map[string]bool
}

func (q *recordingQueue) EnqueueUnique(job jobs.Job) (bool, error) {
	if q.seen == nil {
		q.seen = make(map[string]bool)
	}
	if q.seen[job.Key] {
		return false, nil
	}
	q.seen[job.Key] = true
	q.jobs = append(q.jobs, job)
	return true, nil
}

func newGridFixture(t *testing.T, exports bool) (*memState, *GridService, *memCacheRepo) {
	t.Helper()
	state := newBracketEvent()
	h := newSchedulingHarness(state)
	_, err := h.scheduler.Generate(context.Background(), dto.ScheduleRequest{EventID: "event-1"})
	require.NoError(t, err)

	repo := newMemCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	grid := NewGridService(state.stores(), SchedulingRules{}, cache, GridConfig{CacheTTL: time.Minute, ExportsEnabled: exports}, nil)
	return state, grid, repo
}

func TestGridServiceBuildGridUsesCache(t *testing.T) {
	state, grid, repo := newGridFixture(t, false)

	first, err := grid.BuildGrid(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Len(t, first.Cells, 6)
	assert.Equal(t, []int{1}, first.Days)
	assert.Zero(t, first.UnscheduledCount)
	assert.Zero(t, first.ConflictCount)
	assert.Equal(t, "court-1", first.Courts[0].ID)
	assert.Equal(t, "r1-1", first.Cells[0].EncounterID)
	assert.Equal(t, "Unit 1", first.Cells[0].Unit1Name)
	assert.Equal(t, "TBD", first.Cells[4].Unit1Name)
	assert.True(t, repo.has(GridCacheKey("event-1", nil)))

	// a write behind the cache's back is invisible until invalidation
	state.place("r1-1", "court-1", state.at(1, 9, 5), 15)
	cached, err := grid.BuildGrid(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Zero(t, cached.ConflictCount)

	grid.Invalidate(context.Background(), "event-1")
	assert.False(t, repo.has(GridCacheKey("event-1", nil)))
	fresh, err := grid.BuildGrid(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Positive(t, fresh.ConflictCount)
	assert.Contains(t, fresh.Cells[0].ConflictKinds, models.ConflictCourtDoubleBooking)
}

func TestGridServiceBuildGridForDay(t *testing.T) {
	_, grid, _ := newGridFixture(t, false)
	day := 1
	result, err := grid.BuildGrid(context.Background(), "event-1", &day)
	require.NoError(t, err)
	require.NotNil(t, result.Day)
	assert.Len(t, result.Cells, 6)

	outside := 4
	_, err = grid.BuildGrid(context.Background(), "event-1", &outside)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGridServiceInvalidateEnqueuesWarmJobOnce(t *testing.T) {
	_, grid, repo := newGridFixture(t, false)
	queue := &recordingQueue{}
	grid.AttachWarmQueue(queue)

	grid.Invalidate(context.Background(), "event-1")
	grid.Invalidate(context.Background(), "event-1")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "event-1", queue.jobs[0].Payload)

	require.NoError(t, grid.WarmJob(context.Background(), queue.jobs[0]))
	day := 1
	assert.True(t, repo.has(GridCacheKey("event-1", nil)))
	assert.True(t, repo.has(GridCacheKey("event-1", &day)))

	assert.Error(t, grid.WarmJob(context.Background(), jobs.Job{ID: "bad"}))
}

func TestGridServiceExport(t *testing.T) {
	_, grid, _ := newGridFixture(t, true)

	file, err := grid.Export(context.Background(), "event-1", nil, dto.GridExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "schedule-event-1.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, "Day", records[0][0])
	assert.Equal(t, []string{"1", "09:00", "09:15", "Court 1"}, records[1][:4])

	day := 1
	file, err = grid.Export(context.Background(), "event-1", &day, dto.GridExportXLSX)
	require.NoError(t, err)
	assert.Equal(t, "schedule-event-1-day-1.xlsx", file.Filename)
	assert.NotEmpty(t, file.Body)

	file, err = grid.Export(context.Background(), "event-1", nil, dto.GridExportPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))

	_, err = grid.Export(context.Background(), "event-1", nil, dto.GridExportFormat("docx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGridServiceExportDisabled(t *testing.T) {
	_, grid, _ := newGridFixture(t, false)
	_, err := grid.Export(context.Background(), "event-1", nil, dto.GridExportCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFeatureDisabled.Code, appErrors.FromError(err).Code)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)
	require.NoError(t, cache.Set(context.Background(), "grid:event-1:all", map[string]int{"a": 1}, 0))
	var dest map[string]int
	hit, err := cache.Get(context.Background(), "grid:event-1:all", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.gets)
}

func TestGridCacheKeys(t *testing.T) {
	day := 2
	assert.Equal(t, "grid:e1:all", GridCacheKey("e1", nil))
	assert.Equal(t, "grid:e1:2", GridCacheKey("e1", &day))
	ok, _ := path.Match(GridCachePattern("e1"), GridCacheKey("e1", &day))
	assert.True(t, ok)
}
