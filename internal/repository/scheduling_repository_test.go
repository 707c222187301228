package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

func newSchedulingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { sqlxDB.Close() })
	return sqlxDB, mock
}

func stringRef(value string) *string {
	return &value
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewEventRepository(db)

	start := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "timezone", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow("event-1", "Summer Open", "Europe/Amsterdam", start, start.AddDate(0, 0, 1), start, start)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).WithArgs("event-1").WillReturnRows(rows)

	event, err := repo.FindByID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, "Summer Open", event.Name)
	assert.Equal(t, 2, event.DayCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCourtGroupRepositoryListByEventAttachesMembers(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewCourtGroupRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM court_groups WHERE event_id = $1")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "priority", "sort_order", "created_at", "updated_at"}).
			AddRow("group-a", "event-1", "Court 1 - Court 2", 0, 0, now, now).
			AddRow("group-b", "event-1", "Court 3", 1, 1, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM court_group_courts m JOIN court_groups g")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"court_group_id", "court_id", "sort_order"}).
			AddRow("group-a", "court-1", 0).
			AddRow("group-a", "court-2", 1))

	groups, err := repo.ListByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"court-1", "court-2"}, groups[0].CourtIDs)
	assert.Equal(t, []string{}, groups[1].CourtIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourtGroupRepositoryCreateWithMembers(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewCourtGroupRepository(db)

	mock.ExpectExec("INSERT INTO court_groups").
		WithArgs(sqlmock.AnyArg(), "event-1", "Court 1 - Court 2", 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO court_group_courts").
		WithArgs(sqlmock.AnyArg(), "court-1", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO court_group_courts").
		WithArgs(sqlmock.AnyArg(), "court-2", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	group := &models.CourtGroup{EventID: "event-1", Name: "Court 1 - Court 2", CourtIDs: []string{"court-1", "court-2"}}
	require.NoError(t, repo.CreateWithMembers(context.Background(), nil, group))
	assert.NotEmpty(t, group.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDivisionRepositoryListUnitsScansMembers(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewDivisionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM units u JOIN divisions d")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "division_id", "name", "member_user_ids"}).
			AddRow("unit-1", "div-1", "Smash Bros", "{user-1,user-2}"))

	units, err := repo.ListUnitsByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, []string{"user-1", "user-2"}, []string(units[0].MemberUserIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockAssignmentRepositoryCreateBatch(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewBlockAssignmentRepository(db)

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM block_assignments WHERE event_id = $1")).
		WithArgs("event-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO block_assignments").
		WithArgs("block-pool", "event-1", "div-1", sqlmock.AnyArg(), "group-a", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO block_assignments").
		WithArgs("block-bracket", "event-1", "div-1", "phase-2", "group-b", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 1, "block-pool", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	blocks := []models.BlockAssignment{
		{ID: "block-pool", EventID: "event-1", DivisionID: "div-1", CourtGroupID: "group-a"},
		{ID: "block-bracket", EventID: "event-1", DivisionID: "div-1", PhaseID: stringRef("phase-2"), CourtGroupID: "group-b", Priority: 1, DependsOnBlockID: stringRef("block-pool")},
	}
	require.NoError(t, repo.DeleteByEvent(context.Background(), tx, "event-1"))
	require.NoError(t, repo.CreateBatch(context.Background(), tx, blocks))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockAssignmentRepositoryListByEvent(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewBlockAssignmentRepository(db)
	now := time.Now()

	columns := []string{"id", "event_id", "division_id", "phase_id", "court_group_id", "day_number", "valid_from", "valid_to", "priority", "depends_on_block_id", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM block_assignments WHERE event_id = $1 ORDER BY priority ASC")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("block-1", "event-1", "div-1", nil, "group-a", int64(1), "09:00:00", "12:30:00", 0, nil, now, now))

	blocks, err := repo.ListByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.NotNil(t, blocks[0].ValidFrom)
	assert.Equal(t, models.NewTimeOfDay(9, 0), *blocks[0].ValidFrom)
	assert.Equal(t, models.NewTimeOfDay(12, 30), *blocks[0].ValidTo)
	assert.Nil(t, blocks[0].PhaseID)
}

func TestAvailabilityRepositoryReplaceForEvent(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_windows WHERE event_id = $1")).
		WithArgs("event-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO availability_windows").
		WithArgs(sqlmock.AnyArg(), "event-1", nil, 1, "08:00:00", "18:00:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	windows := []models.AvailabilityWindow{{DayNumber: 1, OpenFrom: models.NewTimeOfDay(8, 0), OpenTo: models.NewTimeOfDay(18, 0)}}
	require.NoError(t, repo.ReplaceForEvent(context.Background(), nil, "event-1", windows))
	assert.Equal(t, "event-1", windows[0].EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEncounterRepositoryListByEventReadsPredecessors(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewEncounterRepository(db)
	now := time.Now()

	columns := []string{"id", "event_id", "division_id", "phase_id", "unit1_id", "unit2_id", "court_id", "estimated_start", "estimated_end", "duration_minutes", "status", "round_number", "round_type", "round_name", "encounter_number", "predecessor_ids", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("ARRAY(SELECT d.depends_on_id::text FROM encounter_dependencies d")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("enc-5", "event-1", "div-1", nil, nil, nil, nil, nil, nil, nil, "PENDING", 2, "BRACKET", "Semifinal", 1, "{enc-1,enc-2}", now, now))

	encounters, err := repo.ListByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, encounters, 1)
	assert.Equal(t, []string{"enc-1", "enc-2"}, []string(encounters[0].PredecessorIDs))
	assert.False(t, encounters[0].IsScheduled())
	assert.Empty(t, encounters[0].UnitIDs())
}

func TestEncounterRepositoryAssignSlotSkipsFrozen(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewEncounterRepository(db)
	start := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE encounters SET court_id = $2")).
		WithArgs("enc-1", "court-1", start, start.Add(15*time.Minute), "SCHEDULED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AssignSlot(context.Background(), models.SlotAssignment{EncounterID: "enc-1", CourtID: "court-1", Start: start, End: start.Add(15 * time.Minute)})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEncounterRepositoryClearByDivisionWithPhase(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewEncounterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE division_id = $1 AND status NOT IN ('IN_PROGRESS', 'COMPLETED', 'CANCELLED')")+".*"+regexp.QuoteMeta("AND phase_id = $4")).
		WithArgs("div-1", "PENDING", sqlmock.AnyArg(), "phase-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	cleared, err := repo.ClearByDivision(context.Background(), "div-1", stringRef("phase-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEncounterRepositoryClearSlotNoop(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewEncounterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE encounters SET court_id = NULL")).
		WithArgs("enc-1", "PENDING", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.ClearSlot(context.Background(), "enc-1")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAdvisoryLockRepositoryLockAndRelease(t *testing.T) {
	db, mock := newSchedulingRepoMock(t)
	repo := NewAdvisoryLockRepository(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock(hashtext($1))")).
		WithArgs("schedule:event-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock(hashtext($1))")).
		WithArgs("schedule:event-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	release, err := repo.Lock(context.Background(), "schedule:event-1")
	require.NoError(t, err)
	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}
