package mysql_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startrip/internal/domain"
	mysqlrepo "startrip/internal/storage/mysql"
)

var starCols = []string{"id", "user_id", "place_id", "name", "lat", "lng", "rating", "business_hours", "active", "favorite", "created_at"}

func newMock(t *testing.T) (*mysqlrepo.Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return mysqlrepo.New(db), mock
}

func TestInsertStar(t *testing.T) {
	repo, mock := newMock(t)
	open := 540
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stars")).
		WithArgs("u1", "p1", "Cafe", 37.5, 127.0, 4.5,
			`{"1":{"open_minute":540,"open_24h":false,"closed":false}}`,
			true, false, created).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.InsertStar(context.Background(), domain.Star{
		UserID: "u1", PlaceID: "p1", Name: "Cafe",
		Location: domain.Coordinate{Lat: 37.5, Lng: 127.0}, Rating: 4.5,
		BusinessHours: map[time.Weekday]domain.BusinessHours{time.Monday: {OpenMinute: &open}},
		Active:        true, CreatedAt: created,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
}

func TestGetStar_DecodesHoursAndMapsNotFound(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM stars s")).
		WithArgs(int64(7), "u1").
		WillReturnRows(sqlmock.NewRows(starCols).
			AddRow(int64(7), "u1", "p1", "Cafe", 37.5, 127.0, 4.5,
				[]byte(`{"0":{"open_24h":false,"closed":true}}`), true, true, created))

	st, err := repo.GetStar(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", st.Name)
	assert.True(t, st.Favorite)
	assert.True(t, st.BusinessHours[time.Sunday].Closed)
	assert.Equal(t, created, st.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM stars s")).
		WithArgs(int64(8), "u1").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetStar(context.Background(), "u1", 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListStars_ActiveOnly(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.user_id = ? AND s.active = 1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(starCols).
			AddRow(int64(2), "u1", "p2", "B", 1.0, 2.0, 4.0, nil, true, false, now).
			AddRow(int64(1), "u1", "p1", "A", 1.0, 2.0, 3.0, nil, true, false, now))

	out, err := repo.ListStars(context.Background(), "u1", true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.EqualValues(t, 2, out[0].ID)
	assert.Nil(t, out[1].BusinessHours)
}

func TestDeleteStar_NotOwned(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM stars")).
		WithArgs(int64(3), "u2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteStar(context.Background(), "u2", 3), domain.ErrNotFound)
}

func TestUpdateStarActive_UnchangedValueStillSucceeds(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE stars SET active = ?")).
		WithArgs(true, int64(3), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM stars")).
		WithArgs(int64(3), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	require.NoError(t, repo.UpdateStarActive(context.Background(), "u1", 3, true))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE stars SET favorite = ?")).
		WithArgs(true, int64(4), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM stars")).
		WithArgs(int64(4), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	assert.ErrorIs(t, repo.UpdateStarFavorite(context.Background(), "u1", 4, true), domain.ErrNotFound)
}

func TestInsertConstellation_Transaction(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO constellations")).
		WithArgs("u1", "Walk", nil).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO constellation_stars")).
		WithArgs(int64(11), int64(1), 0, int64(11), int64(2), 1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO star_connections")).
		WithArgs(int64(11), int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.InsertConstellation(context.Background(), domain.Constellation{
		UserID:      "u1",
		Name:        "Walk",
		Stars:       []domain.Star{{ID: 1}, {ID: 2}},
		Connections: []domain.StarConnection{{From: 1, To: 2}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, id)
}

func TestInsertConstellation_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO constellations")).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO constellation_stars")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.InsertConstellation(context.Background(), domain.Constellation{
		UserID: "u1", Name: "Broken", Stars: []domain.Star{{ID: 1}},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGetConstellation_LoadsMembers(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM constellations")).
		WithArgs(int64(11), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "description"}).
			AddRow(int64(11), "u1", "Walk", nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM constellation_stars cs")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(starCols).
			AddRow(int64(1), "u1", "p1", "A", 1.0, 2.0, 4.0, nil, true, false, now).
			AddRow(int64(2), "u1", "p2", "B", 1.0, 2.0, 4.0, nil, true, false, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM star_connections")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"from_star_id", "to_star_id"}).AddRow(int64(1), int64(2)))

	c, err := repo.GetConstellation(context.Background(), "u1", 11)
	require.NoError(t, err)
	assert.Equal(t, "", c.Description)
	assert.Len(t, c.Stars, 2)
	assert.Equal(t, []domain.StarConnection{{From: 1, To: 2}}, c.Connections)
}

func TestActivities(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_activities")).
		WithArgs("a-1", "u1", "login", ts, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.InsertActivity(context.Background(), domain.UserActivity{
		ID: "a-1", UserID: "u1", Type: domain.ActivityLogin, Timestamp: ts,
	}))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_activities WHERE ts < ?")).
		WithArgs(ts).
		WillReturnResult(sqlmock.NewResult(0, 4))
	n, err := repo.DeleteActivitiesBefore(context.Background(), ts)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
