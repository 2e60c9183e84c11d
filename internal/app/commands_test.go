package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startrip/internal/app"
	"startrip/internal/domain"
)

func newStar(placeID string) app.NewStar {
	open, closeAt := 9*60, 22*60
	return app.NewStar{
		PlaceID:  placeID,
		Name:     "Star " + placeID,
		Location: seoul,
		Rating:   4.3,
		BusinessHours: map[time.Weekday]domain.BusinessHours{
			time.Monday: {OpenMinute: &open, CloseMinute: &closeAt},
			time.Sunday: {Closed: true},
		},
	}
}

func TestAddStar_PersistsAndRecordsActivity(t *testing.T) {
	repo := newMemRepo()
	j := app.NewJournalService(repo)

	st, err := j.AddStar(context.Background(), "u1", newStar("p1"))
	require.NoError(t, err)
	assert.NotZero(t, st.ID)
	assert.True(t, st.Active)
	assert.Equal(t, "u1", st.UserID)

	require.Len(t, repo.activities, 1)
	assert.Equal(t, domain.ActivitySave, repo.activities[0].Type)
	assert.JSONEq(t, `{"place_id":"p1","star_id":1}`, string(repo.activities[0].DataJSON))
	assert.NotEmpty(t, repo.activities[0].ID)
}

func TestAddStar_Validation(t *testing.T) {
	j := app.NewJournalService(newMemRepo())
	bad := 25 * 60

	cases := map[string]func(*app.NewStar){
		"no place id": func(n *app.NewStar) { n.PlaceID = " " },
		"no name":     func(n *app.NewStar) { n.Name = "" },
		"bad coord":   func(n *app.NewStar) { n.Location.Lat = 100 },
		"bad rating":  func(n *app.NewStar) { n.Rating = 6 },
		"bad hours":   func(n *app.NewStar) { n.BusinessHours[time.Monday] = domain.BusinessHours{OpenMinute: &bad} },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			n := newStar("p1")
			mut(&n)
			_, err := j.AddStar(context.Background(), "u1", n)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := j.AddStar(context.Background(), "", newStar("p1"))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestStars_Ownership(t *testing.T) {
	j := app.NewJournalService(newMemRepo())
	ctx := context.Background()

	st, err := j.AddStar(ctx, "owner", newStar("p1"))
	require.NoError(t, err)

	_, err = j.GetStar(ctx, "intruder", st.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, j.DeleteStar(ctx, "intruder", st.ID), domain.ErrNotFound)
	assert.ErrorIs(t, j.SetStarActive(ctx, "intruder", st.ID, false), domain.ErrNotFound)

	list, err := j.ListStars(ctx, "intruder", false)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStars_ActiveAndFavoriteToggles(t *testing.T) {
	j := app.NewJournalService(newMemRepo())
	ctx := context.Background()

	a, err := j.AddStar(ctx, "u1", newStar("p1"))
	require.NoError(t, err)
	b, err := j.AddStar(ctx, "u1", newStar("p2"))
	require.NoError(t, err)

	require.NoError(t, j.SetStarActive(ctx, "u1", a.ID, false))
	require.NoError(t, j.SetStarFavorite(ctx, "u1", b.ID, true))

	active, err := j.ListStars(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)
	assert.True(t, active[0].Favorite)

	all, err := j.ListStars(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, j.DeleteStar(ctx, "u1", a.ID))
	_, err = j.GetStar(ctx, "u1", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateConstellation(t *testing.T) {
	j := app.NewJournalService(newMemRepo())
	ctx := context.Background()

	a, _ := j.AddStar(ctx, "u1", newStar("p1"))
	b, _ := j.AddStar(ctx, "u1", newStar("p2"))
	other, _ := j.AddStar(ctx, "u2", newStar("p3"))

	c, err := j.CreateConstellation(ctx, "u1", app.NewConstellation{
		Name:        "Seoul food walk",
		StarIDs:     []int64{a.ID, b.ID, a.ID},
		Connections: []domain.StarConnection{{From: a.ID, To: b.ID}},
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Len(t, c.Stars, 2)
	assert.Len(t, c.Connections, 1)

	got, err := j.GetConstellation(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seoul food walk", got.Name)

	_, err = j.GetConstellation(ctx, "u2", c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := j.ListConstellations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// foreign star
	_, err = j.CreateConstellation(ctx, "u1", app.NewConstellation{Name: "x", StarIDs: []int64{a.ID, other.ID}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateConstellation_RejectsBadConnections(t *testing.T) {
	j := app.NewJournalService(newMemRepo())
	ctx := context.Background()
	a, _ := j.AddStar(ctx, "u1", newStar("p1"))
	b, _ := j.AddStar(ctx, "u1", newStar("p2"))
	c, _ := j.AddStar(ctx, "u1", newStar("p3"))

	_, err := j.CreateConstellation(ctx, "u1", app.NewConstellation{
		Name: "loop", StarIDs: []int64{a.ID, b.ID},
		Connections: []domain.StarConnection{{From: a.ID, To: a.ID}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = j.CreateConstellation(ctx, "u1", app.NewConstellation{
		Name: "outsider", StarIDs: []int64{a.ID, b.ID},
		Connections: []domain.StarConnection{{From: a.ID, To: c.ID}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = j.CreateConstellation(ctx, "u1", app.NewConstellation{Name: "empty"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = j.CreateConstellation(ctx, "u1", app.NewConstellation{StarIDs: []int64{a.ID}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPruneActivities(t *testing.T) {
	repo := newMemRepo()
	now := time.Now().UTC()
	repo.activities = []domain.UserActivity{
		{ID: "old", Timestamp: now.Add(-48 * time.Hour)},
		{ID: "new", Timestamp: now.Add(-time.Hour)},
	}
	j := app.NewJournalService(repo)

	n, err := j.PruneActivities(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.Len(t, repo.activities, 1)
	assert.Equal(t, "new", repo.activities[0].ID)

	_, err = j.PruneActivities(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
