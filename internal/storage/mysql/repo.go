package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"startrip/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStar(sc rowScanner) (domain.Star, error) {
	var (
		st    domain.Star
		hours []byte
	)
	if err := sc.Scan(
		&st.ID,
		&st.UserID,
		&st.PlaceID,
		&st.Name,
		&st.Location.Lat,
		&st.Location.Lng,
		&st.Rating,
		&hours,
		&st.Active,
		&st.Favorite,
		&st.CreatedAt,
	); err != nil {
		return domain.Star{}, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &st.BusinessHours); err != nil {
			return domain.Star{}, fmt.Errorf("decode business hours of star %d: %w", st.ID, err)
		}
	}
	return st, nil
}

func (r *Repo) InsertStar(ctx context.Context, s domain.Star) (int64, error) {
	var hours []byte
	if len(s.BusinessHours) > 0 {
		b, err := json.Marshal(s.BusinessHours)
		if err != nil {
			return 0, err
		}
		hours = b
	}
	res, err := r.db.ExecContext(ctx, insertStarSQL,
		s.UserID,
		s.PlaceID,
		s.Name,
		s.Location.Lat,
		s.Location.Lng,
		s.Rating,
		valJSON(hours),
		s.Active,
		s.Favorite,
		s.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) GetStar(ctx context.Context, userID string, id int64) (domain.Star, error) {
	st, err := scanStar(r.db.QueryRowContext(ctx, getStarSQL, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Star{}, domain.ErrNotFound
	}
	return st, err
}

func (r *Repo) ListStars(ctx context.Context, userID string, activeOnly bool) ([]domain.Star, error) {
	q := listStarsSQL
	if activeOnly {
		q = listActiveStarsSQL
	}
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStars(rows)
}

func collectStars(rows *sql.Rows) ([]domain.Star, error) {
	out := []domain.Star{}
	for rows.Next() {
		st, err := scanStar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) DeleteStar(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteStarSQL, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) UpdateStarActive(ctx context.Context, userID string, id int64, active bool) error {
	return r.updateStar(ctx, updateStarActiveSQL, userID, id, active)
}

func (r *Repo) UpdateStarFavorite(ctx context.Context, userID string, id int64, favorite bool) error {
	return r.updateStar(ctx, updateStarFavoriteSQL, userID, id, favorite)
}

func (r *Repo) updateStar(ctx context.Context, q, userID string, id int64, v bool) error {
	res, err := r.db.ExecContext(ctx, q, v, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var count int
	if err := r.db.QueryRowContext(ctx, starExistsSQL, id, userID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InsertConstellation writes the constellation with its members and
// connections in one transaction.
func (r *Repo) InsertConstellation(ctx context.Context, c domain.Constellation) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertConstellationSQL, c.UserID, c.Name, valStr(c.Description))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(c.Stars) > 0 {
		values := make([]string, 0, len(c.Stars))
		args := make([]any, 0, len(c.Stars)*3)
		for i, st := range c.Stars {
			values = append(values, "(?,?,?)")
			args = append(args, id, st.ID, i)
		}
		if _, err := tx.ExecContext(ctx, insertMembersPrefix+strings.Join(values, ","), args...); err != nil {
			return 0, fmt.Errorf("insert constellation stars: %w", err)
		}
	}

	if len(c.Connections) > 0 {
		values := make([]string, 0, len(c.Connections))
		args := make([]any, 0, len(c.Connections)*3)
		for _, cn := range c.Connections {
			values = append(values, "(?,?,?)")
			args = append(args, id, cn.From, cn.To)
		}
		if _, err := tx.ExecContext(ctx, insertConnectionsPrefix+strings.Join(values, ","), args...); err != nil {
			return 0, fmt.Errorf("insert star connections: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) GetConstellation(ctx context.Context, userID string, id int64) (domain.Constellation, error) {
	var (
		c    domain.Constellation
		desc sql.NullString
	)
	err := r.db.QueryRowContext(ctx, getConstellationSQL, id, userID).Scan(&c.ID, &c.UserID, &c.Name, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Constellation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Constellation{}, err
	}
	c.Description = desc.String
	if err := r.loadMembers(ctx, &c); err != nil {
		return domain.Constellation{}, err
	}
	return c, nil
}

func (r *Repo) ListConstellations(ctx context.Context, userID string) ([]domain.Constellation, error) {
	rows, err := r.db.QueryContext(ctx, listConstellationsSQL, userID)
	if err != nil {
		return nil, err
	}
	out := []domain.Constellation{}
	for rows.Next() {
		var (
			c    domain.Constellation
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &desc); err != nil {
			rows.Close()
			return nil, err
		}
		c.Description = desc.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before the member queries
	rows.Close()

	for i := range out {
		if err := r.loadMembers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) loadMembers(ctx context.Context, c *domain.Constellation) error {
	rows, err := r.db.QueryContext(ctx, constellationStarsSQL, c.ID)
	if err != nil {
		return err
	}
	stars, err := collectStars(rows)
	rows.Close()
	if err != nil {
		return err
	}
	c.Stars = stars

	crows, err := r.db.QueryContext(ctx, constellationConnectionsSQL, c.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	c.Connections = []domain.StarConnection{}
	for crows.Next() {
		var cn domain.StarConnection
		if err := crows.Scan(&cn.From, &cn.To); err != nil {
			return err
		}
		c.Connections = append(c.Connections, cn)
	}
	return crows.Err()
}

func (r *Repo) InsertActivity(ctx context.Context, a domain.UserActivity) error {
	_, err := r.db.ExecContext(ctx, insertActivitySQL,
		a.ID,
		a.UserID,
		string(a.Type),
		a.Timestamp,
		valJSON(a.DataJSON),
	)
	return err
}

func (r *Repo) DeleteActivitiesBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteActivitiesBeforeSQL, t)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
