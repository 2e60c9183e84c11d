package mysql

const insertStarSQL = `
INSERT INTO stars
  (user_id, place_id, name, lat, lng, rating, business_hours, active, favorite, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const starColumns = `s.id, s.user_id, s.place_id, s.name, s.lat, s.lng, s.rating, s.business_hours, s.active, s.favorite, s.created_at`

const getStarSQL = `
SELECT ` + starColumns + `
FROM stars s
WHERE s.id = ? AND s.user_id = ?
`

// Newest first; matches idx_stars_user.
const listStarsSQL = `
SELECT ` + starColumns + `
FROM stars s
WHERE s.user_id = ?
ORDER BY s.created_at DESC, s.id DESC
`

const listActiveStarsSQL = `
SELECT ` + starColumns + `
FROM stars s
WHERE s.user_id = ? AND s.active = 1
ORDER BY s.created_at DESC, s.id DESC
`

const deleteStarSQL = `DELETE FROM stars WHERE id = ? AND user_id = ?`

const updateStarActiveSQL = `UPDATE stars SET active = ? WHERE id = ? AND user_id = ?`

const updateStarFavoriteSQL = `UPDATE stars SET favorite = ? WHERE id = ? AND user_id = ?`

// Affected rows only count changed rows, so updates confirm ownership separately.
const starExistsSQL = `SELECT COUNT(*) FROM stars WHERE id = ? AND user_id = ?`

const insertConstellationSQL = `
INSERT INTO constellations (user_id, name, description)
VALUES (?, ?, ?)
`

const insertMembersPrefix = "INSERT INTO constellation_stars (constellation_id, star_id, position) VALUES "

const insertConnectionsPrefix = "INSERT INTO star_connections (constellation_id, from_star_id, to_star_id) VALUES "

const getConstellationSQL = `
SELECT id, user_id, name, description
FROM constellations
WHERE id = ? AND user_id = ?
`

const listConstellationsSQL = `
SELECT id, user_id, name, description
FROM constellations
WHERE user_id = ?
ORDER BY id
`

const constellationStarsSQL = `
SELECT ` + starColumns + `
FROM constellation_stars cs
JOIN stars s ON s.id = cs.star_id
WHERE cs.constellation_id = ?
ORDER BY cs.position
`

const constellationConnectionsSQL = `
SELECT from_star_id, to_star_id
FROM star_connections
WHERE constellation_id = ?
ORDER BY from_star_id, to_star_id
`

const insertActivitySQL = `
INSERT INTO user_activities (id, user_id, type, ts, data)
VALUES (?, ?, ?, ?, ?)
`

const deleteActivitiesBeforeSQL = `DELETE FROM user_activities WHERE ts < ?`
