package domain

import "time"

// BusinessHours holds one weekday's schedule as minutes after midnight.
type BusinessHours struct {
	OpenMinute  *int `json:"open_minute,omitempty"`
	CloseMinute *int `json:"close_minute,omitempty"`
	Open24Hours bool `json:"open_24h"`
	Closed      bool `json:"closed"`
}

// Star is a place saved to a user's journal.
type Star struct {
	ID            int64                          `json:"id"`
	UserID        string                         `json:"user_id"`
	PlaceID       string                         `json:"place_id"`
	Name          string                         `json:"name"`
	Location      Coordinate                     `json:"location"`
	Rating        float64                        `json:"rating"`
	BusinessHours map[time.Weekday]BusinessHours `json:"business_hours,omitempty"`
	Active        bool                           `json:"active"`
	Favorite      bool                           `json:"favorite"`
	CreatedAt     time.Time                      `json:"created_at"`
}

type StarConnection struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type Constellation struct {
	ID          int64            `json:"id"`
	UserID      string           `json:"user_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Stars       []Star           `json:"stars"`
	Connections []StarConnection `json:"connections"`
}

type ActivityType string

const (
	ActivityLogin  ActivityType = "login"
	ActivitySearch ActivityType = "search"
	ActivityView   ActivityType = "view"
	ActivitySave   ActivityType = "save"
)

type UserActivity struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	DataJSON  []byte       `json:"-"`
}
