package models

import (
	"time"

	"github.com/google/uuid"
)

// JSON field names match the blobs written by the browser build of the app,
// so an exported store loads directly. Negative counters it may hold are
// clamped on load.

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar"`
	IsOnline    bool   `json:"isOnline"`

	// Only present in profiles imported from the browser build.
	MutualFriends *int `json:"mutualFriends,omitempty"`
}

type Post struct {
	ID                   string    `json:"id"`
	Author               User      `json:"author"`
	Content              string    `json:"content"`
	Image                string    `json:"image,omitempty"`
	CreatedAt            time.Time `json:"timestamp"`
	LikeCount            int       `json:"likes"`
	IsLikedByCurrentUser bool      `json:"isLiked"`
	ShareCount           int       `json:"shares"`
	Comments             []Comment `json:"comments"`
}

type Comment struct {
	ID                   string    `json:"id"`
	Author               User      `json:"author"`
	Content              string    `json:"content"`
	CreatedAt            time.Time `json:"timestamp"`
	LikeCount            int       `json:"likes"`
	IsLikedByCurrentUser bool      `json:"isLiked"`
}

// NewID returns a UUIDv7 string. Within one process the values are unique
// and sort in creation order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
