// Package seed supplies the posts written on first load, when the store
// holds none.
package seed

import (
	"time"

	"socialconnect/internal/models"
)

type Provider interface {
	Posts() models.Feed
}

// Sample is the fixed demo dataset.
type Sample struct{}

var (
	sarah = models.User{
		ID:          "sample-user-1",
		DisplayName: "Sarah Johnson",
		Email:       "sarah.johnson@example.com",
		AvatarURL:   "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=150&h=150&fit=crop&crop=face",
		IsOnline:    true,
	}
	mike = models.User{
		ID:          "sample-user-2",
		DisplayName: "Mike Chen",
		Email:       "mike.chen@example.com",
		AvatarURL:   "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face",
		IsOnline:    false,
	}
	emma = models.User{
		ID:          "sample-user-3",
		DisplayName: "Emma Wilson",
		Email:       "emma.wilson@example.com",
		AvatarURL:   "https://images.unsplash.com/photo-1438761681033-6461ffad8d80?w=150&h=150&fit=crop&crop=face",
		IsOnline:    true,
	}
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func (Sample) Posts() models.Feed {
	return models.Feed{
		{
			ID:         "sample-post-3",
			Author:     sarah,
			Content:    "Just finished a 10k run along the river. Legs are done, mood is great!",
			Image:      "https://images.unsplash.com/photo-1452626038306-9aae5e071dd3?w=800&h=600&fit=crop",
			CreatedAt:  at("2024-05-03T08:15:00Z"),
			LikeCount:  24,
			ShareCount: 3,
			Comments: []models.Comment{
				{ID: "sample-comment-1", Author: mike, Content: "Impressive! What was your pace?", CreatedAt: at("2024-05-03T08:40:00Z"), LikeCount: 2},
				{ID: "sample-comment-2", Author: emma, Content: "Congrats Sarah!", CreatedAt: at("2024-05-03T09:05:00Z"), LikeCount: 1},
			},
		},
		{
			ID:         "sample-post-2",
			Author:     mike,
			Content:    "Anyone have recommendations for a good mechanical keyboard? Mine finally gave up.",
			CreatedAt:  at("2024-05-02T19:30:00Z"),
			LikeCount:  8,
			ShareCount: 0,
			Comments: []models.Comment{
				{ID: "sample-comment-3", Author: sarah, Content: "Brown switches, you won't regret it.", CreatedAt: at("2024-05-02T20:10:00Z")},
			},
		},
		{
			ID:         "sample-post-1",
			Author:     emma,
			Content:    "Tried a new pasta recipe tonight and it actually worked. Sharing the photo as proof.",
			Image:      "https://images.unsplash.com/photo-1473093295043-cdd812d0e601?w=800&h=600&fit=crop",
			CreatedAt:  at("2024-05-01T18:00:00Z"),
			LikeCount:  41,
			ShareCount: 6,
			Comments:   []models.Comment{},
		},
	}
}
