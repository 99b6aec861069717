// Package models is a fixture for the gostruct adapter tests.
package models

import "time"

// Visibility controls who can read a post.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityFollowers Visibility = "followers"
	VisibilityPrivate   Visibility = "private"
)

// timestamps is embedded into persisted models.
type timestamps struct {
	CreatedAt time.Time `json:"created_at"`
}

// PostAuthor is the minimal author info attached to posts.
type PostAuthor struct {
	ID          string  `json:"id" validate:"required,uuid"`
	Username    string  `json:"username" validate:"required,min=3,max=50"`
	DisplayName *string `json:"display_name"`
}

// PostPublic is a post as returned by the API.
type PostPublic struct {
	ID      string `json:"id"`
	Content string `json:"content" validate:"required,min=1,max=280"`
	timestamps
	Author     PostAuthor `json:"author"`
	Visibility Visibility `json:"visibility"`
	// Tags are free-form labels.
	Tags   []string `json:"tags,omitempty" validate:"max=5,dive,alphanum"`
	Score  float64  `json:"score" validate:"gte=0,lt=5"`
	Draft  bool     `json:"-"`
	secret string
}

// Settings holds arbitrary preferences and cannot be represented.
type Settings struct {
	Values map[string]any `json:"values"`
}

type Page[T any] struct {
	Items []T `json:"items"`
}
