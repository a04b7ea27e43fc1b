package post

import "time"

type Post struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	AuthorID       string    `json:"-"`
	AuthorUsername string    `json:"authorUsername"`
}

type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
