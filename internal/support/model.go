package support

import "time"

const (
	AuthorUser  = "user"
	AuthorAdmin = "admin"
)

// Message is one entry of a user's support thread.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author"`
	AdminID   string    `json:"admin_id,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread summarizes a user's conversation with support.
type Thread struct {
	UserID        string    `json:"user_id"`
	Messages      int       `json:"messages"`
	LastAuthor    string    `json:"last_author"`
	LastBody      string    `json:"last_body"`
	LastMessageAt time.Time `json:"last_message_at"`
}
