package reflection

import (
	"errors"
	"time"
)

var (
	// ErrEmptyHistory indicates an empty chat history.
	ErrEmptyHistory = errors.New("chat history cannot be empty")

	// ErrNotFound indicates no reflection exists for the given ID.
	ErrNotFound = errors.New("reflection not found")
)

// ChatMessage is one turn of a chat session.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is a stored reflection: a markdown summary of one session.
type Document struct {
	ID        string    `json:"id"`
	TaskName  string    `json:"task_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
}
