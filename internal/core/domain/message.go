package domain

import "time"

// Message is a persistent system notification fanned out to recipients. Read
// state lives on the recipient row.
type Message struct {
	ID        string
	Level     string
	Title     string
	Body      string
	CreatedAt time.Time
}

type MessageRecipient struct {
	MessageID string
	UserID    string
	ReadAt    *time.Time
}

// UserMessage is a message joined with one recipient's read state, the shape
// returned to inbox listings.
type UserMessage struct {
	Message
	ReadAt *time.Time
}
