package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	ID        int64     `json:"id"`
	ConvID    int64     `json:"conversation_id"`
	Role      string    `json:"role"` // user, assistant, or system
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Deployment is one successful upload of a generated site.
type Deployment struct {
	ID        string    `json:"id"`
	ConvID    int64     `json:"conversation_id,omitempty"`
	ContentID string    `json:"content_id"`
	ViewURL   string    `json:"view_url"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
