package conversation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Conversation is a container for one voice or chat session. A user may have
// many conversations; only the active ones are candidates for resume.
type Conversation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Message is one turn in a conversation, ordered by creation time. Metadata
// carries optional specialist routing details as free-form JSON.
type Message struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	ConversationID uuid.UUID       `db:"conversation_id" json:"conversation_id"`
	Role           string          `db:"role" json:"role"`
	Content        string          `db:"content" json:"content"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// BootstrapResult is returned when a voice session starts. The intake fields
// are set when an unlinked intake session was created or already existed.
type BootstrapResult struct {
	Conversation    *Conversation `json:"conversation"`
	IntakeSessionID *uuid.UUID    `json:"intake_session_id,omitempty"`
	AccessCode      string        `json:"access_code,omitempty"`
}

// ResumableConversation is the most recent active conversation with its
// messages in order, for the session-resume UX.
type ResumableConversation struct {
	Conversation *Conversation `json:"conversation"`
	Messages     []*Message    `json:"messages"`
}
