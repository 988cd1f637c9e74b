package profile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UserProfile is the per-user memory blob accumulated from past
// conversations. Version increases by exactly one on every mutation and is
// enforced with a compare-and-swap on update.
type UserProfile struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	UserID                string          `db:"user_id" json:"user_id"`
	ProfileData           json.RawMessage `db:"profile_data" json:"profile_data"`
	AIInstructionsSummary string          `db:"ai_instructions_summary" json:"ai_instructions_summary,omitempty"`
	Version               int             `db:"version" json:"version"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// ProcessedConversation marks an ended conversation awaiting (or done with)
// profile enrichment. ProcessedAt is null while pending.
type ProcessedConversation struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ConversationAnalysis is the LLM's per-regeneration analysis output.
type ConversationAnalysis struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	Analysis       string    `db:"analysis" json:"analysis"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// InstructionsResult is returned by the instructions lookup. Fallback is
// true when no stored summary exists and Instructions holds the generic
// default instead.
type InstructionsResult struct {
	Instructions string `json:"instructions"`
	Fallback     bool   `json:"fallback"`
}

// ClearResult reports a profile clear. Warning is set when the optional
// tracker reset partially failed.
type ClearResult struct {
	Version int    `json:"version"`
	Warning string `json:"warning,omitempty"`
}

// RegenerateResult reports a summary regeneration run.
type RegenerateResult struct {
	Updated          int    `json:"conversations_processed"`
	Summary          string `json:"summary,omitempty"`
	Version          int    `json:"version,omitempty"`
	NothingToProcess bool   `json:"nothing_to_process,omitempty"`
}
