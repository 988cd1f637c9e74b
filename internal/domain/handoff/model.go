package handoff

import (
	"time"

	"github.com/google/uuid"
)

// Template roles within a category. The generator needs one of each.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// TemplateCategory selects the warm-handoff prompt pair.
const TemplateCategory = "warm_handoff"

// ProfilePlaceholder must appear in the stored user template; the generator
// refuses to run a template that cannot receive the profile.
const ProfilePlaceholder = "{PROFILE_DATA}"

// PromptTemplate is a versioned prompt. The newest active version per
// (category, role) wins.
type PromptTemplate struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Category  string    `db:"category" json:"category"`
	Role      string    `db:"role" json:"role"`
	Version   int       `db:"version" json:"version"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WarmHandoff is a generated narrative summary for a receiving therapist.
// Rows are append-only.
type WarmHandoff struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ProfileID      uuid.UUID `db:"profile_id" json:"profile_id"`
	ProfileVersion int       `db:"profile_version" json:"profile_version"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// GenerateRequest triggers handoff generation for a user.
type GenerateRequest struct {
	UserID string `json:"user_id"`
}
