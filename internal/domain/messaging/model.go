package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Sender roles on an audio message.
const (
	SenderProvider = "provider"
	SenderPatient  = "patient"
)

// TaskNotifyPatient is the outbox task kind enqueued for each sent message.
const TaskNotifyPatient = "notify_patient"

// AudioMessage is one voice message in a provider-patient thread. AudioPath
// references a blob uploaded out of band.
type AudioMessage struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  string    `db:"patient_id" json:"patient_id"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	SenderRole string    `db:"sender_role" json:"sender_role"`
	AudioPath  string    `db:"audio_path" json:"audio_path"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NotifyPayload is the outbox payload for patient notification.
type NotifyPayload struct {
	MessageID  uuid.UUID `json:"message_id"`
	PatientID  string    `json:"patient_id"`
	ProviderID string    `json:"provider_id"`
	SenderRole string    `json:"sender_role"`
}
