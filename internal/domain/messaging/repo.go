package messaging

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("audio message not found")

type Repository interface {
	Create(ctx context.Context, m *AudioMessage) error
	// ListThread returns the messages between a patient and provider in
	// creation order.
	ListThread(ctx context.Context, patientID, providerID string) ([]*AudioMessage, error)
}
