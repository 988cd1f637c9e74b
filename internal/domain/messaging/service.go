package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/platform/blobstore"
	"github.com/mindwell/mindwell/internal/platform/outbox"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

// TxRunner executes fn inside a database transaction. The message repository
// and the outbox store both join the transaction through the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo   Repository
	blobs  blobstore.Store
	outbox outbox.Store
	tx     TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, ob outbox.Store, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, outbox: ob, logger: logger}
}

// SetTxRunner makes Send atomic across the message insert and the outbox
// enqueue. Without a runner the two writes are independent statements.
func (s *Service) SetTxRunner(tx TxRunner) { s.tx = tx }

// Send records an audio message after verifying the referenced blob exists,
// then enqueues a notification task. With a TxRunner attached both writes
// commit together, so a stored message always gets a delivery attempt.
func (s *Service) Send(ctx context.Context, m *AudioMessage) error {
	if strings.TrimSpace(m.PatientID) == "" {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("%w: provider_id is required", ErrValidation)
	}
	if m.SenderRole != SenderProvider && m.SenderRole != SenderPatient {
		return fmt.Errorf("%w: sender_role must be provider or patient", ErrValidation)
	}
	if strings.TrimSpace(m.AudioPath) == "" {
		return fmt.Errorf("%w: audio_path is required", ErrValidation)
	}

	info, err := s.blobs.Stat(ctx, m.AudioPath)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return fmt.Errorf("%w: no audio uploaded at %s", ErrValidation, m.AudioPath)
		}
		return fmt.Errorf("checking audio blob: %w", err)
	}
	m.SizeBytes = info.Size

	run := s.tx
	if run == nil {
		run = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}

		payload, err := json.Marshal(NotifyPayload{
			MessageID:  m.ID,
			PatientID:  m.PatientID,
			ProviderID: m.ProviderID,
			SenderRole: m.SenderRole,
		})
		if err != nil {
			return fmt.Errorf("encoding notification payload: %w", err)
		}
		if _, err := s.outbox.Enqueue(ctx, TaskNotifyPatient, payload); err != nil {
			return fmt.Errorf("enqueueing notification: %w", err)
		}
		return nil
	})
}

// ListThread returns the conversation between a patient and provider.
func (s *Service) ListThread(ctx context.Context, patientID, providerID string) ([]*AudioMessage, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if strings.TrimSpace(providerID) == "" {
		return nil, fmt.Errorf("%w: provider_id is required", ErrValidation)
	}

	messages, err := s.repo.ListThread(ctx, patientID, providerID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*AudioMessage{}
	}
	return messages, nil
}
