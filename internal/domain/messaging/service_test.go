package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/platform/blobstore"
	"github.com/mindwell/mindwell/internal/platform/outbox"
)

type mockRepo struct {
	messages []*AudioMessage
}

func (m *mockRepo) Create(_ context.Context, msg *AudioMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockRepo) ListThread(_ context.Context, patientID, providerID string) ([]*AudioMessage, error) {
	var out []*AudioMessage
	for _, msg := range m.messages {
		if msg.PatientID == patientID && msg.ProviderID == providerID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func newTestService(repo Repository, blobs blobstore.Store, ob outbox.Store) *Service {
	return NewService(repo, blobs, ob, zerolog.Nop())
}

func validMessage() *AudioMessage {
	return &AudioMessage{
		PatientID:  "patient-1",
		ProviderID: "provider-1",
		SenderRole: SenderProvider,
		AudioPath:  "messages/m1.webm",
	}
}

func TestSend_PersistsAndEnqueuesNotification(t *testing.T) {
	repo := &mockRepo{}
	blobs := blobstore.NewMemoryStore()
	ob := outbox.NewMemoryStore()
	if _, err := blobs.Put(context.Background(), "messages/m1.webm", "audio/webm", bytes.NewReader([]byte("voice"))); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(repo, blobs, ob)

	m := validMessage()
	if err := svc.Send(context.Background(), m); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.SizeBytes != int64(len("voice")) {
		t.Errorf("size = %d", m.SizeBytes)
	}

	tasks, err := ob.ClaimDue(context.Background(), time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Kind != TaskNotifyPatient {
		t.Fatalf("expected 1 notify_patient task, got %+v", tasks)
	}

	var payload NotifyPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.MessageID != m.ID || payload.PatientID != "patient-1" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestSend_RunsInsideTxRunner(t *testing.T) {
	repo := &mockRepo{}
	blobs := blobstore.NewMemoryStore()
	ob := outbox.NewMemoryStore()
	ctx := context.Background()
	if _, err := blobs.Put(ctx, "messages/m1.webm", "audio/webm", bytes.NewReader([]byte("voice"))); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(repo, blobs, ob)
	var calls int
	svc.SetTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
		calls++
		return fn(ctx)
	})

	if err := svc.Send(ctx, validMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 transaction, got %d", calls)
	}
	if len(repo.messages) != 1 {
		t.Errorf("expected message persisted inside transaction")
	}
}

func TestSend_TxRunnerErrorSurfaces(t *testing.T) {
	repo := &mockRepo{}
	blobs := blobstore.NewMemoryStore()
	ctx := context.Background()
	if _, err := blobs.Put(ctx, "messages/m1.webm", "audio/webm", bytes.NewReader([]byte("voice"))); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(repo, blobs, outbox.NewMemoryStore())
	txErr := errors.New("commit failed")
	svc.SetTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return txErr
	})

	if err := svc.Send(ctx, validMessage()); !errors.Is(err, txErr) {
		t.Fatalf("expected commit error surfaced, got %v", err)
	}
}

func TestSend_RejectsMissingBlob(t *testing.T) {
	svc := newTestService(&mockRepo{}, blobstore.NewMemoryStore(), outbox.NewMemoryStore())

	err := svc.Send(context.Background(), validMessage())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing blob, got %v", err)
	}
}

func TestSend_RejectsBadSenderRole(t *testing.T) {
	svc := newTestService(&mockRepo{}, blobstore.NewMemoryStore(), outbox.NewMemoryStore())

	m := validMessage()
	m.SenderRole = "nurse"
	if err := svc.Send(context.Background(), m); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListThread_FiltersByPair(t *testing.T) {
	repo := &mockRepo{}
	blobs := blobstore.NewMemoryStore()
	ob := outbox.NewMemoryStore()
	ctx := context.Background()
	if _, err := blobs.Put(ctx, "messages/m1.webm", "audio/webm", bytes.NewReader([]byte("a"))); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(repo, blobs, ob)

	first := validMessage()
	if err := svc.Send(ctx, first); err != nil {
		t.Fatal(err)
	}
	other := validMessage()
	other.ProviderID = "provider-2"
	if err := svc.Send(ctx, other); err != nil {
		t.Fatal(err)
	}

	thread, err := svc.ListThread(ctx, "patient-1", "provider-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 1 || thread[0].ID != first.ID {
		t.Errorf("unexpected thread: %+v", thread)
	}
}

func TestListThread_RequiresBothIDs(t *testing.T) {
	svc := newTestService(&mockRepo{}, blobstore.NewMemoryStore(), outbox.NewMemoryStore())

	if _, err := svc.ListThread(context.Background(), "patient-1", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
