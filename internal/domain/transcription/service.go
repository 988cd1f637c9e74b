package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/platform/blobstore"
	"github.com/mindwell/mindwell/internal/platform/speech"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrVendor marks transcription vendor failures, mapped to 502.
var ErrVendor = errors.New("transcription vendor error")

type Service struct {
	repo        Repository
	blobs       blobstore.Store
	transcriber speech.Transcriber
	prober      speech.DurationProber
	logger      zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, transcriber speech.Transcriber, prober speech.DurationProber, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		blobs:       blobs,
		transcriber: transcriber,
		prober:      prober,
		logger:      logger,
	}
}

// Transcribe drives the per-intake job state machine. An existing processing
// row short-circuits with its status; a completed row returns the cached
// transcript; a failed row is atomically reset and retried. Otherwise a new
// processing row is claimed and the audio is downloaded, probed, and sent to
// the vendor.
func (s *Service) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResult, error) {
	if req.IntakeID == uuid.Nil {
		return nil, fmt.Errorf("%w: intake_id is required", ErrValidation)
	}
	if strings.TrimSpace(req.CombinedAudioPath) == "" {
		return nil, fmt.Errorf("%w: combined_audio_path is required", ErrValidation)
	}

	job := &TranscriptJob{
		IntakeID:       req.IntakeID,
		ConversationID: req.ConversationID,
		AudioPath:      req.CombinedAudioPath,
	}
	claimed, err := s.repo.Claim(ctx, job)
	if err != nil {
		return nil, err
	}
	if !claimed {
		existing, err := s.repo.GetByIntakeID(ctx, req.IntakeID)
		if err != nil {
			return nil, fmt.Errorf("reading existing transcript job: %w", err)
		}
		switch existing.Status {
		case StatusProcessing:
			return &TranscribeResult{IntakeID: req.IntakeID, Status: StatusProcessing}, nil
		case StatusCompleted:
			return &TranscribeResult{
				IntakeID:        req.IntakeID,
				Status:          StatusCompleted,
				Transcript:      existing.Transcript,
				DurationSeconds: existing.DurationSeconds,
			}, nil
		case StatusFailed:
			reset, err := s.repo.ResetFailed(ctx, req.IntakeID, req.CombinedAudioPath)
			if err != nil {
				return nil, err
			}
			if !reset {
				// Another request won the reset race; report processing.
				return &TranscribeResult{IntakeID: req.IntakeID, Status: StatusProcessing}, nil
			}
		default:
			return nil, fmt.Errorf("transcript job in unexpected status %q", existing.Status)
		}
	}

	return s.run(ctx, req)
}

// run performs the download-probe-transcribe pipeline against a row this
// request owns in the processing state.
func (s *Service) run(ctx context.Context, req *TranscribeRequest) (*TranscribeResult, error) {
	audio, err := s.download(ctx, req.CombinedAudioPath)
	if err != nil {
		s.fail(ctx, req.IntakeID, err.Error())
		return nil, fmt.Errorf("downloading audio: %w", err)
	}

	// Duration probing is best-effort: a decode failure degrades to 0.
	var duration float64
	if s.prober != nil {
		duration, err = s.prober.Duration(ctx, audio)
		if err != nil {
			s.logger.Warn().Err(err).Str("intake_id", req.IntakeID.String()).
				Msg("audio duration probe failed, recording 0")
			duration = 0
		}
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, fileName(req.CombinedAudioPath))
	if err != nil {
		s.fail(ctx, req.IntakeID, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrVendor, err)
	}

	if err := s.repo.MarkCompleted(ctx, req.IntakeID, transcript, duration); err != nil {
		return nil, fmt.Errorf("completing transcript job: %w", err)
	}

	return &TranscribeResult{
		IntakeID:        req.IntakeID,
		Status:          StatusCompleted,
		Transcript:      transcript,
		DurationSeconds: duration,
	}, nil
}

func (s *Service) download(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.blobs.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, blobstore.MaxBlobSize))
}

// fail records the failure but never masks the original error.
func (s *Service) fail(ctx context.Context, intakeID uuid.UUID, message string) {
	if err := s.repo.MarkFailed(ctx, intakeID, message); err != nil {
		s.logger.Error().Err(err).Str("intake_id", intakeID.String()).
			Msg("failed to mark transcript job failed")
	}
}

// GetByIntakeID returns the job row for status polling.
func (s *Service) GetByIntakeID(ctx context.Context, intakeID uuid.UUID) (*TranscriptJob, error) {
	return s.repo.GetByIntakeID(ctx, intakeID)
}

func fileName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
