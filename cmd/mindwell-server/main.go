package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mindwell/mindwell/internal/config"
	"github.com/mindwell/mindwell/internal/domain/community"
	"github.com/mindwell/mindwell/internal/domain/conversation"
	"github.com/mindwell/mindwell/internal/domain/handoff"
	"github.com/mindwell/mindwell/internal/domain/intake"
	"github.com/mindwell/mindwell/internal/domain/messaging"
	"github.com/mindwell/mindwell/internal/domain/profile"
	"github.com/mindwell/mindwell/internal/domain/transcription"
	"github.com/mindwell/mindwell/internal/platform/auth"
	"github.com/mindwell/mindwell/internal/platform/blobstore"
	"github.com/mindwell/mindwell/internal/platform/db"
	"github.com/mindwell/mindwell/internal/platform/llm"
	"github.com/mindwell/mindwell/internal/platform/middleware"
	"github.com/mindwell/mindwell/internal/platform/outbox"
	"github.com/mindwell/mindwell/internal/platform/speech"
)

// sessionEnsurerAdapter adapts the intake service to the
// conversation.SessionEnsurer interface, avoiding circular imports between
// the intake and conversation packages.
type sessionEnsurerAdapter struct {
	intake *intake.Service
}

func (a *sessionEnsurerAdapter) EnsureSession(ctx context.Context, userID string, conversationID uuid.UUID) (conversation.SessionInfo, error) {
	s, err := a.intake.EnsureSession(ctx, userID, conversationID)
	if err != nil {
		return conversation.SessionInfo{}, err
	}
	return conversation.SessionInfo{ID: s.ID, AccessCode: s.AccessCode}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mindwell-server",
		Short: "Mindwell telehealth API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Mindwell API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Roll forward with a new migration instead.")
			return nil
		},
	})

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Audio blob storage: S3 when a bucket is configured, in-memory otherwise.
	var blobs blobstore.Store
	if cfg.AudioBucket != "" {
		s3Store, err := blobstore.NewS3Store(ctx, cfg.AWSRegion, cfg.AudioBucket)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize S3 blob store")
		}
		blobs = s3Store
		logger.Info().Str("bucket", cfg.AudioBucket).Msg("using S3 audio storage")
	} else {
		blobs = blobstore.NewMemoryStore()
		logger.Warn().Msg("AUDIO_BUCKET not set; audio blobs will not survive restart")
	}

	// LLM client for profile enrichment and warm handoffs
	completer, err := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		APIKey:  cfg.LLMAPIKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM client")
	}

	// Speech-to-text vendor client and local duration prober
	transcriber := speech.NewClient(speech.ClientConfig{
		BaseURL: cfg.STTBaseURL,
		APIKey:  cfg.STTAPIKey,
		Model:   cfg.STTModel,
	})
	prober := speech.NewFFprobeProber(cfg.FFprobePath)

	// Repositories
	intakeRepo := intake.NewRepoPG(pool)
	convRepo := conversation.NewRepoPG(pool)
	transcriptRepo := transcription.NewRepoPG(pool)
	profileRepo := profile.NewRepoPG(pool)
	handoffRepo := handoff.NewRepoPG(pool)
	communityRepo := community.NewRepoPG(pool)
	messagingRepo := messaging.NewRepoPG(pool)
	outboxStore := outbox.NewStore(pool)

	// Services. Intake and conversation depend on each other (intake
	// bootstraps conversations, conversations ensure intake sessions), so
	// the session ensurer is attached after both are constructed.
	profileSvc := profile.NewService(profileRepo, convRepo, completer, logger)
	convSvc := conversation.NewService(convRepo, profileSvc, logger)
	intakeSvc := intake.NewService(intakeRepo, convSvc, logger)
	convSvc.SetSessionEnsurer(&sessionEnsurerAdapter{intake: intakeSvc})

	transcriptSvc := transcription.NewService(transcriptRepo, blobs, transcriber, prober, logger)
	handoffSvc := handoff.NewService(handoffRepo, profileSvc, completer, logger)
	communitySvc := community.NewService(communityRepo, logger)
	messagingSvc := messaging.NewService(messagingRepo, blobs, outboxStore, logger)
	messagingSvc.SetTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})

	// Outbox dispatcher delivers patient notifications in the background.
	dispatcher := outbox.NewDispatcher(outboxStore, logger, outbox.WithPollInterval(cfg.OutboxInterval))
	dispatcher.Register(messaging.TaskNotifyPatient, func(ctx context.Context, task *outbox.Task) error {
		var p messaging.NotifyPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return fmt.Errorf("malformed notify payload: %w", err)
		}
		// Push delivery is not wired yet; the log line is the delivery
		// record until a provider is configured.
		logger.Info().
			Str("message_id", p.MessageID.String()).
			Str("patient_id", p.PatientID).
			Str("sender_role", p.SenderRole).
			Msg("patient notified of new audio message")
		return nil
	})
	dispatchCtx, dispatchCancel := context.WithCancel(context.Background())
	defer dispatchCancel()
	go dispatcher.Run(dispatchCtx)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("30M"))
	e.Use(middleware.RequestTimeout(30*time.Second, "/api/v1/provider/transcribe-intake-audio"))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}))
	}

	// API groups. Provider routes carry a role guard plus a rate limit:
	// access-code validation must not be brute-forceable.
	apiV1 := e.Group("/api/v1")
	provider := apiV1.Group("/provider",
		auth.RequireRole("provider"),
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
	)

	// Routes
	intake.NewHandler(intakeSvc, logger).RegisterRoutes(apiV1, provider)
	conversation.NewHandler(convSvc, logger).RegisterRoutes(apiV1)
	transcriptHandler := transcription.NewHandler(transcriptSvc, logger)
	transcriptHandler.SetBudget(cfg.TranscribeTimeout)
	transcriptHandler.RegisterRoutes(provider)
	profile.NewHandler(profileSvc, logger).RegisterRoutes(apiV1)
	handoff.NewHandler(handoffSvc, logger).RegisterRoutes(apiV1)
	community.NewHandler(communitySvc, logger).RegisterRoutes(apiV1)
	messaging.NewHandler(messagingSvc, logger).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	dispatchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
