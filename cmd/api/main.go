package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/collegecompass/api/internal/auth"
	"github.com/collegecompass/api/internal/blog"
	"github.com/collegecompass/api/internal/config"
	"github.com/collegecompass/api/internal/contact"
	"github.com/collegecompass/api/internal/course"
	"github.com/collegecompass/api/internal/db"
	"github.com/collegecompass/api/internal/exam"
	internalhttp "github.com/collegecompass/api/internal/http"
	"github.com/collegecompass/api/internal/note"
	"github.com/collegecompass/api/internal/payment"
	"github.com/collegecompass/api/internal/storage"
	"github.com/collegecompass/api/internal/upload"
	"github.com/collegecompass/api/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api stopped with error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	imageStore := buildImageStore(cfg.Storage)
	driveStore := buildDriveStore(ctx, cfg.Storage)

	router := upload.NewRouter(upload.DefaultRules(driveStore, imageStore))

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	userRepo := user.NewRepository(pool)
	userService := user.NewService(userRepo, redisClient, jwtManager, cfg.JWTRefreshTTL)

	noteRepo := note.NewRepository(pool)
	noteCoordinator := upload.NewCoordinator[note.Note, note.Draft](noteRepo, router, cfg.DedupWindow, log.Logger)

	blogRepo := blog.NewRepository(pool)
	blogCoordinator := upload.NewCoordinator[blog.Blog, blog.Draft](blogRepo, router, cfg.DedupWindow, log.Logger)

	courseRepo := course.NewRepository(pool)
	examRepo := exam.NewRepository(pool)
	paymentService := payment.NewService(courseRepo, userRepo, redisClient, cfg.PaymentSecret)
	mailer := contact.NewMailer(cfg.SMTP)

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:   cfg,
		Users:    userService,
		Accounts: userRepo,
		Notes:    noteCoordinator,
		NoteRepo: noteRepo,
		Blogs:    blogCoordinator,
		BlogRepo: blogRepo,
		Courses:  courseRepo,
		Exams:    examRepo,
		Payments: paymentService,
		Mailer:   mailer,
		Stats:    internalhttp.NewStatsRepository(pool),
		DB:       pool,
		Redis:    redisClient,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API listening on :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildImageStore(cfg config.StorageConfig) storage.BlobStore {
	switch cfg.ImageProvider {
	case "s3", "r2":
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicDomain: cfg.S3PublicURL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("image store misconfigured, disabling image uploads")
			return storage.NoopStore{}
		}
		return store
	default:
		log.Warn().Msg("image store disabled")
		return storage.NoopStore{}
	}
}

func buildDriveStore(ctx context.Context, cfg config.StorageConfig) storage.BlobStore {
	if cfg.DriveEmail == "" || cfg.DrivePassword == "" {
		log.Warn().Msg("drive account not configured, document uploads disabled")
		return storage.NoopStore{}
	}

	drive, err := storage.NewDriveStore(storage.DriveConfig{
		APIBase:  cfg.DriveAPIBase,
		Email:    cfg.DriveEmail,
		Password: cfg.DrivePassword,
	})
	if err != nil {
		log.Warn().Err(err).Msg("drive store misconfigured, document uploads disabled")
		return storage.NoopStore{}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := drive.Connect(connectCtx); err != nil {
		// The store stays wired in; uploads fail as unavailable while the
		// retry loop keeps trying to bring the session up.
		log.Error().Err(err).Msg("drive session not established, retrying in background")
		go retryDriveConnect(ctx, drive)
	}
	return drive
}

func retryDriveConnect(ctx context.Context, drive *storage.DriveStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := drive.Connect(connectCtx)
		cancel()
		if err == nil {
			log.Info().Msg("drive session established")
			return
		}
		log.Error().Err(err).Msg("drive session not established")
	}
}
