package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/muhammadolammi/polypopcareers/internal/config"
	"github.com/muhammadolammi/polypopcareers/internal/database"
	"github.com/muhammadolammi/polypopcareers/internal/events"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
	"github.com/spf13/afero"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

// run wires the store and the optional dispatcher sinks, then serves until
// ctx is cancelled.
func run(ctx context.Context, env *config.Env) error {
	logger := logging.New(env.Debug)
	if env.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := newStore(ctx, env)
	if err != nil {
		logger.Error("failed to set up resume storage", "backend", env.StorageBackend, "err", err)
		return err
	}

	dispatchCfg := DispatcherConfig{
		Store:          store,
		Logger:         logger,
		QueueSize:      env.DispatchQueue,
		MaxResumeBytes: env.MaxUploadBytes,
		EventTimeout:   env.DispatchTimeout,
	}
	if !env.DispatchEnabled() {
		logger.Info("post-upload dispatch disabled, set DB_URL or RABBITMQ_URL to enable it")
	}
	if env.DBURL != "" {
		db, err := sql.Open("postgres", env.DBURL)
		if err != nil {
			return fmt.Errorf("error opening db: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("error reaching db: %w", err)
		}
		dispatchCfg.Recorder = database.New(db)
		logger.Info("application records enabled")
	}
	if env.RabbitMQURL != "" {
		publisher, err := events.Dial(env.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		dispatchCfg.Publisher = publisher
	}

	dispatcher := NewDispatcher(dispatchCfg)
	dispatcher.Start(env.DispatchWorkers)

	cfg := &ServerConfig{
		Env:        env,
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	return cfg.serve(ctx)
}

func newStore(ctx context.Context, env *config.Env) (storage.Store, error) {
	if env.StorageBackend == config.BackendS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        env.S3Bucket,
			Region:        env.AWSRegion,
			Endpoint:      env.S3Endpoint,
			ACL:           env.S3ACL,
			PublicBaseURL: env.S3PublicBaseURL,
			R2AccountID:   env.R2AccountID,
			R2AccessKey:   env.R2AccessKey,
			R2SecretKey:   env.R2SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := storage.NewLocalStore(afero.NewOsFs(), env.UploadDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}
