package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/skin-check/internal/classifier"
	"github.com/example/skin-check/internal/config"
	"github.com/example/skin-check/internal/logging"
	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/render"
	"github.com/example/skin-check/internal/repository"
	"github.com/example/skin-check/internal/session"
	"github.com/example/skin-check/internal/usecase"
)

// app is the wired session shared by the commands.
type app struct {
	cfg         config.Config
	logger      *zap.Logger
	session     *session.Session
	permission  picker.PermissionRequester
	submissions *usecase.SubmissionController
	closers     []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		session:    session.New(),
		permission: picker.DirectoryPermission{Root: cfg.GalleryRoot},
	}
	a.closers = append(a.closers, func() { _ = logger.Sync() })
	a.session.Subscribe(render.NewLogRenderer(logger))

	var repo usecase.AttemptRepository
	if cfg.DatabaseDSN != "" {
		attemptRepo, closeDB, err := initJournal(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, closeDB)
		repo = attemptRepo
	}

	if cfg.RedisAddr != "" {
		redisClient, err := initRedis(ctx, cfg.RedisAddr)
		if err != nil {
			a.close()
			return nil, err
		}
		pubCtx, cancel := context.WithCancel(context.Background())
		pub := render.NewSnapshotPublisher(render.NewRedisPublisher(redisClient), cfg.RedisChannel, logger)
		go pub.Run(pubCtx)
		a.session.Subscribe(pub)
		a.closers = append(a.closers, func() {
			cancel()
			_ = redisClient.Close()
		})
	}

	client := classifier.NewHTTPClient(cfg.EndpointURL, cfg.RequestTimeout(), logger)
	a.submissions = usecase.NewSubmissionController(a.session, picker.FileSource{}, client, repo, logger)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func initJournal(ctx context.Context, dsn string, logger *zap.Logger) (*repository.AttemptRepository, func(), error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, nil, logging.NewOperationError("journal.connect", "", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, logging.NewOperationError("journal.db_handle", "", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, logging.NewOperationError("journal.ping", "", err)
	}

	repo := repository.NewAttemptRepository(db, logger)
	if err := repo.AutoMigrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, logging.NewOperationError("journal.migrate", "", err)
	}
	return repo, func() { _ = sqlDB.Close() }, nil
}

func initRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, logging.NewOperationError("redis.ping", "", err)
	}
	return client, nil
}
