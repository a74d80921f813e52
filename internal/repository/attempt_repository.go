package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/skin-check/internal/logging"
)

// AttemptLog is the diagnostic journal entry for one finished submission
// attempt. Entries are written for operators and never read back into a session.
type AttemptLog struct {
	ID           uint      `gorm:"primaryKey"`
	SubmissionID string    `gorm:"column:submission_id;uniqueIndex;size:64"`
	ImageID      string    `gorm:"column:image_id;index;size:64"`
	Extension    string    `gorm:"column:extension;size:16"`
	Outcome      string    `gorm:"column:outcome;size:16"`
	FailureKind  string    `gorm:"column:failure_kind;size:32"`
	Label        string    `gorm:"column:label;size:128"`
	Confidence   float64   `gorm:"column:confidence"`
	Message      string    `gorm:"column:message;type:text"`
	Diagnostic   string    `gorm:"column:diagnostic;type:text"`
	Applied      bool      `gorm:"column:applied"`
	LatencyMs    int64     `gorm:"column:latency_ms"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (AttemptLog) TableName() string {
	return "submission_attempts"
}

// MetricsAggregation is the raw aggregate over the journal.
type MetricsAggregation struct {
	TotalCount        int64
	SucceededCount    int64
	FailedCount       int64
	StaleCount        int64
	AverageConfidence float64
	AverageLatencyMs  float64
}

// AttemptRepository provides persistence APIs for the attempt journal.
type AttemptRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewAttemptRepository creates a new repository instance.
func NewAttemptRepository(db *gorm.DB, logger *zap.Logger) *AttemptRepository {
	return &AttemptRepository{
		db:             db,
		logger:         logger.Named("attempt_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *AttemptRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&AttemptLog{})
}

// SaveAttempt persists a journal entry, retrying transient database errors.
func (r *AttemptRepository) SaveAttempt(ctx context.Context, log *AttemptLog) error {
	return r.executeWithRetry(ctx, "repository.save_attempt", log.ImageID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// AggregateMetrics summarises every journal entry.
func (r *AttemptRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&AttemptLog{}).
			Select(`COUNT(*) AS total_count,
				COALESCE(SUM(CASE WHEN applied AND outcome = 'succeeded' THEN 1 ELSE 0 END), 0) AS succeeded_count,
				COALESCE(SUM(CASE WHEN applied AND outcome = 'failed' THEN 1 ELSE 0 END), 0) AS failed_count,
				COALESCE(SUM(CASE WHEN applied THEN 0 ELSE 1 END), 0) AS stale_count,
				COALESCE(AVG(CASE WHEN outcome = 'succeeded' THEN confidence END), 0) AS average_confidence,
				COALESCE(AVG(latency_ms), 0) AS average_latency_ms`).
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *AttemptRepository) executeWithRetry(ctx context.Context, operation, imageID string, fn func() error) error {
	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, imageID)
	attempts := r.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, imageID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == attempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, imageID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, imageID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
