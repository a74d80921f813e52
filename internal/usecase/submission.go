package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/skin-check/internal/classifier"
	"github.com/example/skin-check/internal/logging"
	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/repository"
	"github.com/example/skin-check/internal/session"
)

const (
	// UploadFailedMessage is shown for transport failures and unreadable images.
	UploadFailedMessage = "Image upload failed. Please check the server status."
	// MalformedResponseMessage is shown when the service answered with an unusable payload.
	MalformedResponseMessage = "The classification service returned an unreadable result."
	// NoImageNotice is the user-facing text for ErrNoImageSelected.
	NoImageNotice = "Select an image first."

	// MaxImageBytes caps the image read from the source before upload.
	MaxImageBytes = 20 << 20

	journalTimeout = 5 * time.Second
)

var (
	ErrNoImageSelected    = session.ErrNoImageSelected
	ErrSubmissionInFlight = session.ErrSubmissionInFlight
	// ErrStaleResponse is returned when the attempt finished after a newer
	// image was picked; its outcome was discarded.
	ErrStaleResponse = errors.New("classification response is stale")
	// ErrImageTooLarge is the diagnostic cause when the image exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image exceeds upload limit")
)

// AttemptRepository defines the journal operations needed by the submission flow.
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, log *repository.AttemptLog) error
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// SubmissionController runs single classification attempts for the current image.
type SubmissionController struct {
	session *session.Session
	source  picker.Source
	client  classifier.Client
	repo    AttemptRepository
	logger  *zap.Logger
}

// NewSubmissionController constructs a controller. repo may be nil, which
// disables the attempt journal.
func NewSubmissionController(sess *session.Session, source picker.Source, client classifier.Client, repo AttemptRepository, logger *zap.Logger) *SubmissionController {
	return &SubmissionController{
		session: sess,
		source:  source,
		client:  client,
		repo:    repo,
		logger:  logger.Named("submission"),
	}
}

// Completion is delivered once a started submission has finished.
type Completion struct {
	State session.SubmissionState
	Err   error
}

// Submit classifies the current image and waits for the outcome. The session
// enters InFlight before any I/O and leaves it exactly once, on every exit
// path. It returns ErrNoImageSelected or ErrSubmissionInFlight without
// touching the session, and ErrStaleResponse when the outcome arrived for a
// superseded image. Classification failures are not errors: they are
// returned as a Failed state.
func (c *SubmissionController) Submit(ctx context.Context) (session.SubmissionState, error) {
	done, err := c.Start(ctx)
	if err != nil {
		return c.currentState(), err
	}
	completion := <-done
	return completion.State, completion.Err
}

// Start moves the session to InFlight and runs the attempt in the background.
// The returned channel receives exactly one Completion.
func (c *SubmissionController) Start(ctx context.Context) (<-chan Completion, error) {
	image, err := c.session.Begin()
	if err != nil {
		return nil, err
	}

	done := make(chan Completion, 1)
	go func() {
		state, err := c.run(ctx, image)
		done <- Completion{State: state, Err: err}
	}()
	return done, nil
}

func (c *SubmissionController) run(ctx context.Context, image session.PickedImage) (session.SubmissionState, error) {
	submissionID := uuid.NewString()
	opLogger := logging.WithOperation(c.logger, "usecase.submit", image.ID).With(zap.String("submission_id", submissionID))
	opLogger.Info("submission started", zap.String("mime_type", image.MimeType()))

	started := time.Now()
	outcome, cause := c.attempt(ctx, image)
	latency := time.Since(started)

	applied := c.session.Complete(image.ID, outcome)
	c.journal(ctx, submissionID, image, outcome, cause, applied, latency)

	if !applied {
		opLogger.Info("discarding stale classification outcome", zap.String("outcome", string(outcome.Status)))
		return outcome, ErrStaleResponse
	}
	if cause != nil {
		opLogger.Warn("submission failed", zap.Error(cause), zap.String("failure_kind", string(outcome.Failure.Kind)))
	} else {
		opLogger.Info("submission finished", zap.String("outcome", string(outcome.Status)), zap.Duration("latency", latency))
	}
	return outcome, nil
}

func (c *SubmissionController) attempt(ctx context.Context, image session.PickedImage) (outcome session.SubmissionState, cause error) {
	defer func() {
		if r := recover(); r != nil {
			cause = logging.NewOperationError("usecase.submit", image.ID, fmt.Errorf("panic: %v", r))
			outcome = session.Failed(session.FailureTransport, UploadFailedMessage)
		}
	}()

	data, err := c.readImage(ctx, image)
	if err != nil {
		return session.Failed(session.FailureImageUnreadable, UploadFailedMessage), err
	}

	resp, err := c.client.Classify(ctx, classifier.Upload{
		ImageID:     image.ID,
		FileName:    image.FileName(),
		ContentType: image.MimeType(),
		Data:        data,
	})
	switch {
	case errors.Is(err, classifier.ErrMalformedResponse):
		return session.Failed(session.FailureMalformed, MalformedResponseMessage), err
	case err != nil:
		return session.Failed(session.FailureTransport, UploadFailedMessage), err
	}

	if resp.Kind == classifier.KindServiceError {
		return session.Failed(session.FailureService, resp.ServiceError), nil
	}
	return session.Succeeded(session.ClassificationResult{Label: resp.Label, Confidence: resp.Confidence}), nil
}

func (c *SubmissionController) readImage(ctx context.Context, image session.PickedImage) ([]byte, error) {
	rc, err := c.source.Open(ctx, image.URI)
	if err != nil {
		return nil, logging.NewOperationError("usecase.open_image", image.ID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, logging.NewOperationError("usecase.read_image", image.ID, err)
	}
	if len(data) > MaxImageBytes {
		return nil, logging.NewOperationError("usecase.read_image", image.ID, ErrImageTooLarge)
	}
	return data, nil
}

func (c *SubmissionController) journal(ctx context.Context, submissionID string, image session.PickedImage, outcome session.SubmissionState, cause error, applied bool, latency time.Duration) {
	if c.repo == nil {
		return
	}

	entry := &repository.AttemptLog{
		SubmissionID: submissionID,
		ImageID:      image.ID,
		Extension:    image.Extension,
		Outcome:      string(outcome.Status),
		Applied:      applied,
		LatencyMs:    latency.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if outcome.Result != nil {
		entry.Label = outcome.Result.DisplayLabel()
		entry.Confidence = outcome.Result.Confidence
	}
	if outcome.Failure != nil {
		entry.FailureKind = string(outcome.Failure.Kind)
		entry.Message = outcome.Failure.Message
	}
	if cause != nil {
		entry.Diagnostic = cause.Error()
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := c.repo.SaveAttempt(saveCtx, entry); err != nil {
		logging.WithOperation(c.logger, "usecase.journal", image.ID).Error("failed to persist submission attempt", zap.Error(err))
	}
}

func (c *SubmissionController) currentState() session.SubmissionState {
	snap := c.session.Snapshot()
	state := session.SubmissionState{Status: snap.State, Result: snap.Result}
	if snap.ErrorMessage != "" {
		state.Failure = &session.Failure{Kind: snap.FailureKind, Message: snap.ErrorMessage}
	}
	return state
}
