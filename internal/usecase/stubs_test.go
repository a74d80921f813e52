package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/example/skin-check/internal/classifier"
	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/repository"
	"github.com/example/skin-check/internal/session"
)

type stubPermission struct {
	status picker.PermissionStatus
	err    error
	calls  int
}

func (s *stubPermission) RequestGalleryAccess(ctx context.Context) (picker.PermissionStatus, error) {
	s.calls++
	return s.status, s.err
}

type stubPicker struct {
	result picker.Result
	err    error
	calls  int
	opts   picker.Options
}

func (s *stubPicker) PickImage(ctx context.Context, opts picker.Options) (picker.Result, error) {
	s.calls++
	s.opts = opts
	return s.result, s.err
}

type stubSource struct {
	err     error
	opened  []string
	content string
}

func (s *stubSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.opened = append(s.opened, locator)
	if s.err != nil {
		return nil, s.err
	}
	content := s.content
	if content == "" {
		content = "image-bytes"
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// stubClassifier decodes body through the real decoder, or returns err.
type stubClassifier struct {
	mu      sync.Mutex
	body    string
	err     error
	calls   int
	uploads []classifier.Upload
	onCall  func()
	panics  bool
}

func (s *stubClassifier) Classify(ctx context.Context, upload classifier.Upload) (classifier.Response, error) {
	s.mu.Lock()
	s.calls++
	s.uploads = append(s.uploads, upload)
	onCall := s.onCall
	s.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if s.panics {
		panic("decoder exploded")
	}
	if s.err != nil {
		return classifier.Response{}, s.err
	}
	return classifier.Decode([]byte(s.body))
}

func (s *stubClassifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubRepository struct {
	mu      sync.Mutex
	saved   []*repository.AttemptLog
	saveErr error
	agg     *repository.MetricsAggregation
	aggErr  error
}

func (s *stubRepository) SaveAttempt(ctx context.Context, log *repository.AttemptLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, log)
	return s.saveErr
}

func (s *stubRepository) AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error) {
	if s.aggErr != nil {
		return nil, s.aggErr
	}
	if s.agg == nil {
		return nil, errors.New("no aggregation")
	}
	return s.agg, nil
}

type stateRecorder struct {
	mu    sync.Mutex
	snaps []session.Snapshot
}

func (r *stateRecorder) OnStateChange(s session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *stateRecorder) count(status session.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.snaps {
		if s.State == status {
			n++
		}
	}
	return n
}
