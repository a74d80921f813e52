// Package session holds the single in-memory classification session: the
// current picked image, the submission state machine, and the observers that
// redraw whenever either changes.
package session

import (
	"errors"
	"sync"
)

var (
	// ErrNoImageSelected is returned when a submission is requested before any pick.
	ErrNoImageSelected = errors.New("no image selected")
	// ErrSubmissionInFlight is returned while a classification request is outstanding.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// Observer is notified after state changes, never out of order. Observers
// may read the session but must not mutate it from inside OnStateChange.
// A panicking observer is ignored.
type Observer interface {
	OnStateChange(Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

// OnStateChange calls f(snap).
func (f ObserverFunc) OnStateChange(snap Snapshot) { f(snap) }

// Session is the owned session object shared by the selection and submission
// use cases. All mutation goes through ReplaceImage, Begin and Complete.
type Session struct {
	mu          sync.Mutex
	image       *PickedImage
	state       SubmissionState
	outstanding string
	observers   map[int]Observer
	nextID      int
	seq         uint64

	// delivery serializes notifications; delivered is the last seq sent.
	delivery  sync.Mutex
	delivered uint64
}

// New returns an Idle session with no image.
func New() *Session {
	return &Session{
		state:     Idle(),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Session) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns the current render view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(s.image, s.state)
}

// CurrentImage returns the current pick, if any.
func (s *Session) CurrentImage() (PickedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return PickedImage{}, false
	}
	return *s.image, true
}

// Outstanding reports whether a classification request has been issued and
// has not returned yet, even if a newer pick already reset the state.
func (s *Session) Outstanding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding != ""
}

// ReplaceImage installs a new pick and resets the submission state to Idle,
// dropping any previous result or error. An outstanding request is not
// cancelled; its outcome will be discarded by Complete.
func (s *Session) ReplaceImage(image PickedImage) {
	s.mu.Lock()
	s.image = &image
	s.state = Idle()
	s.publishLocked()
}

// Begin moves the session to InFlight for the current image and returns the
// image the request must be issued for. The state is left untouched when no
// image is selected or a request is already outstanding.
func (s *Session) Begin() (PickedImage, error) {
	s.mu.Lock()
	if s.image == nil {
		s.mu.Unlock()
		return PickedImage{}, ErrNoImageSelected
	}
	if s.outstanding != "" || s.state.Status == StatusInFlight {
		s.mu.Unlock()
		return PickedImage{}, ErrSubmissionInFlight
	}
	image := *s.image
	s.outstanding = image.ID
	s.state = InFlight()
	s.publishLocked()
	return image, nil
}

// Complete ends the outstanding request issued for imageID. The outcome is
// applied only when imageID is still the current pick; otherwise it is stale
// and discarded. It reports whether the outcome was applied.
func (s *Session) Complete(imageID string, outcome SubmissionState) bool {
	s.mu.Lock()
	if s.outstanding == imageID {
		s.outstanding = ""
	}
	if s.image == nil || s.image.ID != imageID || s.state.Status != StatusInFlight {
		s.mu.Unlock()
		return false
	}
	if outcome.Status == StatusInFlight || outcome.Status == StatusIdle {
		outcome = Failed(FailureMalformed, "submission ended without an outcome")
	}
	s.state = outcome
	s.publishLocked()
	return true
}

// publishLocked must be called with s.mu held; it releases it before any
// observer runs, so observers may read the session. Each change carries a
// sequence number and a change overtaken by a newer delivery is dropped.
func (s *Session) publishLocked() {
	s.seq++
	seq := s.seq
	snap := snapshotOf(s.image, s.state)
	observers := make([]Observer, 0, len(s.observers))
	for id := 0; id < s.nextID; id++ {
		if o, ok := s.observers[id]; ok {
			observers = append(observers, o)
		}
	}
	s.mu.Unlock()

	s.delivery.Lock()
	defer s.delivery.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq

	for _, o := range observers {
		notify(o, snap)
	}
}

// notify isolates a panicking observer from the session and the other observers.
func notify(o Observer, snap Snapshot) {
	defer func() { _ = recover() }()
	o.OnStateChange(snap)
}
