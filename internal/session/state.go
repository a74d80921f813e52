package session

import "fmt"

// Status names the active variant of a SubmissionState.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusInFlight  Status = "in_flight"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FailureKind classifies why a submission ended in the Failed state.
type FailureKind string

const (
	FailureTransport       FailureKind = "transport"
	FailureService         FailureKind = "service"
	FailureMalformed       FailureKind = "malformed"
	FailureImageUnreadable FailureKind = "image_unreadable"
)

const unknownLabel = "unknown"

// ClassificationResult is produced only by a fully decoded service response.
type ClassificationResult struct {
	Label      *string `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DisplayLabel renders a missing label as "unknown".
func (r ClassificationResult) DisplayLabel() string {
	if r.Label == nil || *r.Label == "" {
		return unknownLabel
	}
	return *r.Label
}

// DisplayConfidence renders the confidence as a percentage with two decimals.
func (r ClassificationResult) DisplayConfidence() string {
	return fmt.Sprintf("%.2f%%", r.Confidence*100)
}

// Failure describes a Failed submission.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// SubmissionState is a tagged variant; exactly one of Result or Failure is
// set, and only for the Succeeded and Failed statuses respectively.
type SubmissionState struct {
	Status  Status
	Result  *ClassificationResult
	Failure *Failure
}

// Idle is the state of a fresh session and of every new pick.
func Idle() SubmissionState {
	return SubmissionState{Status: StatusIdle}
}

// InFlight marks an issued request whose outcome is not processed yet.
func InFlight() SubmissionState {
	return SubmissionState{Status: StatusInFlight}
}

// Succeeded wraps a decoded classification.
func Succeeded(result ClassificationResult) SubmissionState {
	return SubmissionState{Status: StatusSucceeded, Result: &result}
}

// Failed wraps a user-safe message.
func Failed(kind FailureKind, message string) SubmissionState {
	return SubmissionState{Status: StatusFailed, Failure: &Failure{Kind: kind, Message: message}}
}

// Snapshot is what render collaborators receive on every change.
type Snapshot struct {
	Image        *PickedImage          `json:"image,omitempty"`
	State        Status                `json:"state"`
	Result       *ClassificationResult `json:"result,omitempty"`
	ErrorMessage string                `json:"error,omitempty"`
	FailureKind  FailureKind           `json:"failure_kind,omitempty"`
}

func snapshotOf(image *PickedImage, state SubmissionState) Snapshot {
	snap := Snapshot{State: state.Status}
	if image != nil {
		img := *image
		snap.Image = &img
	}
	if state.Result != nil {
		result := *state.Result
		snap.Result = &result
	}
	if state.Failure != nil {
		snap.ErrorMessage = state.Failure.Message
		snap.FailureKind = state.Failure.Kind
	}
	return snap
}
