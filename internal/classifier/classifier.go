package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransport covers connection failures, timeouts and non-2xx statuses.
	ErrTransport = errors.New("classification transport failed")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded into
	// either a result or a service error.
	ErrMalformedResponse = errors.New("malformed classification response")
)

// StatusError reports a non-success HTTP status from the service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Is makes every StatusError match ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// Upload is the single image part sent to the service.
type Upload struct {
	ImageID     string
	FileName    string
	ContentType string
	Data        []byte
}

// ResponseKind tells which variant a decoded Response holds.
type ResponseKind int

const (
	KindResult ResponseKind = iota
	KindServiceError
)

// Response is the decoded service payload: either a result or a service error.
type Response struct {
	Kind         ResponseKind
	Label        *string
	Confidence   float64
	ServiceError string
}

// Client exposes the subset of functionality used by the submission flow.
type Client interface {
	Classify(ctx context.Context, upload Upload) (Response, error)
}

type wirePayload struct {
	Class      json.RawMessage `json:"class"`
	Confidence *float64        `json:"confidence"`
	Error      *string         `json:"error"`
}

// Decode turns a success body into a Response. A non-empty "error" field wins
// over everything else; otherwise "confidence" must be a number in [0,1].
// "class" is optional: null or a non-string value leaves the label absent.
func Decode(body []byte) (Response, error) {
	var payload wirePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if payload.Error != nil && *payload.Error != "" {
		return Response{Kind: KindServiceError, ServiceError: *payload.Error}, nil
	}

	if payload.Confidence == nil {
		return Response{}, fmt.Errorf("%w: confidence missing", ErrMalformedResponse)
	}
	confidence := *payload.Confidence
	if confidence < 0 || confidence > 1 {
		return Response{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedResponse, confidence)
	}

	resp := Response{Kind: KindResult, Confidence: confidence}
	var label *string
	if len(payload.Class) > 0 && json.Unmarshal(payload.Class, &label) == nil {
		resp.Label = label
	}
	return resp, nil
}
