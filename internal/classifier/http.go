package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/example/skin-check/internal/logging"
)

const (
	// DefaultTimeout bounds a single classification attempt.
	DefaultTimeout = 30 * time.Second

	formField        = "file"
	maxResponseBytes = 1 << 20
)

// HTTPClient posts a single-part multipart body to the classification endpoint.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient returns a client for endpoint. A non-positive timeout uses DefaultTimeout.
func NewHTTPClient(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("classifier"),
	}
}

// Classify issues exactly one POST; it never retries.
func (c *HTTPClient) Classify(ctx context.Context, upload Upload) (Response, error) {
	opLogger := logging.WithOperation(c.logger, "classifier.classify", upload.ImageID)

	body, contentType, err := buildMultipartBody(upload)
	if err != nil {
		return Response{}, logging.NewOperationError("classifier.build_body", upload.ImageID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Response{}, logging.NewOperationError("classifier.new_request", upload.ImageID, fmt.Errorf("%w: %v", ErrTransport, err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("classifier.post", upload.ImageID, fmt.Errorf("%w: %v", ErrTransport, err))
		opLogger.Error("classification request failed", zap.Error(wrapped))
		return Response{}, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		wrapped := logging.NewOperationError("classifier.post", upload.ImageID, &StatusError{StatusCode: resp.StatusCode})
		opLogger.Error("classification service returned an error status", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return Response{}, wrapped
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		wrapped := logging.NewOperationError("classifier.read_body", upload.ImageID, fmt.Errorf("%w: %v", ErrTransport, err))
		opLogger.Error("failed to read classification response", zap.Error(wrapped))
		return Response{}, wrapped
	}

	decoded, err := Decode(data)
	if err != nil {
		wrapped := logging.NewOperationError("classifier.decode", upload.ImageID, err)
		opLogger.Warn("malformed classification response", zap.Error(wrapped))
		return Response{}, wrapped
	}

	opLogger.Debug("classification response received", zap.Duration("latency", time.Since(started)))
	return decoded, nil
}

func buildMultipartBody(upload Upload) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, upload.FileName))
	header.Set("Content-Type", upload.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
