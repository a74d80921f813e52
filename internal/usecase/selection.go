package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/skin-check/internal/logging"
	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/session"
)

// ErrPermissionDenied is returned when gallery access is not granted. The
// caller is expected to show PermissionDeniedNotice; the session is untouched.
var ErrPermissionDenied = errors.New("gallery permission denied")

// PermissionDeniedNotice is the user-facing text for ErrPermissionDenied.
const PermissionDeniedNotice = "Gallery access is required to select an image."

// SelectionStatus tells whether a selection produced an image.
type SelectionStatus int

const (
	Selected SelectionStatus = iota
	NoSelection
)

// Selection is the outcome of RequestImage.
type Selection struct {
	Status SelectionStatus
	Image  session.PickedImage
}

// SelectionManager obtains images from the picker and installs them in the session.
type SelectionManager struct {
	session    *session.Session
	permission picker.PermissionRequester
	picker     picker.Picker
	logger     *zap.Logger
}

// NewSelectionManager constructs a selection manager bound to a session.
func NewSelectionManager(sess *session.Session, permission picker.PermissionRequester, p picker.Picker, logger *zap.Logger) *SelectionManager {
	return &SelectionManager{
		session:    sess,
		permission: permission,
		picker:     p,
		logger:     logger.Named("selection"),
	}
}

// RequestImage asks for gallery access, then for an image. A cancelled pick
// returns NoSelection with a nil error and leaves the session as it was. A
// completed pick replaces the current image and resets the submission state.
func (m *SelectionManager) RequestImage(ctx context.Context) (Selection, error) {
	opLogger := logging.WithOperation(m.logger, "usecase.request_image", "")

	status, err := m.permission.RequestGalleryAccess(ctx)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.request_gallery_access", "", err)
		opLogger.Error("permission request failed", zap.Error(wrapped))
		return Selection{}, wrapped
	}
	if status != picker.Granted {
		opLogger.Info("gallery access denied")
		return Selection{}, ErrPermissionDenied
	}

	res, err := m.picker.PickImage(ctx, picker.SelectionOptions())
	if err != nil {
		wrapped := logging.NewOperationError("usecase.pick_image", "", err)
		opLogger.Warn("image picker failed", zap.Error(wrapped))
		return Selection{}, wrapped
	}
	if res.Canceled {
		opLogger.Debug("image selection cancelled")
		return Selection{Status: NoSelection}, nil
	}

	image := session.NewPickedImage(res.Locator)
	m.session.ReplaceImage(image)
	opLogger.Info("image selected",
		zap.String("image_id", image.ID),
		zap.String("mime_type", image.MimeType()),
	)
	return Selection{Status: Selected, Image: image}, nil
}
