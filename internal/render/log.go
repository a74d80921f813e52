package render

import (
	"go.uber.org/zap"

	"github.com/example/skin-check/internal/session"
)

// LogRenderer writes every state change as a structured log line.
type LogRenderer struct {
	logger *zap.Logger
}

// NewLogRenderer returns a LogRenderer using logger.
func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger.Named("render")}
}

// OnStateChange implements session.Observer.
func (r *LogRenderer) OnStateChange(snap session.Snapshot) {
	v := Format(snap)
	fields := []zap.Field{zap.String("state", string(snap.State))}
	if snap.Image != nil {
		fields = append(fields, zap.String("image_id", snap.Image.ID))
	}
	if v.Label != "" {
		fields = append(fields, zap.String("label", v.Label), zap.String("confidence", v.Confidence))
	}
	if v.Error != "" {
		fields = append(fields, zap.String("error", v.Error), zap.String("failure_kind", string(snap.FailureKind)))
	}
	r.logger.Info("session state changed", fields...)
}
