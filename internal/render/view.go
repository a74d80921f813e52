// Package render contains the render collaborators that subscribe to a
// session: a text view for terminals, a structured-log renderer and a Redis
// publisher for remote UI shells.
package render

import (
	"strings"

	"github.com/example/skin-check/internal/session"
)

// AnalyzingText is displayed while a submission is in flight.
const AnalyzingText = "Analyzing..."

// View is the presentation of a snapshot.
type View struct {
	ImageURI   string `json:"image_uri,omitempty"`
	Spinner    bool   `json:"spinner"`
	Status     string `json:"status,omitempty"`
	Label      string `json:"label,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Format turns a snapshot into display directives. The result is shown only
// when there is no error, and the error only when the state is Failed.
func Format(snap session.Snapshot) View {
	var v View
	if snap.Image != nil {
		v.ImageURI = snap.Image.URI
	}
	switch snap.State {
	case session.StatusInFlight:
		v.Spinner = true
		v.Status = AnalyzingText
	case session.StatusFailed:
		v.Error = snap.ErrorMessage
	case session.StatusSucceeded:
		if snap.Result != nil {
			v.Label = snap.Result.DisplayLabel()
			v.Confidence = snap.Result.DisplayConfidence()
		}
	}
	return v
}

// String renders the view as terminal text.
func (v View) String() string {
	var b strings.Builder
	if v.ImageURI != "" {
		b.WriteString("Image: " + v.ImageURI + "\n")
	}
	if v.Spinner {
		b.WriteString(v.Status + "\n")
	}
	if v.Error != "" {
		b.WriteString("Error: " + v.Error + "\n")
	}
	if v.Label != "" {
		b.WriteString("Prediction\n")
		b.WriteString("  Condition:  " + v.Label + "\n")
		b.WriteString("  Confidence: " + v.Confidence + "\n")
	}
	return b.String()
}
