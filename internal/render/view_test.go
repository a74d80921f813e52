package render

import (
	"strings"
	"testing"

	"github.com/example/skin-check/internal/session"
)

func TestFormatSucceeded(t *testing.T) {
	label := "eczema"
	img := session.NewPickedImage("file:///tmp/skin.png")
	v := Format(session.Snapshot{
		Image:  &img,
		State:  session.StatusSucceeded,
		Result: &session.ClassificationResult{Label: &label, Confidence: 0.87},
	})

	if v.Label != "eczema" || v.Confidence != "87.00%" {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.Spinner || v.Error != "" {
		t.Fatalf("unexpected directives %+v", v)
	}
	if !strings.Contains(v.String(), "Confidence: 87.00%") {
		t.Fatalf("unexpected text %q", v.String())
	}
}

func TestFormatMissingLabel(t *testing.T) {
	v := Format(session.Snapshot{
		State:  session.StatusSucceeded,
		Result: &session.ClassificationResult{Confidence: 0.5},
	})
	if v.Label != "unknown" || v.Confidence != "50.00%" {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestFormatInFlightAndFailed(t *testing.T) {
	v := Format(session.Snapshot{State: session.StatusInFlight})
	if !v.Spinner || v.Status != AnalyzingText {
		t.Fatalf("expected spinner, got %+v", v)
	}

	v = Format(session.Snapshot{State: session.StatusFailed, ErrorMessage: "low image quality"})
	if v.Spinner || v.Label != "" || v.Error != "low image quality" {
		t.Fatalf("unexpected view %+v", v)
	}
	if !strings.Contains(v.String(), "Error: low image quality") {
		t.Fatalf("unexpected text %q", v.String())
	}
}

func TestFormatIdleIsBlank(t *testing.T) {
	if v := Format(session.Snapshot{State: session.StatusIdle}); v != (View{}) {
		t.Fatalf("expected empty view, got %+v", v)
	}
}
