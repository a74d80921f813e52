package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/example/skin-check/internal/logging"
	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/session"
)

func TestRequestImageDeniedDoesNotInvokePicker(t *testing.T) {
	sess := session.New()
	perm := &stubPermission{status: picker.Denied}
	p := &stubPicker{result: picker.Result{Locator: "file:///tmp/a.png"}}
	m := NewSelectionManager(sess, perm, p, zap.NewNop())

	_, err := m.RequestImage(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if p.calls != 0 {
		t.Fatalf("picker must not be invoked, got %d calls", p.calls)
	}
	if _, ok := sess.CurrentImage(); ok {
		t.Fatal("session must stay without image")
	}
}

func TestRequestImageQueriesPermissionEveryTime(t *testing.T) {
	perm := &stubPermission{status: picker.Granted}
	m := NewSelectionManager(session.New(), perm, &stubPicker{result: picker.Result{Canceled: true}}, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := m.RequestImage(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if perm.calls != 3 {
		t.Fatalf("expected 3 permission queries, got %d", perm.calls)
	}
}

func TestRequestImagePermissionErrorIsWrapped(t *testing.T) {
	perm := &stubPermission{err: errors.New("dialog crashed")}
	m := NewSelectionManager(session.New(), perm, &stubPicker{}, zap.NewNop())

	_, err := m.RequestImage(context.Background())
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.Fatal("collaborator failure must not be reported as a denial")
	}
}

func TestRequestImageCancelLeavesSessionUntouched(t *testing.T) {
	sess := session.New()
	previous := session.NewPickedImage("file:///tmp/prev.png")
	sess.ReplaceImage(previous)
	img, _ := sess.Begin()
	sess.Complete(img.ID, session.Failed(session.FailureService, "low image quality"))
	before := sess.Snapshot()

	p := &stubPicker{result: picker.Result{Canceled: true}}
	m := NewSelectionManager(sess, &stubPermission{status: picker.Granted}, p, zap.NewNop())

	sel, err := m.RequestImage(context.Background())
	if err != nil {
		t.Fatalf("cancel is not an error, got %v", err)
	}
	if sel.Status != NoSelection {
		t.Fatalf("expected NoSelection, got %v", sel.Status)
	}

	after := sess.Snapshot()
	if after.Image == nil || after.Image.ID != previous.ID {
		t.Fatalf("expected previous image to remain, got %+v", after.Image)
	}
	if after.State != before.State || after.ErrorMessage != before.ErrorMessage {
		t.Fatalf("expected state %+v to be untouched, got %+v", before, after)
	}
}

func TestRequestImageSelectedResetsOutcome(t *testing.T) {
	sess := session.New()
	sess.ReplaceImage(session.NewPickedImage("file:///tmp/prev.png"))
	img, _ := sess.Begin()
	label := "acne"
	sess.Complete(img.ID, session.Succeeded(session.ClassificationResult{Label: &label, Confidence: 0.4}))

	p := &stubPicker{result: picker.Result{Locator: "file:///tmp/abc"}}
	m := NewSelectionManager(sess, &stubPermission{status: picker.Granted}, p, zap.NewNop())

	sel, err := m.RequestImage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Status != Selected {
		t.Fatalf("expected Selected, got %v", sel.Status)
	}
	if sel.Image.Extension != session.DefaultExtension || sel.Image.MimeType() != "image/jpg" {
		t.Fatalf("expected fallback extension, got %+v", sel.Image)
	}
	if p.opts != picker.SelectionOptions() {
		t.Fatalf("unexpected picker options %+v", p.opts)
	}

	snap := sess.Snapshot()
	if snap.State != session.StatusIdle || snap.Result != nil || snap.ErrorMessage != "" {
		t.Fatalf("expected reset snapshot, got %+v", snap)
	}
	if snap.Image == nil || snap.Image.ID != sel.Image.ID {
		t.Fatalf("expected new image to be current, got %+v", snap.Image)
	}
}
