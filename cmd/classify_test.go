package cmd

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func setupClassify(t *testing.T, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	gallery := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CLASSIFIER_ENDPOINT", server.URL+"/upload")
	t.Setenv("GALLERY_ROOT", gallery)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DATABASE_DSN", "")

	path := filepath.Join(gallery, "arm.png")
	if err := os.WriteFile(path, pngHeader, 0o600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func TestClassifyPrintsPrediction(t *testing.T) {
	path := setupClassify(t, `{"class":"eczema","confidence":0.87}`)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"classify", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if !strings.Contains(out.String(), "Condition:  eczema") || !strings.Contains(out.String(), "Confidence: 87.00%") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestClassifyServiceErrorFails(t *testing.T) {
	path := setupClassify(t, `{"error":"low image quality"}`)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"classify", path})

	err := root.Execute()
	if !errors.Is(err, errClassificationFailed) {
		t.Fatalf("expected errClassificationFailed, got %v", err)
	}
	if !strings.Contains(out.String(), "Error: low image quality") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
