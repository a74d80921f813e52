// Package picker provides the external collaborators the selection flow
// consumes: gallery permission, the image picker and the image source that
// turns a locator back into bytes.
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotImage is returned when the picked file's content is not an image.
	ErrNotImage = errors.New("picked file is not an image")
	// ErrOutsideGallery is returned when the picked file is not under the gallery root.
	ErrOutsideGallery = errors.New("picked file is outside the gallery")
)

// PermissionStatus is the answer of the permission collaborator.
type PermissionStatus int

const (
	Denied PermissionStatus = iota
	Granted
)

// PermissionRequester asks for gallery access. It is queried on every
// selection attempt and never cached.
type PermissionRequester interface {
	RequestGalleryAccess(ctx context.Context) (PermissionStatus, error)
}

// Options configure a picker invocation.
type Options struct {
	Single     bool
	SquareCrop bool
	MaxQuality bool
}

// SelectionOptions are the options used for every selection: one image,
// square crop, maximum quality.
func SelectionOptions() Options {
	return Options{Single: true, SquareCrop: true, MaxQuality: true}
}

// Result is either a picked locator or a cancellation.
type Result struct {
	Canceled bool
	Locator  string
}

// Picker lets the user choose an image.
type Picker interface {
	PickImage(ctx context.Context, opts Options) (Result, error)
}

// Source opens the image bytes referenced by a locator.
type Source interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// StaticPermission always answers with the same status.
type StaticPermission PermissionStatus

// RequestGalleryAccess returns the fixed status.
func (p StaticPermission) RequestGalleryAccess(ctx context.Context) (PermissionStatus, error) {
	return PermissionStatus(p), nil
}

// DirectoryPermission grants access when the gallery root can be read.
// An empty root grants access to the whole filesystem.
type DirectoryPermission struct {
	Root string
}

// RequestGalleryAccess checks the gallery root on every call.
func (p DirectoryPermission) RequestGalleryAccess(ctx context.Context) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return Denied, err
	}
	if p.Root == "" {
		return Granted, nil
	}
	dir, err := os.Open(p.Root)
	if err != nil {
		return Denied, nil
	}
	defer dir.Close()
	if _, err := dir.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return Denied, nil
	}
	return Granted, nil
}

// FilePicker "picks" a file chosen up front, typically from a CLI argument or
// an HTTP request. An empty Path behaves like the user cancelling.
type FilePicker struct {
	Path string
	Root string
}

// PickImage validates the chosen file and returns a file:// locator for it.
// Options are accepted for contract parity; crop and quality are applied by
// interactive pickers only.
func (p FilePicker) PickImage(ctx context.Context, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(p.Path) == "" {
		return Result{Canceled: true}, nil
	}

	path, err := filepath.Abs(p.Path)
	if err != nil {
		return Result{}, fmt.Errorf("resolve picked path: %w", err)
	}
	if p.Root != "" {
		root, err := filepath.Abs(p.Root)
		if err != nil {
			return Result{}, fmt.Errorf("resolve gallery root: %w", err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return Result{}, ErrOutsideGallery
		}
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("inspect picked file: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Result{}, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	return Result{Locator: (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()}, nil
}

// FileSource opens file:// locators and plain filesystem paths.
type FileSource struct{}

// Open returns a reader over the referenced file.
func (FileSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := locator
	if strings.HasPrefix(locator, "file:") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("parse locator: %w", err)
		}
		path = filepath.FromSlash(u.Path)
	}
	return os.Open(path)
}
