package session

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultExtension is used when a locator carries no usable extension.
const DefaultExtension = "jpg"

// PickedImage is a normalized reference to a user-selected photo. Values are
// immutable; a new pick replaces the whole value and receives a new ID.
type PickedImage struct {
	ID        string `json:"id"`
	URI       string `json:"uri"`
	Extension string `json:"extension"`
}

// NewPickedImage derives a PickedImage from the chosen asset's locator.
func NewPickedImage(uri string) PickedImage {
	return PickedImage{
		ID:        uuid.NewString(),
		URI:       uri,
		Extension: ExtensionFromLocator(uri),
	}
}

// MimeType is always image/<extension>.
func (p PickedImage) MimeType() string {
	return "image/" + p.Extension
}

// FileName is the multipart file name sent to the classification service.
func (p PickedImage) FileName() string {
	return "photo." + p.Extension
}

// ExtensionFromLocator returns the text after the final "." of the locator's
// last path segment, lower-cased. Locators without one yield DefaultExtension.
func ExtensionFromLocator(uri string) string {
	segment := uri
	if i := strings.IndexAny(segment, "?#"); i >= 0 {
		segment = segment[:i]
	}
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	i := strings.LastIndex(segment, ".")
	if i < 0 {
		return DefaultExtension
	}
	ext := strings.ToLower(strings.TrimSpace(segment[i+1:]))
	if ext == "" {
		return DefaultExtension
	}
	return ext
}
