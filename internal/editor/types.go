package editor

import (
	"fmt"
	"strings"
)

// Platform selects platform-specific behavior such as focus handling
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// NativeInput is the native text input that takes focus alongside the
// web view on platforms that need it
type NativeInput interface {
	FocusInput()
	RequestFocus()
}

// TagResolver looks up tags by id
type TagResolver interface {
	ResolveTag(id string) (TagRef, bool)
}

// TagRef is the (title, alias) pair the editor displays for a tag
type TagRef struct {
	Title string `json:"title"`
	Alias string `json:"alias"`
}

// Note carries the fields of a note the editor commands read
type Note struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

// Attachment describes a file attached to a note
type Attachment struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
}

// AttachmentProgress reports transfer progress for an attachment
type AttachmentProgress struct {
	Hash   string `json:"hash"`
	Type   string `json:"type"` // upload or download
	Total  int64  `json:"total"`
	Loaded int64  `json:"loaded"`
}

// ImageAttributes describes an inline image
type ImageAttributes struct {
	Src      string `json:"src,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Title    string `json:"title,omitempty"`
	Hash     string `json:"hash,omitempty"`
	Filename string `json:"filename,omitempty"`
	Type     string `json:"type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Float    bool   `json:"float,omitempty"`
	Align    string `json:"align,omitempty"`
}

// EdgeInsets are the safe-area insets of the host window
type EdgeInsets struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}
