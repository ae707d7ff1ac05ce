package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// FallbackMime is forced onto any type outside the allow-list when serving.
const FallbackMime = "application/x-octet-stream"

// defaultMime is recorded when the filename extension resolves to nothing.
const defaultMime = "application/octet-stream"

// safeMime is the allow-list of types considered safe to render inline in a
// browser. The value is what actually goes on the wire. HTML, XHTML and
// JavaScript are deliberately absent: stored content must never execute as
// markup or script when visited directly, so anything unlisted is downgraded
// to a generic binary attachment. Keep this an allow-list.
var safeMime = map[string]string{
	"text/plain":       "text/plain",
	"image/png":        "image/png",
	"image/jpeg":       "image/jpeg",
	"image/pjpeg":      "image/pjpeg",
	"image/webp":       "image/webp",
	"image/gif":        "image/gif",
	"image/tiff":       "image/tiff",
	"application/json": "application/json",
	"application/pdf":  "application/pdf",
	"video/mpeg":       "video/mpeg",
	"video/mj2":        "video/mj2",
	"video/mp4":        "video/mp4",
	"video/ogg":        "video/ogg",
	"video/webm":       "video/webm",
	"video/quicktime":  "video/quicktime",
	"video/h261":       "video/h261",
	"video/h263":       "video/h263",
	"video/h264":       "video/h264",
}

// ResolveMime derives a mime type from the uploaded filename's extension.
// The file content is never inspected.
func ResolveMime(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return defaultMime
	}

	resolved := mime.TypeByExtension(ext)
	if resolved == "" {
		return defaultMime
	}

	// Strip parameters such as "; charset=utf-8".
	base, _, err := mime.ParseMediaType(resolved)
	if err != nil {
		return defaultMime
	}
	return base
}

// ContentPolicy decides how a stored mime type is served: listed types go out
// inline under their real type, everything else as an opaque attachment.
func ContentPolicy(mimeType string) (servedType string, inline bool) {
	if served, ok := safeMime[mimeType]; ok {
		return served, true
	}
	return FallbackMime, false
}
