package media

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var typesByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".htm":  "text/html",
	".html": "text/html",
	".pdf":  "application/pdf",
}

var extensionsByType = map[string]string{
	"image/jpeg":       ".jpg",
	"image/jpg":        ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/bmp":        ".bmp",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
}

// TypeByURL guesses a MIME type from the extension of the URL path. It returns
// an empty string when the extension is missing or unknown.
func TypeByURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	if t, ok := typesByExtension[ext]; ok {
		return t
	}
	return baseType(mime.TypeByExtension(ext))
}

// ExtensionByType returns the file extension, including the dot, for a MIME type.
func ExtensionByType(mimeType string) string {
	mimeType = baseType(mimeType)
	if ext, ok := extensionsByType[mimeType]; ok {
		return ext
	}
	if m := mimetype.Lookup(mimeType); m != nil {
		return m.Extension()
	}
	return ""
}

// IsImage reports whether the MIME type is an image type.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(baseType(mimeType), "image/")
}

// IsVideo reports whether the MIME type is a video type.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(baseType(mimeType), "video/")
}

// baseType strips parameters such as charset from a MIME type.
func baseType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
