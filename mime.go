package cardkit

import (
	"path"
	"strings"
)

// Common MIME types served to the rendering layer
const (
	MIMETypeTextPlain       = "text/plain"
	MIMETypeTextHTML        = "text/html"
	MIMETypeTextCSS         = "text/css"
	MIMETypeTextJavaScript  = "text/javascript"
	MIMETypeApplicationJSON = "application/json"
	MIMETypeApplicationXML  = "application/xml"
	MIMETypeImageJPEG       = "image/jpeg"
	MIMETypeImagePNG        = "image/png"
	MIMETypeImageGIF        = "image/gif"
	MIMETypeImageSVG        = "image/svg+xml"
	MIMETypeImageWebP       = "image/webp"
	MIMETypeAudioMP3        = "audio/mpeg"
	MIMETypeAudioOGG        = "audio/ogg"
	MIMETypeAudioWAV        = "audio/wav"
	MIMETypeVideoMP4        = "video/mp4"
	MIMETypeVideoWebM       = "video/webm"
	MIMETypeApplicationPDF  = "application/pdf"
	MIMETypeOctetStream     = "application/octet-stream"
)

// extensionToMIME maps lowercase file extensions to MIME types. Resource
// types are resolved against this table only; anything unknown is served
// as application/octet-stream so the renderer never guesses from content.
var extensionToMIME = map[string]string{
	".txt":   MIMETypeTextPlain,
	".md":    "text/markdown",
	".html":  MIMETypeTextHTML,
	".htm":   MIMETypeTextHTML,
	".css":   MIMETypeTextCSS,
	".js":    MIMETypeTextJavaScript,
	".mjs":   MIMETypeTextJavaScript,
	".json":  MIMETypeApplicationJSON,
	".xml":   MIMETypeApplicationXML,
	".csv":   "text/csv",
	".jpg":   MIMETypeImageJPEG,
	".jpeg":  MIMETypeImageJPEG,
	".png":   MIMETypeImagePNG,
	".gif":   MIMETypeImageGIF,
	".svg":   MIMETypeImageSVG,
	".webp":  MIMETypeImageWebP,
	".ico":   "image/x-icon",
	".mp3":   MIMETypeAudioMP3,
	".ogg":   MIMETypeAudioOGG,
	".wav":   MIMETypeAudioWAV,
	".mp4":   MIMETypeVideoMP4,
	".webm":  MIMETypeVideoWebM,
	".pdf":   MIMETypeApplicationPDF,
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
}

// ResolveContentType returns the MIME type for a resource path based on
// its extension, or application/octet-stream when the extension is not
// registered.
func ResolveContentType(resourcePath string) string {
	ext := strings.ToLower(path.Ext(resourcePath))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}
	return MIMETypeOctetStream
}

// IsTextResource reports whether a MIME type is renderable as text.
func IsTextResource(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		contentType == MIMETypeApplicationJSON ||
		contentType == MIMETypeApplicationXML ||
		contentType == MIMETypeImageSVG
}

// IsImageResource reports whether a MIME type is an image.
func IsImageResource(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
