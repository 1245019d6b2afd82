package eliza

import "strings"

// MIMEType represents the media type of attachment or knowledge content.
type MIMEType string

const (
	// Text-like mime types the knowledge loader ingests directly.
	MIMEText     MIMEType = "text/plain"
	MIMEMarkdown MIMEType = "text/markdown"
	MIMEHTML     MIMEType = "text/html"
	// Binary document types, routed to the matching service when present.
	MIMEPDF MIMEType = "application/pdf"
	// Common image mime types.
	MIMEImagePNG  MIMEType = "image/png"
	MIMEImageJPEG MIMEType = "image/jpeg"
	MIMEImageWEBP MIMEType = "image/webp"
)

// Type returns the general type of the MIMEType (e.g., "text", "image", or "file").
func (m MIMEType) Type() string {
	v := string(m)
	switch {
	case strings.HasPrefix(v, "text/"):
		return "text"
	case strings.HasPrefix(v, "image/"):
		return "image"
	case strings.HasPrefix(v, "audio/"):
		return "audio"
	default:
		return "file"
	}
}

// IsText reports whether content of this type can be ingested as plain text.
func (m MIMEType) IsText() bool {
	return strings.HasPrefix(string(m), "text/")
}

// Format returns the file format associated with the MIMEType.
func (m MIMEType) Format() string {
	parts := strings.SplitN(string(m), "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return "octet-stream"
}
