package storage

import (
	"bytes"
	"path/filepath"
	"strings"
)

// pdfMagic is the signature at the start of every valid PDF file.
var pdfMagic = []byte("%PDF-")

// DetectContentType determines the MIME type of an object.
// An explicit contentType wins; otherwise the key's extension decides.
func DetectContentType(contentType, key string) string {
	if contentType != "" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// IsPDF reports whether data begins with the PDF file signature.
// Only the first few bytes are inspected.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
