package llm

import (
	"encoding/base64"
	"strings"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// MimeType returns the image MIME type, defaulting to image/jpeg.
func MimeType(img entity.Image) string {
	if mt := strings.TrimSpace(img.MimeType); mt != "" {
		return mt
	}
	return "image/jpeg"
}

// Base64 returns the standard base64 encoding of the image bytes.
func Base64(img entity.Image) string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL renders the image as a data: URL.
func DataURL(img entity.Image) string {
	return "data:" + MimeType(img) + ";base64," + Base64(img)
}
