package constants

import "strings"

// AllowedExtensions holds the image extensions accepted for label photos.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt maps an image extension to the MIME type sent to the inference service.
// Unknown extensions fall back to image/jpeg, the camera capture format.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Export artifact conventions.
const (
	CSVFilename  = "router_queue.csv"
	XLSXFilename = "router_queue.xlsx"
	CSVMimeType  = "text/csv"
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)
