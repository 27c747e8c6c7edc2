package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// MaxImageBytes caps a single label photo.
const MaxImageBytes = 20 << 20

// Enqueuer is the part of the queue orchestrator ingestion needs.
type Enqueuer interface {
	Enqueue(img entity.Image) uuid.UUID
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	SourcePath   string
	ItemID       string
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// ReadImage loads one label photo from disk.
func ReadImage(path string) (entity.Image, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" || !AllowedExt(ext) {
		return entity.Image{}, fmt.Errorf("unsupported or missing extension: %q", ext)
	}
	st, err := os.Stat(path)
	if err != nil {
		return entity.Image{}, err
	}
	if st.Size() > MaxImageBytes {
		return entity.Image{}, fmt.Errorf("image too large: %d bytes", st.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Image{}, err
	}
	if len(data) == 0 {
		return entity.Image{}, errors.New("empty image file")
	}
	return entity.Image{
		Data:     data,
		MimeType: constants.MimeForExt(ext),
		Filename: filepath.Base(path),
	}, nil
}

// ParseDataURL decodes a camera screenshot of the form
// data:image/<type>;base64,<payload>. A bare base64 string is accepted too
// and treated as JPEG.
func ParseDataURL(s string) (entity.Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return entity.Image{}, errors.New("empty image payload")
	}
	mimeType := "image/jpeg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s, ",")
		if !ok {
			return entity.Image{}, errors.New("malformed data url: missing ','")
		}
		header = strings.TrimPrefix(header, "data:")
		mt, enc, _ := strings.Cut(header, ";")
		if enc != "base64" {
			return entity.Image{}, fmt.Errorf("malformed data url: unsupported encoding %q", enc)
		}
		if !strings.HasPrefix(mt, "image/") {
			return entity.Image{}, fmt.Errorf("malformed data url: not an image (%q)", mt)
		}
		mimeType = mt
		payload = rest
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return entity.Image{}, fmt.Errorf("decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return entity.Image{}, errors.New("empty image payload")
	}
	if len(data) > MaxImageBytes {
		return entity.Image{}, fmt.Errorf("image too large: %d bytes", len(data))
	}
	return entity.Image{Data: data, MimeType: mimeType}, nil
}
