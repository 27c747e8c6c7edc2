package ingest

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

type recordingQueue struct {
	mu     sync.Mutex
	images []entity.Image
}

func (r *recordingQueue) Enqueue(img entity.Image) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, img)
	return uuid.New()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestParseDataURL(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	enc := base64.StdEncoding.EncodeToString(payload)

	t.Run("png data url", func(t *testing.T) {
		img, err := ParseDataURL("data:image/png;base64," + enc)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, payload, img.Data)
	})

	t.Run("bare base64 defaults to jpeg", func(t *testing.T) {
		img, err := ParseDataURL(enc)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.MimeType)
	})

	bad := map[string]string{
		"empty":        "",
		"no comma":     "data:image/png;base64",
		"not base64":   "data:image/png;utf8,abc",
		"not an image": "data:text/plain;base64," + enc,
		"bad payload":  "data:image/png;base64,!!!",
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataURL(in)
			assert.Error(t, err)
		})
	}
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()

	ok := filepath.Join(dir, "label.PNG")
	writeFile(t, ok, []byte("png-bytes"))
	img, err := ReadImage(ok)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "label.PNG", img.Filename)

	txt := filepath.Join(dir, "notes.txt")
	writeFile(t, txt, []byte("hello"))
	_, err = ReadImage(txt)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.jpg")
	writeFile(t, empty, nil)
	_, err = ReadImage(empty)
	assert.Error(t, err)
}

func TestEnqueueDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("one"))
	writeFile(t, filepath.Join(root, "b.jpeg"), []byte("one")) // duplicate content
	writeFile(t, filepath.Join(root, "sub", "c.webp"), []byte("two"))
	writeFile(t, filepath.Join(root, "readme.md"), []byte("skip"))
	writeFile(t, filepath.Join(root, ".hidden", "d.png"), []byte("three"))

	q := &recordingQueue{}
	results, stats, err := EnqueueDirectory(context.Background(), q, root, true, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)
	require.Len(t, q.images, 2)
	assert.Equal(t, "a.jpg", q.images[0].Filename)
	assert.Equal(t, "c.webp", q.images[1].Filename)

	require.Len(t, results, 3)
	assert.True(t, results[1].Deduplicated)
	assert.Equal(t, results[0].ItemID, results[1].ItemID)
}

func TestEnqueueDirectory_RequiresRoot(t *testing.T) {
	_, _, err := EnqueueDirectory(context.Background(), &recordingQueue{}, "  ", false, nil)
	assert.Error(t, err)
}

func TestEnqueueDirectory_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("one"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &recordingQueue{}
	_, _, err := EnqueueDirectory(ctx, q, root, false, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, q.images)
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".JPG"))
	assert.True(t, AllowedExt("webp"))
	assert.False(t, AllowedExt(".pdf"))
	assert.True(t, IsHidden("/x/.git"))
	assert.False(t, IsHidden("/x/photo.jpg"))
	assert.False(t, IsHidden("."))
}
