package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/router-ingest/constants"
)

// EnqueueDirectory walks root in lexical order, skips hidden entries if
// requested, and enqueues every label photo. Identical images (same
// SHA-256) are enqueued once. Returns per-file results + aggregate stats.
func EnqueueDirectory(ctx context.Context, q Enqueuer, root string, skipHidden bool, logger *slog.Logger) ([]FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(constants.NormalizeExt(filepath.Ext(path))) {
			return nil
		}
		stats.Matched++

		img, err := ReadImage(path)
		if err != nil {
			logger.Warn("ingest.read_failed", "path", path, "error", err)
			results = append(results, FileResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		sum := sha256.Sum256(img.Data)
		hashHex := hex.EncodeToString(sum[:])
		if prev, dup := seen[hashHex]; dup {
			results = append(results, FileResult{SourcePath: path, ItemID: prev, Deduplicated: true, HashHex: hashHex})
			stats.Deduplicated++
			return nil
		}

		id := q.Enqueue(img).String()
		seen[hashHex] = id
		results = append(results, FileResult{SourcePath: path, ItemID: id, HashHex: hashHex})
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
