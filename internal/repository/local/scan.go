package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/imaging"
)

// fileKey identifies one version of a file on disk.
type fileKey struct {
	path    string
	modTime int64
	size    int64
}

// discover lists image files under dir whose extension matches exts.
// A missing directory yields no files and an error log, not a failure.
func discover(dir string, exts []string, logger *zap.Logger) []string {
	if dir == "" {
		return nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && imaging.MatchesExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		logger.Error("Local search directory scan failed", zap.String("dir", dir), zap.Error(err))
	}
	logger.Info("Discovered local images", zap.String("dir", dir), zap.Int("files", len(files)))
	return files
}

// statKey returns the cache key for path without reading it.
func statKey(path string) (fileKey, error) {
	st, err := os.Stat(path)
	if err != nil {
		return fileKey{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return fileKey{path: path, modTime: st.ModTime().UnixNano(), size: st.Size()}, nil
}

// loadFile reads the file behind key and builds an unembedded item from its bytes.
func loadFile(key fileKey) (item.Item, []byte, error) {
	raw, err := os.ReadFile(key.path)
	if err != nil {
		return item.Item{}, nil, fmt.Errorf("read %s: %w", key.path, err)
	}
	info, err := imaging.DecodeConfig(raw)
	if err != nil {
		return item.Item{}, nil, fmt.Errorf("decode %s: %w", key.path, err)
	}
	it, err := item.New(item.DeriveID(raw), item.Metadata{
		SourceURI: key.path,
		IsLocal:   true,
		Format:    info.Format,
		Width:     info.Width,
		Height:    info.Height,
		CreatedAt: time.Unix(0, key.modTime).UTC(),
		Attributes: item.Attributes{
			item.AttrFilename: item.String(filepath.Base(key.path)),
		},
	})
	if err != nil {
		return item.Item{}, nil, fmt.Errorf("build item %s: %w", key.path, err)
	}
	return it, raw, nil
}

func embedFile(ctx context.Context, e imageEmbedder, raw []byte) ([]float32, error) {
	img, _, err := imaging.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	res, err := e.EmbedImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	return res.Embedding, nil
}
