// Package uploads keeps audio files on disk for the lifetime of a request.
package uploads

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"github.com/google/uuid"
)

// Store is a flat directory of uploaded audio. Every stored name is prefixed
// with a uuid so concurrent uploads of the same file never collide.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, utils.WrapIfNotNil(errors.New("upload directory is required"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &Store{dir: abs}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into the store under a sanitized form of filename and
// returns the stored path.
func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString()+"_"+SanitizeFilename(filename))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	written, err := io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.Remove(ctx, path)
		return "", utils.WrapIfNotNil(err)
	}

	logging.NewLogger(ctx).Debugf("stored upload path=%q bytes=%d", path, written)
	return path, nil
}

// SaveBytes stores data as a uuid-named file with the given extension.
func (s *Store) SaveBytes(ctx context.Context, data []byte, ext string) (string, error) {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	path := s.NewPath(ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	logging.NewLogger(ctx).Debugf("stored blob path=%q bytes=%d", path, len(data))
	return path, nil
}

// NewPath reserves nothing; it only names a fresh file inside the store.
func (s *Store) NewPath(ext string) string {
	return filepath.Join(s.dir, uuid.NewString()+"."+strings.TrimPrefix(ext, "."))
}

// Remove deletes a stored file. Failures are logged, never returned, since
// callers run it after the response is already decided.
func (s *Store) Remove(ctx context.Context, path string) {
	log := logging.NewLogger(ctx)
	if !s.contains(path) {
		log.Warnf("refusing to remove path outside upload dir path=%q", path)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to remove upload path=%q err=%v", path, err)
	}
}

// Sweep removes regular files last modified more than olderThan ago and
// returns how many were removed.
func (s *Store) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, utils.WrapIfNotNil(err)
	}

	log := logging.NewLogger(ctx)
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("sweep failed to remove path=%q err=%v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.dir, abs)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// SanitizeFilename reduces name to a safe base name made of ASCII letters,
// digits, dots, dashes and underscores. An empty result becomes "upload".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}
