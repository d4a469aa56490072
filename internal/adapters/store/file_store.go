package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

// FileStore keeps each artifact as <name>.<format> inside one directory.
// Saves are written to a staging directory that replaces the live one.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a new file store rooted at dir
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact parent directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: filepath.Clean(dir), logger: logger}, nil
}

func fileName(a core.Artifact) string {
	return a.Name + "." + a.Format
}

// Save writes set to a fresh staging directory and swaps it in
func (s *FileStore) Save(ctx context.Context, set core.ArtifactSet) error {
	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	staging := s.dir + ".staging-" + stamp
	backup := s.dir + ".old-" + stamp

	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(staging); err != nil {
			s.logger.Warn("Failed to remove staging directory", zap.String("dir", staging), zap.Error(err))
		}
	}

	for _, a := range set {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		if err := writeFileSync(filepath.Join(staging, fileName(a)), a.Data); err != nil {
			cleanup()
			return fmt.Errorf("failed to write artifact %s: %w", a.Name, err)
		}
	}

	hadLive := true
	if err := os.Rename(s.dir, backup); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			cleanup()
			return fmt.Errorf("failed to move previous artifacts aside: %w", err)
		}
		hadLive = false
	}
	if err := os.Rename(staging, s.dir); err != nil {
		if hadLive {
			if rerr := os.Rename(backup, s.dir); rerr != nil {
				s.logger.Error("Failed to restore previous artifacts", zap.String("backup", backup), zap.Error(rerr))
			}
		}
		cleanup()
		return fmt.Errorf("failed to publish artifacts: %w", err)
	}
	if hadLive {
		if err := os.RemoveAll(backup); err != nil {
			s.logger.Warn("Failed to remove previous artifacts", zap.String("dir", backup), zap.Error(err))
		}
	}

	s.logger.Info("Saved artifacts", zap.String("dir", s.dir), zap.Int("count", len(set)))
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads every artifact in the live directory. When the live directory
// is absent, the newest set moved aside by an interrupted Save is used. With
// neither present the result is an empty set.
func (s *FileStore) Load(ctx context.Context) (core.ArtifactSet, error) {
	set, err := readArtifacts(ctx, s.dir)
	if !errors.Is(err, fs.ErrNotExist) {
		return set, err
	}

	backups, gerr := filepath.Glob(s.dir + ".old-*")
	if gerr != nil {
		return nil, fmt.Errorf("failed to look for previous artifacts: %w", gerr)
	}
	if len(backups) == 0 {
		return core.ArtifactSet{}, nil
	}
	sort.Strings(backups)
	newest := backups[len(backups)-1]
	s.logger.Warn("Live artifact directory missing, loading previous set",
		zap.String("dir", s.dir),
		zap.String("backup", newest))
	return readArtifacts(ctx, newest)
}

func readArtifacts(ctx context.Context, dir string) (core.ArtifactSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	set := core.ArtifactSet{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		file := entry.Name()
		ext := filepath.Ext(file)
		if ext == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", file, err)
		}
		set.Add(core.Artifact{
			Name:   strings.TrimSuffix(file, ext),
			Format: strings.TrimPrefix(ext, "."),
			Data:   data,
		})
	}
	return set, nil
}
