// Package staging owns the process-wide upload directory. Every request gets
// its own subdirectory so concurrent requests never share a path.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrOutsideRequestDir means a derived output name would escape its request
// directory.
var ErrOutsideRequestDir = errors.New("output path escapes request directory")

const (
	inputPrefix  = "upload-"
	inputExt     = ".bin"
	outputPrefix = "converted-"
)

type Area struct {
	root    string
	created bool
	logger  *zap.Logger
}

// New creates root if needed. An existing directory is reused and is never
// removed by Close.
func New(root string, logger *zap.Logger) (*Area, error) {
	_, statErr := os.Stat(root)
	created := errors.Is(statErr, fs.ErrNotExist)

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve staging root: %w", err)
	}

	return &Area{root: abs, created: created, logger: logger}, nil
}

func (a *Area) Root() string {
	return a.root
}

// Files is the set of paths owned by one request.
type Files struct {
	Dir        string
	InputPath  string
	OutputPath string
	OutputName string

	once   sync.Once
	logger *zap.Logger
}

// Allocate reserves a fresh request directory with an input path and an
// output path named after preferredName and ext.
func (a *Area) Allocate(preferredName, ext string) (*Files, error) {
	dir := filepath.Join(a.root, uuid.NewString())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("create request dir: %w", err)
	}

	outputName := OutputFileName(preferredName, ext)
	outputPath := filepath.Join(dir, outputName)
	if filepath.Dir(outputPath) != dir {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %q", ErrOutsideRequestDir, outputName)
	}

	return &Files{
		Dir:        dir,
		InputPath:  filepath.Join(dir, inputPrefix+uuid.NewString()+inputExt),
		OutputPath: outputPath,
		OutputName: outputName,
		logger:     a.logger,
	}, nil
}

// OutputFileName derives converted-<base>.<ext>. The base is preferredName
// without directories or extension, or a fresh uuid when nothing usable is
// left.
func OutputFileName(preferredName, ext string) string {
	base := baseName(preferredName)
	if base == "" {
		base = uuid.NewString()
	}
	return outputPrefix + base + "." + sanitizeExt(strings.ToLower(ext))
}

func baseName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Treat both separators as directory boundaries regardless of OS.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}

	if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" {
		name = stem
	}

	return sanitize(name)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' || r == '\\' || r == '/' {
			return '_'
		}
		return r
	}, name)
}

// sanitizeExt keeps the extension a single path element with no dots.
func sanitizeExt(ext string) string {
	ext = strings.Map(func(r rune) rune {
		if r == '.' {
			return '_'
		}
		return r
	}, sanitize(strings.TrimSpace(ext)))
	if ext == "" {
		return "out"
	}
	return ext
}

func (f *Files) WriteInput(payload []byte) error {
	if err := os.WriteFile(f.InputPath, payload, 0600); err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	return nil
}

// Release removes everything the request staged. Only the first call does
// any work; later calls return immediately. Removal errors are logged, never
// returned.
func (f *Files) Release() {
	f.once.Do(func() {
		for _, path := range []string{f.InputPath, f.OutputPath} {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				f.logger.Warn("Failed to remove staged file",
					zap.String("path", path),
					zap.Error(err),
				)
			}
		}

		// Drivers such as ESRI Shapefile leave sidecar files next to the output.
		if err := os.RemoveAll(f.Dir); err != nil {
			f.logger.Warn("Failed to remove request dir",
				zap.String("path", f.Dir),
				zap.Error(err),
			)
		}
	})
}

// isRequestDir reports whether entry is a directory Allocate could have made.
func isRequestDir(entry fs.DirEntry) bool {
	if !entry.IsDir() {
		return false
	}
	id, err := uuid.Parse(entry.Name())
	return err == nil && id.String() == entry.Name()
}

// Sweep removes request directories last modified before maxAge ago. Other
// entries in the root are left alone. It returns the number of directories
// removed.
func (a *Area) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return 0, fmt.Errorf("read staging root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if !isRequestDir(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(a.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			a.logger.Warn("Failed to remove stale upload",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		removed++
	}

	return removed, nil
}

// RunJanitor sweeps every interval until ctx is done.
func (a *Area) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Sweep(maxAge)
			if err != nil {
				a.logger.Warn("Staging sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				a.logger.Info("Removed stale uploads", zap.Int("count", n))
			}
		}
	}
}

// Close removes the staging root if New created it and nothing is left in
// it. A pre-existing or shared root is left in place.
func (a *Area) Close() error {
	if !a.created {
		return nil
	}

	entries, err := os.ReadDir(a.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read staging root: %w", err)
	}
	if len(entries) > 0 {
		a.logger.Info("Staging root not empty, leaving it in place",
			zap.String("path", a.root),
			zap.Int("entries", len(entries)),
		)
		return nil
	}

	if err := os.Remove(a.root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staging root: %w", err)
	}
	return nil
}
