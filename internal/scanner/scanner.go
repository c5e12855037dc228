// Package scanner discovers candidate files under source roots.
//
// Traversal is depth-first lexical order, which keeps repeated runs on
// an unchanged tree deterministic; migration idempotence relies on that
// property. Unreadable entries and missing roots are skipped and
// counted, never fatal.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo describes one candidate file.
type FileInfo struct {
	// Path is relative to the scanned root.
	Path string
	// AbsPath is the absolute filesystem path.
	AbsPath string
	// Size is the file size in bytes.
	Size int64
}

// Result is the outcome of scanning one root.
type Result struct {
	// Files are the candidates in deterministic (lexical) order.
	Files []FileInfo
	// Skipped counts entries that could not be read.
	Skipped int
	// RootMissing is set when the root does not exist; the result then
	// carries zero files and the caller treats it as an empty source.
	RootMissing bool
}

// Scanner filters files by extension.
type Scanner struct {
	extensions map[string]struct{}
}

// New creates a Scanner matching the given extensions (e.g. ".md").
// An empty list matches every file.
func New(extensions []string) *Scanner {
	s := &Scanner{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		s.extensions[strings.ToLower(ext)] = struct{}{}
	}
	return s
}

// Scan walks root and returns candidate files in lexical order.
// A missing root yields an empty result, not an error.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	res := &Result{}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			res.RootMissing = true
			slog.Warn("source_root_missing", slog.String("root", root))
			return res, nil
		}
		res.Skipped++
		slog.Warn("source_root_unreadable",
			slog.String("root", root),
			slog.String("error", err.Error()))
		return res, nil
	}
	if !info.IsDir() {
		res.Skipped++
		slog.Warn("source_root_not_directory", slog.String("root", root))
		return res, nil
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Unreadable entry: count and keep walking.
			res.Skipped++
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !s.matches(d.Name()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			res.Skipped++
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			res.Skipped++
			return nil
		}

		res.Files = append(res.Files, FileInfo{
			Path:    filepath.ToSlash(relPath),
			AbsPath: path,
			Size:    fi.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	// WalkDir is already lexical per directory; sorting the flattened
	// list pins a total order across the whole tree.
	sort.Slice(res.Files, func(i, j int) bool {
		return res.Files[i].Path < res.Files[j].Path
	})

	return res, nil
}

// matches reports whether name passes the extension filter.
func (s *Scanner) matches(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
