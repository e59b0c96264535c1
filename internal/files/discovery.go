package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sensorcli/internal/dataprocessing"
)

// FileInfo represents information about a discovered export
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	// Date is the YYYY_MM_DD stamp of the filename; zero when Dated is false.
	Date  time.Time
	Dated bool
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative directories
// passed to its methods are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindExports lists the sensor exports in dir (non-recursive). Office lock
// files (~$...) and hidden files are skipped. Results are ordered by the
// filename date, then name; undated files come last.
func (d *Discovery) FindExports(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isExport(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, newFileInfo(filepath.Join(fullPath, entry.Name()), info))
	}

	SortByDate(files)
	return files, nil
}

// FindFilesByPattern finds exports matching a glob pattern inside dir
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	searchPattern := filepath.Join(d.resolve(dir), pattern)

	matches, err := filepath.Glob(searchPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		if !isExport(filepath.Base(match)) {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, newFileInfo(match, info))
	}

	SortByDate(files)
	return files, nil
}

func isExport(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	return dataprocessing.IsSupported(name)
}

func newFileInfo(path string, info os.FileInfo) FileInfo {
	fi := FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	fi.Date, fi.Dated = dataprocessing.ParseRecordDate(dataprocessing.ExtractDate(fi.Name))
	return fi
}

// SortByDate orders files by filename date, then name. Undated files sort last.
func SortByDate(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Dated != b.Dated {
			return a.Dated
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Name < b.Name
	})
}

// FilterFilesByDateRange keeps dated files whose filename date falls within
// [from, to]. A zero bound is open. Undated files are kept only when both
// bounds are open.
func FilterFilesByDateRange(files []FileInfo, from, to time.Time) []FileInfo {
	if from.IsZero() && to.IsZero() {
		return files
	}
	var filtered []FileInfo
	for _, file := range files {
		if !file.Dated {
			continue
		}
		if !from.IsZero() && file.Date.Before(from) {
			continue
		}
		if !to.IsZero() && file.Date.After(to) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered
}

// Paths returns the full path of every file.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
