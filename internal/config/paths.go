package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir    string
	DataDir    string
	UploadsDir string
	ReportsDir string
	LogsDir    string

	// Well-known files
	DatabaseFile string
	SummaryCSV   string
	SummaryXLSX  string
}

// ResolvePaths turns the configured directories into absolute paths. Relative
// entries are joined to BaseDir, which defaults to the executable directory.
func ResolvePaths(cfg *Config) (*Paths, error) {
	base := cfg.Paths.BaseDir
	if base == "" {
		exeDir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = exeDir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	reportsDir := resolve(cfg.Paths.ReportsDir)
	return &Paths{
		BaseDir:      base,
		DataDir:      resolve(cfg.Paths.DataDir),
		UploadsDir:   resolve(cfg.Paths.UploadsDir),
		ReportsDir:   reportsDir,
		LogsDir:      resolve(cfg.Paths.LogsDir),
		DatabaseFile: resolve(cfg.Storage.Path),
		SummaryCSV:   filepath.Join(reportsDir, SummaryBaseName+".csv"),
		SummaryXLSX:  filepath.Join(reportsDir, SummaryBaseName+".xlsx"),
	}, nil
}

// executableDir returns the directory of the running binary with symlinks resolved
func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ReportsDir,
		p.LogsDir,
	}
	if p.DatabaseFile != "" {
		directories = append(directories, filepath.Dir(p.DatabaseFile))
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetUploadPath returns the path for an uploaded export
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filepath.Base(filename))
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("database", p.DatabaseFile),
			slog.Bool("database_exists", FileExists(p.DatabaseFile)),
			slog.String("summary_csv", p.SummaryCSV),
			slog.String("summary_xlsx", p.SummaryXLSX),
		))
}
