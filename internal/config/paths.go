package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all resolved application paths.
// This is the single source of truth for file locations in the service.
type Paths struct {
	ExecutableDir string
	DataDir       string
	UploadsDir    string
	ChartsDir     string
	ReportsDir    string
	LogsDir       string

	// SalesTrendPNG is the well-known chart file. Trend renders always
	// write here so the UI has a stable URL to show.
	SalesTrendPNG string
}

// GetPaths returns the default application paths resolved against the
// executable directory. Paths never depend on the current working
// directory, so the service behaves the same regardless of where it is
// launched from.
func GetPaths() (*Paths, error) {
	return ResolvePaths(PathsConfig{})
}

// ResolvePaths resolves a configured paths section against the executable
// directory. Empty entries fall back to the defaults.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return PathsFor(filepath.Dir(exe), cfg), nil
}

// PathsFor resolves a PathsConfig against a base directory. Absolute
// entries in the config are kept as-is.
func PathsFor(baseDir string, cfg PathsConfig) *Paths {
	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	chartsDir := resolve(cfg.ChartsDir, DefaultChartsDir)

	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       resolve(cfg.DataDir, DefaultDataDir),
		UploadsDir:    resolve(cfg.UploadsDir, DefaultUploadsDir),
		ChartsDir:     chartsDir,
		ReportsDir:    resolve(cfg.ReportsDir, DefaultReportsDir),
		LogsDir:       resolve(cfg.LogsDir, DefaultLogsDir),
		SalesTrendPNG: filepath.Join(chartsDir, SalesTrendFileName),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ChartsDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetUploadPath returns the path for a stored upload
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetChartPath returns the path for a chart file
func (p *Paths) GetChartPath(filename string) string {
	return filepath.Join(p.ChartsDir, filename)
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
