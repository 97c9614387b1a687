// Package cli provides shared CLI plumbing for kernelsim tools.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

// EngineVersion is the simulator's own version, checked against any
// #require-engine directive a program file declares.
const EngineVersion = "1.0.0"

// VersionInfo describes the running build.
type VersionInfo struct {
	Version string `json:"version"`
	GoOS    string `json:"goos"`
	GoArch  string `json:"goarch"`
}

// PrintVersion prints version information for the named tool.
func PrintVersion(tool string) {
	fmt.Printf("%s v%s (%s/%s)\n", tool, EngineVersion, runtime.GOOS, runtime.GOARCH)
}

// ExitWithError prints a formatted error to stderr and exits with code 1.
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// Logger provides leveled, timestamped logging for CLI tools.
type Logger struct {
	Verbose bool
	Debug   bool
}

// NewLogger creates a Logger with the given verbosity flags.
func NewLogger(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose, Debug: debug}
}

// Info logs an informational message when verbose logging is enabled.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}
}

// Debugf logs a debug message when debug logging is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}
}

// Warn logs a warning; warnings are always shown.
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Error logs an error; errors are always shown.
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Config holds the simulator's run configuration, loadable from and
// savable to JSON so that a coursework harness can script repeated runs.
type Config struct {
	ProgramDir string `json:"program_dir"`
	Policy     string `json:"policy"`
	OutputPath string `json:"output_path"`
	Watch      bool   `json:"watch"`
	Verbose    bool   `json:"verbose"`
}

// DefaultConfig returns a Config with the default output path.
func DefaultConfig() *Config {
	return &Config{OutputPath: "result"}
}

// LoadConfig reads a JSON config file, returning defaults if the path is
// empty or the file does not exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
