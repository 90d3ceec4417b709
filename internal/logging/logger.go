// Package logging provides the diagnostic logger used by the speech pipeline.
//
// A Logger writes either formatted lines to stderr or JSON lines to a file
// with size-based rotation. Logging never fails the caller: write and rotation
// errors are reported once to stderr and then dropped.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Default values.
const (
	DefaultMaxSize  int64 = 5 * 1024 * 1024
	DefaultMaxFiles       = 3
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var (
	// ErrFilePathRequired indicates file output was requested without a path.
	ErrFilePathRequired = errors.New("file path is required for file output")
	// ErrUnknownLevel indicates an unrecognised level name.
	ErrUnknownLevel = errors.New("unknown log level")
	// ErrUnknownOutput indicates an unrecognised output name.
	ErrUnknownOutput = errors.New("unknown log output")
)

// Level orders log severities.
type Level int

// Log levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// String returns the lower-case level name.
func (l Level) String() string {
	name, ok := levelNames[l]
	if !ok {
		return fmt.Sprintf("level(%d)", int(l))
	}

	return name
}

// ParseLevel converts a level name such as "warn" into a Level.
func ParseLevel(name string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "warning" {
		normalized = "warn"
	}

	for level, levelName := range levelNames {
		if levelName == normalized {
			return level, nil
		}
	}

	return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

// Output selects where entries are written.
type Output string

// Supported outputs.
const (
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// ParseOutput converts an output name into an Output.
func ParseOutput(name string) (Output, error) {
	switch Output(strings.ToLower(strings.TrimSpace(name))) {
	case OutputStderr, "":
		return OutputStderr, nil
	case OutputFile:
		return OutputFile, nil
	default:
		return OutputStderr, fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
}

// Config configures a Logger. Start from DefaultConfig; zero MaxSize,
// MaxFiles and Output are replaced by their defaults in New.
type Config struct {
	Enabled  bool
	Level    Level
	Output   Output
	FilePath string
	MaxSize  int64
	MaxFiles int
	// Stderr receives stderr output and failure notices. Defaults to os.Stderr.
	Stderr io.Writer
}

// DefaultConfig returns an enabled, info-level stderr configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Level:    LevelInfo,
		Output:   OutputStderr,
		FilePath: "",
		MaxSize:  DefaultMaxSize,
		MaxFiles: DefaultMaxFiles,
		Stderr:   os.Stderr,
	}
}

// Entry is one line of the log file.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

// Logger is a level-gated diagnostic sink. It is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	enabled  bool
	level    Level
	output   Output
	filePath string
	maxSize  int64
	maxFiles int
	stderr   io.Writer
	now      func() time.Time
	failed   bool
}

// New creates a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	if cfg.Output == "" {
		cfg.Output = OutputStderr
	}

	if cfg.Output != OutputStderr && cfg.Output != OutputFile {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, cfg.Output)
	}

	if cfg.Output == OutputFile && cfg.FilePath == "" {
		return nil, ErrFilePathRequired
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}

	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}

	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	return &Logger{
		enabled:  cfg.Enabled,
		level:    cfg.Level,
		output:   cfg.Output,
		filePath: cfg.FilePath,
		maxSize:  cfg.MaxSize,
		maxFiles: cfg.MaxFiles,
		stderr:   cfg.Stderr,
		now:      time.Now,
	}, nil
}

// Nop returns a disabled logger.
func Nop() *Logger {
	return &Logger{
		level:    LevelError,
		output:   OutputStderr,
		maxSize:  DefaultMaxSize,
		maxFiles: DefaultMaxFiles,
		stderr:   io.Discard,
		now:      time.Now,
	}
}

// Enable turns logging on or off for subsequent calls.
func (l *Logger) Enable(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.enabled = enabled
}

// Enabled reports whether logging is on.
func (l *Logger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enabled
}

// SetLevel changes the minimum level for subsequent calls.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
}

// Level returns the minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.level
}

// Debug logs at debug level.
func (l *Logger) Debug(message string, data ...any) {
	l.log(LevelDebug, message, data)
}

// Info logs at info level.
func (l *Logger) Info(message string, data ...any) {
	l.log(LevelInfo, message, data)
}

// Warn logs at warn level.
func (l *Logger) Warn(message string, data ...any) {
	l.log(LevelWarn, message, data)
}

// Error logs at error level.
func (l *Logger) Error(message string, data ...any) {
	l.log(LevelError, message, data)
}

func (l *Logger) log(level Level, message string, data []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.level {
		return
	}

	if l.output == OutputFile {
		err := l.writeFile(level, message, data)
		if err != nil {
			l.reportFailure(err)
		}

		return
	}

	l.writeStderr(level, message, data)
}

func (l *Logger) writeStderr(level Level, message string, data []any) {
	line := "[" + strings.ToUpper(level.String()) + "] " + message

	args := make([]any, 0, len(data)+1)
	args = append(args, line)
	args = append(args, data...)

	_, _ = fmt.Fprintln(l.stderr, args...)
}

func (l *Logger) writeFile(level Level, message string, data []any) error {
	line, err := l.encode(level, message, data)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(l.filePath), dirPerm)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	err = l.rotateIfNeeded(int64(len(line)))
	if err != nil {
		return err
	}

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", l.filePath, err)
	}

	_, writeErr := file.Write(line)
	closeErr := file.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write log file '%s': %w", l.filePath, writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close log file '%s': %w", l.filePath, closeErr)
	}

	return nil
}

func (l *Logger) encode(level Level, message string, data []any) ([]byte, error) {
	entry := Entry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   message,
		Data:      payload(data),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		entry.Data = fmt.Sprintf("%v", entry.Data)

		line, err = json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to encode log entry: %w", err)
		}
	}

	return append(line, '\n'), nil
}

func payload(data []any) any {
	switch len(data) {
	case 0:
		return nil
	case 1:
		return data[0]
	default:
		return data
	}
}

// reportFailure writes the first failure to stderr and swallows the rest.
func (l *Logger) reportFailure(err error) {
	if l.failed {
		return
	}

	l.failed = true

	_, _ = fmt.Fprintf(l.stderr, "[ERROR] logging to file disabled: %v\n", err)
}
