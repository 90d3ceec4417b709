// Package config provides the configuration structure for agent-speech.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
)

// Default values.
const (
	DefaultVoice         = "Samantha"
	DefaultRate          = 200
	DefaultVolume        = 50
	DefaultMinLength     = 10
	DefaultNotifySubject = "agent.speech.notify"
	DefaultTextBucket    = "AGENT_SPEECH_TEXT"
	defaultConfigDirName = ".agent-speech"
	defaultLogFileName   = "agent-speech.log"
	maxVolume            = 100
)

// KnownTools lists the integrations with a per-tool switch.
var KnownTools = []string{"claude-code", "opencode", "codex-cli", "gemini-cli"}

var (
	// ErrRateRange indicates a non-positive speech rate.
	ErrRateRange = errors.New("rate must be positive")
	// ErrVolumeRange indicates a volume outside [0, 100].
	ErrVolumeRange = errors.New("volume must be between 0 and 100")
	// ErrLengthNegative indicates a negative length bound.
	ErrLengthNegative = errors.New("min_length and max_length must be non-negative")
	// ErrLengthBounds indicates max_length below min_length.
	ErrLengthBounds = errors.New("max_length must be 0 or at least min_length")
	// ErrLogLevel indicates an unknown log level.
	ErrLogLevel = errors.New("invalid logging level")
	// ErrLogOutput indicates an unknown log output.
	ErrLogOutput = errors.New("invalid logging output")
	// ErrLogFilePath indicates file logging without a path.
	ErrLogFilePath = errors.New("logging file_path is required for file output")
)

// ToolConfig holds the switch for one integration.
type ToolConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoggingConfig holds the diagnostic logger settings.
type LoggingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Level    string `toml:"level"`
	Output   string `toml:"output"`
	FilePath string `toml:"file_path"`
	MaxSize  int64  `toml:"max_size"`
	MaxFiles int    `toml:"max_files"`
}

// SpeechConfig holds the speech backend settings.
type SpeechConfig struct {
	BinaryPath string `toml:"binary_path"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                   string `toml:"url"`
	NotifySubject         string `toml:"notify_subject"`
	TextObjectStoreBucket string `toml:"text_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	ConfigDir   string `toml:"config_dir"`
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	TTS     core.TTSConfig        `toml:"tts"`
	Tools   map[string]ToolConfig `toml:"tools"`
	Logging LoggingConfig         `toml:"logging"`
	Speech  SpeechConfig          `toml:"speech"`
	NATS    NATSConfig            `toml:"nats"`
	Paths   PathsConfig           `toml:"paths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	configDir := defaultConfigDir()

	return &Config{
		TTS: core.TTSConfig{
			Enabled:   true,
			Voice:     DefaultVoice,
			Rate:      DefaultRate,
			Volume:    DefaultVolume,
			MinLength: DefaultMinLength,
			MaxLength: 0,
			Filters: core.FilterOptions{
				Sensitive:      true,
				SkipCodeBlocks: true,
				SkipCommands:   true,
			},
		},
		Tools: map[string]ToolConfig{},
		Logging: LoggingConfig{
			Enabled:  true,
			Level:    logging.LevelInfo.String(),
			Output:   string(logging.OutputStderr),
			FilePath: filepath.Join(configDir, "logs", defaultLogFileName),
			MaxSize:  logging.DefaultMaxSize,
			MaxFiles: logging.DefaultMaxFiles,
		},
		Speech: SpeechConfig{BinaryPath: "say"},
		NATS: NATSConfig{
			URL:                   "nats://127.0.0.1:4222",
			NotifySubject:         DefaultNotifySubject,
			TextObjectStoreBucket: DefaultTextBucket,
		},
		Paths: PathsConfig{
			ConfigDir:   configDir,
			BaseLogsDir: filepath.Join(configDir, "logs"),
		},
	}
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigDirName
	}

	return filepath.Join(home, defaultConfigDirName)
}

// Load loads the configuration through the central configurator, on top of
// the defaults.
func Load(log *logger.Logger) (*Config, error) {
	cfg := Default()

	err := configurator.Load(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(cfg)
}

// LoadFile loads a TOML file on top of the defaults. A missing file yields
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	err = toml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Tools == nil {
		cfg.Tools = map[string]ToolConfig{}
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures the configuration contains usable values.
func (c *Config) Validate() error {
	if c.TTS.Rate <= 0 {
		return fmt.Errorf("%w: got %d", ErrRateRange, c.TTS.Rate)
	}

	if c.TTS.Volume < 0 || c.TTS.Volume > maxVolume {
		return fmt.Errorf("%w: got %d", ErrVolumeRange, c.TTS.Volume)
	}

	if c.TTS.MinLength < 0 || c.TTS.MaxLength < 0 {
		return ErrLengthNegative
	}

	if c.TTS.MaxLength > 0 && c.TTS.MaxLength < c.TTS.MinLength {
		return fmt.Errorf("%w: max %d, min %d", ErrLengthBounds, c.TTS.MaxLength, c.TTS.MinLength)
	}

	_, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogLevel, err)
	}

	output, err := logging.ParseOutput(c.Logging.Output)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogOutput, err)
	}

	if output == logging.OutputFile && c.Logging.FilePath == "" {
		return ErrLogFilePath
	}

	return nil
}

// ToolEnabled reports whether the named integration is switched on.
// Tools without an entry are enabled.
func (c *Config) ToolEnabled(tool string) bool {
	toolCfg, ok := c.Tools[tool]
	if !ok {
		return true
	}

	return toolCfg.Enabled
}

// ForTool returns the per-call TTS config for a tool. An empty tool name
// returns the global config.
func (c *Config) ForTool(tool string) core.TTSConfig {
	ttsCfg := c.TTS
	if tool != "" {
		ttsCfg.Enabled = ttsCfg.Enabled && c.ToolEnabled(tool)
	}

	return ttsCfg
}

// LoggerConfig converts the logging section into a logging.Config.
// Call Validate first; unknown names fall back to defaults here.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Enabled = c.Logging.Enabled
	cfg.FilePath = c.Logging.FilePath
	cfg.MaxSize = c.Logging.MaxSize
	cfg.MaxFiles = c.Logging.MaxFiles

	level, err := logging.ParseLevel(c.Logging.Level)
	if err == nil {
		cfg.Level = level
	}

	output, err := logging.ParseOutput(c.Logging.Output)
	if err == nil {
		cfg.Output = output
	}

	return cfg
}

// MutePath returns the location of the mute file.
func (c *Config) MutePath() string {
	return filepath.Join(c.Paths.ConfigDir, "mute.json")
}
