// Package config_test tests the configuration loading for agent-speech.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/agent-speech/internal/config"
	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[tts]
enabled = true
voice = "Alex"
rate = 180
volume = 70
min_length = 5
max_length = 300

[tts.filters]
sensitive = true
skip_code_blocks = false
skip_commands = true

[tools.claude-code]
enabled = true

[tools.gemini-cli]
enabled = false

[logging]
enabled = true
level = "debug"
output = "file"
file_path = "/tmp/agent-speech/agent-speech.log"
max_size = 1048576
max_files = 5

[speech]
binary_path = "/usr/bin/say"

[nats]
url = "nats://127.0.0.1:4222"
notify_subject = "agent.speech.notify"
text_object_store_bucket = "SPEECH_TEXT"

[paths]
config_dir = "/tmp/agent-speech"
base_logs_dir = "/tmp/agent-speech/logs"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestUnmarshalConfig(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(sampleConfig), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "Alex", cfg.TTS.Voice)
	assert.Equal(t, 180, cfg.TTS.Rate)
	assert.Equal(t, 70, cfg.TTS.Volume)
	assert.Equal(t, 5, cfg.TTS.MinLength)
	assert.Equal(t, 300, cfg.TTS.MaxLength)
	assert.True(t, cfg.TTS.Filters.Sensitive)
	assert.False(t, cfg.TTS.Filters.SkipCodeBlocks)
	assert.True(t, cfg.TTS.Filters.SkipCommands)
	assert.False(t, cfg.Tools["gemini-cli"].Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(1048576), cfg.Logging.MaxSize)
	assert.Equal(t, 5, cfg.Logging.MaxFiles)
	assert.Equal(t, "/usr/bin/say", cfg.Speech.BinaryPath)
	assert.Equal(t, "SPEECH_TEXT", cfg.NATS.TextObjectStoreBucket)
	assert.Equal(t, "/tmp/agent-speech", cfg.Paths.ConfigDir)
}

func TestLoadFile_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, config.Default().TTS, cfg.TTS)
	assert.NotNil(t, cfg.Tools)
}

func TestLoadFile_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[tts]\nvoice = \"Daniel\"\n")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Daniel", cfg.TTS.Voice)
	assert.Equal(t, config.DefaultRate, cfg.TTS.Rate)
	assert.True(t, cfg.TTS.Enabled)
	assert.True(t, cfg.TTS.Filters.SkipCodeBlocks)
	assert.Equal(t, config.DefaultNotifySubject, cfg.NATS.NotifySubject)
}

func TestLoadFile_InvalidToml(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[tts\nvoice=")

	_, err := config.LoadFile(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(cfg *config.Config)
		expected error
	}{
		{name: "zero rate", mutate: func(cfg *config.Config) { cfg.TTS.Rate = 0 }, expected: config.ErrRateRange},
		{name: "volume too high", mutate: func(cfg *config.Config) { cfg.TTS.Volume = 101 }, expected: config.ErrVolumeRange},
		{name: "negative volume", mutate: func(cfg *config.Config) { cfg.TTS.Volume = -1 }, expected: config.ErrVolumeRange},
		{name: "negative min", mutate: func(cfg *config.Config) { cfg.TTS.MinLength = -1 }, expected: config.ErrLengthNegative},
		{
			name:     "max below min",
			mutate:   func(cfg *config.Config) { cfg.TTS.MinLength = 50; cfg.TTS.MaxLength = 10 },
			expected: config.ErrLengthBounds,
		},
		{name: "bad level", mutate: func(cfg *config.Config) { cfg.Logging.Level = "loud" }, expected: config.ErrLogLevel},
		{name: "bad output", mutate: func(cfg *config.Config) { cfg.Logging.Output = "syslog" }, expected: config.ErrLogOutput},
		{
			name:     "file without path",
			mutate:   func(cfg *config.Config) { cfg.Logging.Output = "file"; cfg.Logging.FilePath = "" },
			expected: config.ErrLogFilePath,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			testCase.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), testCase.expected)
		})
	}

	require.NoError(t, config.Default().Validate())
}

func TestForTool(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Tools["gemini-cli"] = config.ToolConfig{Enabled: false}

	assert.True(t, cfg.ForTool("claude-code").Enabled)
	assert.False(t, cfg.ForTool("gemini-cli").Enabled)
	assert.True(t, cfg.ForTool("").Enabled)

	cfg.TTS.Enabled = false
	assert.False(t, cfg.ForTool("claude-code").Enabled)
}

func TestLoggerConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = "/tmp/x.log"
	cfg.Logging.MaxFiles = 7

	logCfg := cfg.LoggerConfig()

	assert.Equal(t, logging.LevelWarn, logCfg.Level)
	assert.Equal(t, logging.OutputFile, logCfg.Output)
	assert.Equal(t, "/tmp/x.log", logCfg.FilePath)
	assert.Equal(t, 7, logCfg.MaxFiles)
	assert.True(t, logCfg.Enabled)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[tts]\nvoice = \"Alex\"\n")

	watcher, err := config.NewWatcher(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alex", watcher.Current().TTS.Voice)

	changed := make(chan string, 4)
	watcher.OnChange(func(cfg *config.Config) { changed <- cfg.TTS.Voice })

	require.NoError(t, watcher.Start())

	defer func() { require.NoError(t, watcher.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("[tts]\nvoice = \"Fred\"\n"), 0o600))

	select {
	case voice := <-changed:
		assert.Equal(t, "Fred", voice)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	assert.Equal(t, "Fred", watcher.Current().TTS.Voice)
}

func TestWatcher_KeepsLastValidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[tts]\nvoice = \"Alex\"\n")

	watcher, err := config.NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, watcher.Start())

	defer func() { require.NoError(t, watcher.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("[tts]\nrate = -5\n"), 0o600))

	assert.Never(t, func() bool {
		return watcher.Current().TTS.Voice != "Alex"
	}, time.Second, 50*time.Millisecond)
}
