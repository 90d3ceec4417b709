// main package for the agent-speech command
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/agent-speech/internal/config"
	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/book-expert/agent-speech/internal/mute"
	"github.com/book-expert/agent-speech/internal/speech"
	"github.com/book-expert/agent-speech/internal/tts"
	"github.com/book-expert/logger"
	"github.com/spf13/cobra"
)

const (
	bootstrapLogFileName = "agent-speech-bootstrap.log"
	defaultConfigFile    = "config.toml"
)

// app holds what every command needs after bootstrap.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logging.Logger
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent-speech exited with error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	application := &app{}

	cmd := &cobra.Command{
		Use:           "agent-speech",
		Short:         "Speak short notifications from coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return application.bootstrap()
		},
	}

	cmd.PersistentFlags().StringVar(&application.configPath, "config", "",
		"Path to a TOML config file (defaults to the central configurator)")

	cmd.AddCommand(
		serveCmd(application),
		speakCmd(application),
		statusCmd(application),
		muteCmd(application),
		unmuteCmd(application),
		voicesCmd(application),
		workerCmd(application),
		publishCmd(application),
	)

	return cmd
}

// bootstrap loads the config with a temporary logger, then builds the
// diagnostic logger the config asks for.
func (a *app) bootstrap() error {
	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogFileName)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	defer func() {
		closeErr := bootstrapLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing bootstrap logger: %v\n", closeErr)
		}
	}()

	cfg, err := a.loadConfig(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	log, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		bootstrapLog.Error("Failed to create diagnostic logger: %v", err)

		return fmt.Errorf("failed to create diagnostic logger: %w", err)
	}

	a.cfg = cfg
	a.log = log

	return nil
}

func (a *app) loadConfig(bootstrapLog *logger.Logger) (*config.Config, error) {
	if a.configPath != "" {
		return config.LoadFile(a.configPath)
	}

	cfg, err := config.Load(bootstrapLog)
	if err == nil {
		return cfg, nil
	}

	fallback := filepath.Join(config.Default().Paths.ConfigDir, defaultConfigFile)
	bootstrapLog.Warn("Configurator unavailable (%v), using %s", err, fallback)
	a.configPath = fallback

	return config.LoadFile(fallback)
}

func (a *app) newSpeech() *tts.TextToSpeech {
	return tts.New(speech.NewSayCommand(a.cfg.Speech.BinaryPath), a.log)
}

func (a *app) muteStore() *mute.Store {
	return mute.NewStore(a.cfg.MutePath())
}
