package main

import (
	"fmt"

	"github.com/book-expert/agent-speech/internal/config"
	"github.com/book-expert/agent-speech/internal/mcpserver"
	"github.com/spf13/cobra"
)

func serveCmd(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return application.serve()
		},
	}
}

func (a *app) serve() error {
	var source mcpserver.ConfigSource = mcpserver.StaticConfig{Config: a.cfg}

	if a.configPath != "" {
		watcher, err := config.NewWatcher(a.configPath, a.log)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}

		watcher.OnChange(func(cfg *config.Config) {
			logCfg := cfg.LoggerConfig()
			a.log.Enable(logCfg.Enabled)
			a.log.SetLevel(logCfg.Level)
		})

		err = watcher.Start()
		if err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}

		defer func() {
			stopErr := watcher.Stop()
			if stopErr != nil {
				a.log.Warn("Failed to stop config watcher", map[string]string{"error": stopErr.Error()})
			}
		}()

		source = watcher
	}

	handlers := mcpserver.NewHandlers(a.newSpeech(), source, a.muteStore(), a.log)

	a.log.Info("MCP server starting", map[string]string{"name": mcpserver.Name, "version": mcpserver.Version})

	return mcpserver.Serve(handlers)
}
