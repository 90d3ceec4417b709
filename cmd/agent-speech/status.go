package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/book-expert/agent-speech/internal/config"
	"github.com/book-expert/agent-speech/internal/mute"
	"github.com/spf13/cobra"
)

func statusCmd(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the speech settings and mute state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := application.muteStore().Status()
			if err != nil {
				return fmt.Errorf("failed to read mute state: %w", err)
			}

			out := cmd.OutOrStdout()
			cfg := application.cfg

			fmt.Fprintf(out, "enabled: %t\n", cfg.TTS.Enabled)
			fmt.Fprintf(out, "voice:   %s\n", cfg.TTS.Voice)
			fmt.Fprintf(out, "rate:    %d\n", cfg.TTS.Rate)
			fmt.Fprintf(out, "volume:  %d\n", cfg.TTS.Volume)
			fmt.Fprintf(out, "min length: %d\n", cfg.TTS.MinLength)
			fmt.Fprintf(out, "max length: %s\n", maxLengthLabel(cfg.TTS.MaxLength))
			fmt.Fprintf(out, "filter sensitive: %t\n", cfg.TTS.Filters.Sensitive)
			fmt.Fprintf(out, "filter code blocks: %t\n", cfg.TTS.Filters.SkipCodeBlocks)
			fmt.Fprintf(out, "filter commands: %t\n", cfg.TTS.Filters.SkipCommands)
			fmt.Fprintf(out, "mute:    %s\n", mute.Describe(state))

			for _, tool := range config.KnownTools {
				fmt.Fprintf(out, "tool %s: %t\n", tool, cfg.ToolEnabled(tool))
			}

			return nil
		},
	}
}

func maxLengthLabel(maxLength int) string {
	if maxLength == 0 {
		return "unlimited"
	}

	return strconv.Itoa(maxLength)
}

func muteCmd(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mute [duration]",
		Short: "Silence speech for a duration such as 30m, or until unmuted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var duration time.Duration

			if len(args) == 1 {
				parsed, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("failed to parse duration '%s': %w", args[0], err)
				}

				if parsed < 0 {
					return fmt.Errorf("%w: %s", mute.ErrNegativeDuration, args[0])
				}

				duration = parsed
			}

			store := application.muteStore()

			err := store.Mute(duration)
			if err != nil {
				return err
			}

			state, err := store.Status()
			if err != nil {
				return fmt.Errorf("failed to read mute state: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "muted: %s\n", mute.Describe(state))

			return nil
		},
	}
}

func unmuteCmd(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unmute",
		Short: "Remove the mute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := application.muteStore().Unmute()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "unmuted")

			return nil
		},
	}
}

func voicesCmd(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices of the speech backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			voices, err := application.newSpeech().Voices(cmd.Context())
			if err != nil {
				return err
			}

			for _, voice := range voices {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", voice.Name, voice.Language)
			}

			return nil
		},
	}
}
