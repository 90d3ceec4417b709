package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/agent-speech/internal/mute"
	"github.com/spf13/cobra"
)

func speakCmd(application *app) *cobra.Command {
	var (
		tool   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Speak text given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			return application.speak(cmd, text, tool, dryRun)
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "", "Calling integration, e.g. claude-code")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the filtered text instead of speaking it")

	return cmd
}

// readText joins args, or reads stdin when there are none.
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read text from stdin: %w", err)
	}

	return string(data), nil
}

func (a *app) speak(cmd *cobra.Command, text, tool string, dryRun bool) error {
	out := cmd.OutOrStdout()
	speech := a.newSpeech()
	ttsCfg := a.cfg.ForTool(tool)

	if dryRun {
		result := speech.FilterText(text, ttsCfg)
		if !result.ShouldSpeak {
			fmt.Fprintf(out, "skipped: %s\n", result.Reason)

			return nil
		}

		fmt.Fprintln(out, result.Text)

		return nil
	}

	state, err := a.muteStore().Status()
	if err != nil {
		return fmt.Errorf("failed to read mute state: %w", err)
	}

	if state.Muted {
		fmt.Fprintf(out, "skipped: muted (%s)\n", mute.Describe(state))

		return nil
	}

	dispatch := speech.Speak(cmd.Context(), text, ttsCfg)
	if !dispatch.Spoken {
		fmt.Fprintf(out, "skipped: %s\n", dispatch.Reason)

		return nil
	}

	fmt.Fprintln(out, "spoken")

	return nil
}
