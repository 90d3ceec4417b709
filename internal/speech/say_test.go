// Package speech_test tests the say command wrapper.
package speech_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/agent-speech/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVoiceListing = `Albert              en_US    # Hello! My name is Albert.
Amélie              fr_CA    # Bonjour, je m’appelle Amélie.
Bad News            en_US    # Hello! My name is Bad News.
Eddy (English (US)) en_US    # Hello! My name is Eddy.
not a voice line
Samantha            en_US    # Hello! My name is Samantha.
`

func requireBinary(t *testing.T, name string) string {
	t.Helper()

	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}

	return path
}

// writeScript creates an executable shell script standing in for say.
// Tests that use it stay serial so no fork inherits a script still open for writing.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	requireBinary(t, "sh")

	path := filepath.Join(t.TempDir(), "fake-say")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))

	return path
}

func TestParseVoices(t *testing.T) {
	t.Parallel()

	voices := speech.ParseVoices([]byte(sampleVoiceListing))

	expected := []core.Voice{
		{Name: "Albert", Language: "en-US"},
		{Name: "Amélie", Language: "fr-CA"},
		{Name: "Bad News", Language: "en-US"},
		{Name: "Eddy (English (US))", Language: "en-US"},
		{Name: "Samantha", Language: "en-US"},
	}
	assert.Equal(t, expected, voices)
}

func TestParseVoices_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, speech.ParseVoices(nil))
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		opts     core.VoiceOptions
		expected []string
	}{
		{
			name:     "all options",
			text:     "hello",
			opts:     core.VoiceOptions{Voice: "Samantha", Rate: 200, Volume: 50},
			expected: []string{"-v", "Samantha", "-r", "200", "--", "[[volm 0.50]] hello"},
		},
		{
			name:     "full volume and default voice",
			text:     "hello",
			opts:     core.VoiceOptions{Voice: "", Rate: 0, Volume: 100},
			expected: []string{"--", "hello"},
		},
		{
			name:     "voice with parentheses",
			text:     "-dash first",
			opts:     core.VoiceOptions{Voice: "Eddy (English (US))", Rate: 0, Volume: 100},
			expected: []string{"-v", "Eddy (English (US))", "--", "-dash first"},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			args, err := speech.BuildArgs(testCase.text, testCase.opts)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, args)
		})
	}
}

func TestBuildArgs_Errors(t *testing.T) {
	t.Parallel()

	_, err := speech.BuildArgs("  ", core.VoiceOptions{})
	require.ErrorIs(t, err, speech.ErrEmptyText)

	_, err = speech.BuildArgs("hi", core.VoiceOptions{Voice: "Alex; rm -rf /"})
	require.ErrorIs(t, err, speech.ErrInvalidVoice)
}

func TestSayCommand_SpeakSuccess(t *testing.T) {
	say := speech.NewSayCommand(writeScript(t, "exit 0"))

	err := say.Speak(context.Background(), "hello", core.VoiceOptions{Volume: 100})
	require.NoError(t, err)
	assert.False(t, say.IsSpeaking())
}

func TestSayCommand_SpeakFailure(t *testing.T) {
	say := speech.NewSayCommand(writeScript(t, "echo boom >&2; exit 3"))

	err := say.Speak(context.Background(), "hello", core.VoiceOptions{Volume: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSayCommand_MissingBinary(t *testing.T) {
	t.Parallel()

	say := speech.NewSayCommand(filepath.Join(t.TempDir(), "does-not-exist"))

	err := say.Speak(context.Background(), "hello", core.VoiceOptions{})
	require.Error(t, err)
}

func TestSayCommand_StopInterruptsWithoutError(t *testing.T) {
	say := speech.NewSayCommand(writeScript(t, "exec sleep 30"))

	done := make(chan error, 1)

	go func() {
		done <- say.Speak(context.Background(), "a long utterance", core.VoiceOptions{Volume: 100})
	}()

	require.Eventually(t, say.IsSpeaking, 5*time.Second, 10*time.Millisecond)

	say.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Speak did not return after Stop")
	}

	assert.False(t, say.IsSpeaking())
}

func TestSayCommand_StopWhenIdle(t *testing.T) {
	t.Parallel()

	say := speech.NewSayCommand("")

	assert.NotPanics(t, say.Stop)
	assert.False(t, say.IsSpeaking())
}

func TestSayCommand_Voices(t *testing.T) {
	script := writeScript(t, "cat <<'EOF'\n"+sampleVoiceListing+"EOF")
	say := speech.NewSayCommand(script)

	voices, err := say.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 5)
	assert.Equal(t, "Albert", voices[0].Name)
	assert.Equal(t, "Samantha", voices[4].Name)
}
