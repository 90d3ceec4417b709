// Package tts_test tests the TextToSpeech orchestrator.
package tts_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/agent-speech/internal/filter"
	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/book-expert/agent-speech/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockSpeak = errors.New("mock speak error")

// mockSynthesizer is a mock implementation of the core.Synthesizer interface.
type mockSynthesizer struct {
	speakShouldFail  bool
	speakShouldPanic bool
	speakCalls       int
	spokenText       string
	spokenOpts       core.VoiceOptions
	stopCalls        int
	speaking         bool
	voices           []core.Voice
}

func (m *mockSynthesizer) Speak(_ context.Context, text string, opts core.VoiceOptions) error {
	m.speakCalls++

	if m.speakShouldPanic {
		panic("backend exploded")
	}

	if m.speakShouldFail {
		return errMockSpeak
	}

	m.spokenText = text
	m.spokenOpts = opts

	return nil
}

func (m *mockSynthesizer) Stop() {
	m.stopCalls++
}

func (m *mockSynthesizer) IsSpeaking() bool {
	return m.speaking
}

func (m *mockSynthesizer) Voices(_ context.Context) ([]core.Voice, error) {
	return m.voices, nil
}

func defaultConfig() core.TTSConfig {
	return core.TTSConfig{
		Enabled:   true,
		Voice:     "Samantha",
		Rate:      200,
		Volume:    50,
		MinLength: 10,
		MaxLength: 0,
		Filters: core.FilterOptions{
			Sensitive:      true,
			SkipCodeBlocks: true,
			SkipCommands:   true,
		},
	}
}

func newDebugLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer

	cfg := logging.DefaultConfig()
	cfg.Level = logging.LevelDebug
	cfg.Stderr = &buf

	log, err := logging.New(cfg)
	require.NoError(t, err)

	return log, &buf
}

func TestSpeak_SpeaksSanitizedText(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	speaker := tts.New(synth, nil)

	dispatch := speaker.Speak(context.Background(), "Hello world, `code` this is a test message", defaultConfig())

	assert.True(t, dispatch.Spoken)
	assert.Empty(t, dispatch.Reason)
	assert.Equal(t, 1, synth.speakCalls)
	assert.Equal(t, "Hello world, this is a test message", synth.spokenText)
	assert.Equal(t, core.VoiceOptions{Voice: "Samantha", Rate: 200, Volume: 50}, synth.spokenOpts)
}

func TestSpeak_ConfigDisabled(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	speaker := tts.New(synth, nil)

	cfg := defaultConfig()
	cfg.Enabled = false

	dispatch := speaker.Speak(context.Background(), "Hello world, this is a test", cfg)

	assert.False(t, dispatch.Spoken)
	assert.Equal(t, tts.ReasonConfigDisabled, dispatch.Reason)
	assert.Zero(t, synth.speakCalls)
}

func TestSpeak_GloballyDisabledNeverCallsSynthesizer(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	log, buf := newDebugLogger(t)
	speaker := tts.New(synth, log)
	speaker.SetEnabled(false)

	inputs := []string{
		"Hello world, this is a perfectly speakable message",
		"",
		"password: hunter2",
	}

	for _, input := range inputs {
		dispatch := speaker.Speak(context.Background(), input, defaultConfig())
		assert.False(t, dispatch.Spoken)
		assert.Equal(t, tts.ReasonGloballyDisabled, dispatch.Reason)
	}

	assert.Zero(t, synth.speakCalls)
	assert.Empty(t, buf.String())
}

func TestSpeak_FilterVetoLogsAtDebug(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	log, buf := newDebugLogger(t)
	speaker := tts.New(synth, log)

	dispatch := speaker.Speak(context.Background(), "Your API key is sk-1234567890abcdef", defaultConfig())

	assert.False(t, dispatch.Spoken)
	assert.Equal(t, filter.ReasonSensitive, dispatch.Reason)
	assert.Zero(t, synth.speakCalls)
	assert.Contains(t, buf.String(), "[DEBUG] Skipping utterance: "+filter.ReasonSensitive)
	assert.NotContains(t, buf.String(), "sk-1234567890abcdef")
}

func TestSpeak_FailureIsSwallowedAndLoggedWithoutText(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{speakShouldFail: true}
	log, buf := newDebugLogger(t)
	speaker := tts.New(synth, log)

	text := "The deployment finished without problems"

	var dispatch core.Dispatch

	assert.NotPanics(t, func() {
		dispatch = speaker.Speak(context.Background(), text, defaultConfig())
	})

	assert.False(t, dispatch.Spoken)
	assert.Equal(t, tts.ReasonSpeakFailed, dispatch.Reason)
	assert.Contains(t, buf.String(), "[ERROR] Failed to speak utterance")
	assert.Contains(t, buf.String(), "length:40")
	assert.NotContains(t, buf.String(), text)
}

func TestSpeak_FailureLogsOriginalLength(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{speakShouldFail: true}
	log, buf := newDebugLogger(t)
	speaker := tts.New(synth, log)

	speaker.Speak(context.Background(), "Deployment finished `make deploy` without problems", defaultConfig())

	assert.Contains(t, buf.String(), "length:50")
	assert.Contains(t, buf.String(), "sanitized_length:36")
}

func TestSpeak_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{speakShouldPanic: true}
	speaker := tts.New(synth, nil)

	var dispatch core.Dispatch

	require.NotPanics(t, func() {
		dispatch = speaker.Speak(context.Background(), "Hello world, this is a test", defaultConfig())
	})

	assert.False(t, dispatch.Spoken)
	assert.Equal(t, tts.ReasonSpeakFailed, dispatch.Reason)
}

func TestStop_ForwardsToSynthesizer(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	speaker := tts.New(synth, nil)

	speaker.Stop()
	speaker.Stop()

	assert.Equal(t, 2, synth.stopCalls)
}

func TestIsSpeaking_ForwardsToSynthesizer(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	speaker := tts.New(synth, nil)

	assert.False(t, speaker.IsSpeaking())

	synth.speaking = true
	assert.True(t, speaker.IsSpeaking())
}

func TestVoices_KeepsSynthesizerOrder(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{voices: []core.Voice{
		{Name: "Samantha", Language: "en-US"},
		{Name: "Alex", Language: "en-US"},
		{Name: "Amélie", Language: "fr-CA"},
	}}
	speaker := tts.New(synth, nil)

	voices, err := speaker.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, synth.voices, voices)
}

func TestSetEnabled(t *testing.T) {
	t.Parallel()

	speaker := tts.New(&mockSynthesizer{}, nil)
	assert.True(t, speaker.IsEnabled())

	speaker.SetEnabled(false)
	assert.False(t, speaker.IsEnabled())

	speaker.SetEnabled(true)
	assert.True(t, speaker.IsEnabled())
}

func TestPassThroughs(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	speaker := tts.New(synth, nil)

	result := speaker.FilterText("Hello world, `x` preview only", defaultConfig())
	assert.True(t, result.ShouldSpeak)
	assert.Equal(t, "Hello world, preview only", result.Text)

	assert.True(t, speaker.DetectSensitive("password: secret123"))
	assert.False(t, speaker.DetectSensitive("Hello world"))

	assert.Equal(t, "Here is some code   and more text",
		speaker.RemoveCodeBlocks("Here is some code ```const x = 1;``` and more text"))

	assert.Zero(t, synth.speakCalls)
}
