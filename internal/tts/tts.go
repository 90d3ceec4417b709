// Package tts provides the TextToSpeech orchestrator that decides whether an
// utterance is spoken and hands it to the speech capability.
package tts

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/agent-speech/internal/filter"
	"github.com/book-expert/agent-speech/internal/logging"
)

// Dispatch reasons that do not come from the filter.
const (
	ReasonGloballyDisabled = "speech globally disabled"
	ReasonConfigDisabled   = "speech disabled by config"
	ReasonSpeakFailed      = "speech capability failed"
)

// errSynthesizerPanic wraps a recovered panic from the speech capability.
var errSynthesizerPanic = errors.New("speech capability panicked")

// TextToSpeech filters utterances and dispatches them to a core.Synthesizer.
// A missed notification never propagates as an error.
type TextToSpeech struct {
	synth   core.Synthesizer
	filter  *filter.ContentFilter
	log     *logging.Logger
	enabled atomic.Bool
}

// New creates a TextToSpeech around synth. A nil log disables logging.
func New(synth core.Synthesizer, log *logging.Logger) *TextToSpeech {
	if log == nil {
		log = logging.Nop()
	}

	t := &TextToSpeech{
		synth:  synth,
		filter: filter.New(),
		log:    log,
	}
	t.enabled.Store(true)

	return t
}

// Speak filters text with cfg and, when it survives, speaks it. It returns
// once the synthesizer has finished or failed.
func (t *TextToSpeech) Speak(ctx context.Context, text string, cfg core.TTSConfig) core.Dispatch {
	if !t.enabled.Load() {
		return core.Dispatch{Spoken: false, Reason: ReasonGloballyDisabled}
	}

	if !cfg.Enabled {
		return core.Dispatch{Spoken: false, Reason: ReasonConfigDisabled}
	}

	result := t.filter.Filter(text, cfg)
	if !result.ShouldSpeak {
		t.log.Debug("Skipping utterance: "+result.Reason, map[string]int{"length": len(text)})

		return core.Dispatch{Spoken: false, Reason: result.Reason}
	}

	err := t.dispatch(ctx, result.Text, cfg.VoiceOptions())
	if err != nil {
		t.log.Error("Failed to speak utterance", map[string]any{
			"length":           len(text),
			"sanitized_length": len(result.Text),
			"error":            err.Error(),
		})

		return core.Dispatch{Spoken: false, Reason: ReasonSpeakFailed}
	}

	return core.Dispatch{Spoken: true, Reason: ""}
}

// dispatch calls the synthesizer, turning a panic into an error.
func (t *TextToSpeech) dispatch(ctx context.Context, text string, opts core.VoiceOptions) (err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = fmt.Errorf("%w: %v", errSynthesizerPanic, recovered)
		}
	}()

	return t.synth.Speak(ctx, text, opts)
}

// Stop interrupts the current utterance. It is a no-op when idle.
func (t *TextToSpeech) Stop() {
	t.synth.Stop()
}

// IsSpeaking reports whether the synthesizer is speaking.
func (t *TextToSpeech) IsSpeaking() bool {
	return t.synth.IsSpeaking()
}

// Voices lists the synthesizer's voices in the order it returns them.
func (t *TextToSpeech) Voices(ctx context.Context) ([]core.Voice, error) {
	voices, err := t.synth.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	return voices, nil
}

// SetEnabled sets the global gate.
func (t *TextToSpeech) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// IsEnabled reports the global gate.
func (t *TextToSpeech) IsEnabled() bool {
	return t.enabled.Load()
}

// FilterText runs the content filter without speaking.
func (t *TextToSpeech) FilterText(text string, cfg core.TTSConfig) filter.Result {
	return t.filter.Filter(text, cfg)
}

// DetectSensitive reports whether text looks like it carries a credential.
func (t *TextToSpeech) DetectSensitive(text string) bool {
	return t.filter.DetectSensitive(text)
}

// RemoveCodeBlocks strips code from text.
func (t *TextToSpeech) RemoveCodeBlocks(text string) string {
	return t.filter.RemoveCodeBlocks(text)
}
