// Package core defines the shared types and capability interfaces of the
// speech notification pipeline.
package core

import "context"

// FilterOptions toggles the optional ContentFilter stages.
type FilterOptions struct {
	Sensitive      bool `toml:"sensitive"`
	SkipCodeBlocks bool `toml:"skip_code_blocks"`
	SkipCommands   bool `toml:"skip_commands"`
}

// TTSConfig holds the settings for a single speak call.
// It is passed by value and never modified by the pipeline.
type TTSConfig struct {
	Enabled   bool          `toml:"enabled"`
	Voice     string        `toml:"voice"`
	Rate      int           `toml:"rate"`
	Volume    int           `toml:"volume"`
	MinLength int           `toml:"min_length"`
	MaxLength int           `toml:"max_length"`
	Filters   FilterOptions `toml:"filters"`
}

// VoiceOptions returns the subset of the config handed to the synthesizer.
func (c TTSConfig) VoiceOptions() VoiceOptions {
	return VoiceOptions{
		Voice:  c.Voice,
		Rate:   c.Rate,
		Volume: c.Volume,
	}
}

// VoiceOptions are passed opaquely to a Synthesizer.
type VoiceOptions struct {
	Voice  string
	Rate   int
	Volume int
}

// Voice describes an installed voice.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Dispatch reports what a speak call did with an utterance.
type Dispatch struct {
	Spoken bool   `json:"spoken"`
	Reason string `json:"reason,omitempty"`
}

// Synthesizer is the speech capability: it vocalizes text.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts VoiceOptions) error
	Stop()
	IsSpeaking() bool
	Voices(ctx context.Context) ([]Voice, error)
}

// Speaker decides whether to vocalize an utterance and dispatches it.
type Speaker interface {
	Speak(ctx context.Context, text string, cfg TTSConfig) Dispatch
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
