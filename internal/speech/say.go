// Package speech provides the production speech capability, a wrapper
// around the macOS say command or any binary with the same flags.
package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/book-expert/agent-speech/internal/core"
)

// DefaultBinary is the say command looked up on PATH.
const DefaultBinary = "say"

const (
	maxVolume = 100
	// voiceLinePattern matches "Name   en_US    # sample sentence".
	voiceLinePattern = `^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`
	voiceNamePattern = `^[A-Za-z0-9 ()_.-]+$`
)

var (
	// ErrEmptyText indicates that there is nothing to speak.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrInvalidVoice indicates a voice name with characters say would not accept.
	ErrInvalidVoice = errors.New("voice contains invalid characters")
)

var (
	voiceLine = regexp.MustCompile(voiceLinePattern)
	voiceName = regexp.MustCompile(voiceNamePattern)
)

// SayCommand implements core.Synthesizer by running the say binary.
// Starting a new utterance kills the one in flight.
type SayCommand struct {
	binaryPath string

	mu      sync.Mutex
	current *exec.Cmd
}

// NewSayCommand creates a SayCommand. An empty binaryPath means DefaultBinary.
func NewSayCommand(binaryPath string) *SayCommand {
	if binaryPath == "" {
		binaryPath = DefaultBinary
	}

	return &SayCommand{binaryPath: binaryPath}
}

// Speak runs say and waits for it to finish.
func (s *SayCommand) Speak(ctx context.Context, text string, opts core.VoiceOptions) error {
	args, err := BuildArgs(text, opts)
	if err != nil {
		return err
	}

	// #nosec G204 -- arguments are passed without a shell and the voice is validated
	cmd := exec.CommandContext(ctx, s.binaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.mu.Lock()
	s.killLocked()

	err = cmd.Start()
	if err != nil {
		s.mu.Unlock()

		return fmt.Errorf("failed to start %s: %w", s.binaryPath, err)
	}

	s.current = cmd
	s.mu.Unlock()

	waitErr := cmd.Wait()

	s.mu.Lock()
	// Stop or a newer Speak already cleared current; being cut off is not a failure.
	interrupted := s.current != cmd
	if !interrupted {
		s.current = nil
	}
	s.mu.Unlock()

	if waitErr != nil && !interrupted {
		return fmt.Errorf("%s execution failed: %w - output: %s", s.binaryPath, waitErr, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Stop kills the running utterance, if any.
func (s *SayCommand) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.killLocked()
}

// IsSpeaking reports whether an utterance is running.
func (s *SayCommand) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current != nil
}

// Voices runs `say -v ?` and parses its listing.
func (s *SayCommand) Voices(ctx context.Context) ([]core.Voice, error) {
	// #nosec G204 -- fixed arguments
	output, err := exec.CommandContext(ctx, s.binaryPath, "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices with %s: %w", s.binaryPath, err)
	}

	return ParseVoices(output), nil
}

func (s *SayCommand) killLocked() {
	if s.current == nil || s.current.Process == nil {
		return
	}

	_ = s.current.Process.Kill()
	s.current = nil
}

// BuildArgs converts text and opts into say arguments.
func BuildArgs(text string, opts core.VoiceOptions) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	var args []string

	if opts.Voice != "" {
		if !voiceName.MatchString(opts.Voice) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVoice, opts.Voice)
		}

		args = append(args, "-v", opts.Voice)
	}

	if opts.Rate > 0 {
		args = append(args, "-r", strconv.Itoa(opts.Rate))
	}

	// say has no volume flag; the embedded volm command sets it for this utterance.
	if opts.Volume >= 0 && opts.Volume < maxVolume {
		text = fmt.Sprintf("[[volm %.2f]] %s", float64(opts.Volume)/maxVolume, text)
	}

	// "--" keeps text starting with a dash from being read as a flag.
	return append(args, "--", text), nil
}

// ParseVoices parses the output of `say -v ?`. Lines that do not look like
// voice entries are skipped.
func ParseVoices(output []byte) []core.Voice {
	var voices []core.Voice

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		match := voiceLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		voices = append(voices, core.Voice{
			Name:     strings.TrimSpace(match[1]),
			Language: strings.ReplaceAll(match[2], "_", "-"),
		})
	}

	return voices
}
