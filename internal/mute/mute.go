// Package mute manages the mute file that silences speech for a while or
// until it is removed.
package mute

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	permanentDuration = "permanent"
	dirPerm           = 0o755
	filePerm          = 0o644
)

// ErrNegativeDuration indicates a mute duration below zero.
var ErrNegativeDuration = errors.New("mute duration cannot be negative")

// State describes the current mute.
type State struct {
	Muted     bool
	Permanent bool
	Until     time.Time
	Remaining time.Duration
	// Cleared is set when Status removed an expired or corrupt file.
	Cleared string
}

// fileContent is the on-disk format. A nil Until means a permanent mute.
type fileContent struct {
	Until    *time.Time `json:"until"`
	Duration string     `json:"duration"`
}

// Store reads and writes the mute file at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// NewStoreWithClock creates a Store whose notion of now is supplied by now.
func NewStoreWithClock(path string, now func() time.Time) *Store {
	return &Store{path: path, now: now}
}

// Path returns the mute file location.
func (s *Store) Path() string {
	return s.path
}

// Mute silences speech for d, or permanently when d is zero.
func (s *Store) Mute(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeDuration, d)
	}

	content := fileContent{Until: nil, Duration: permanentDuration}

	if d > 0 {
		until := s.now().Add(d).UTC()
		content.Until = &until
		content.Duration = d.String()
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mute file: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(s.path), dirPerm)
	if err != nil {
		return fmt.Errorf("failed to create mute directory: %w", err)
	}

	err = os.WriteFile(s.path, data, filePerm)
	if err != nil {
		return fmt.Errorf("failed to write mute file '%s': %w", s.path, err)
	}

	return nil
}

// Unmute removes the mute file. It is not an error if none exists.
func (s *Store) Unmute() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove mute file '%s': %w", s.path, err)
	}

	return nil
}

// Status reports the current mute. Expired and unreadable mute files are
// removed and reported as not muted.
func (s *Store) Status() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, nil
		}

		return State{}, fmt.Errorf("failed to read mute file '%s': %w", s.path, err)
	}

	var content fileContent

	err = json.Unmarshal(data, &content)
	if err != nil {
		return s.clear("corrupt")
	}

	if content.Until == nil {
		return State{Muted: true, Permanent: true}, nil
	}

	remaining := content.Until.Sub(s.now())
	if remaining <= 0 {
		return s.clear("expired")
	}

	return State{Muted: true, Until: *content.Until, Remaining: remaining}, nil
}

// IsMuted is Status without the detail. Errors count as not muted.
func (s *Store) IsMuted() bool {
	state, err := s.Status()

	return err == nil && state.Muted
}

func (s *Store) clear(why string) (State, error) {
	err := s.Unmute()
	if err != nil {
		return State{}, err
	}

	return State{Cleared: why}, nil
}

// Describe renders a state for humans, e.g. "1 hour and 5 minutes remaining".
func Describe(state State) string {
	switch {
	case state.Cleared == "expired":
		return "off (expired mute removed)"
	case state.Cleared != "":
		return "off (" + state.Cleared + " mute file removed)"
	case !state.Muted:
		return "off"
	case state.Permanent:
		return "permanent"
	}

	minutes := int(state.Remaining / time.Minute)
	hours := minutes / 60
	mins := minutes % 60

	if hours > 0 {
		return fmt.Sprintf("%s and %s remaining", plural(hours, "hour"), plural(mins, "minute"))
	}

	return plural(minutes, "minute") + " remaining"
}

func plural(count int, unit string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, unit)
	}

	return fmt.Sprintf("%d %ss", count, unit)
}
