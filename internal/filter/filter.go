// Package filter decides whether an utterance should be spoken and cleans it
// up before it reaches the synthesizer.
//
// Filtering runs as a fixed sequence of stages. Each stage works on the
// output of the previous one, so the order below is part of the contract:
// empty check, code removal, command output removal, whitespace
// normalisation, sensitive veto, length bounds.
package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/book-expert/agent-speech/internal/core"
)

// Skip reasons reported in Result.Reason.
const (
	ReasonEmpty          = "empty text"
	ReasonEmptyAfter     = "empty after filtering"
	ReasonSensitive      = "sensitive content detected"
	ReasonBelowMinLength = "text below minimum length"
)

// Regex patterns for code removal.
const (
	fencedBlockPattern = "(?s)```.*?```"
	openFencePattern   = "(?s)```.*\\z"
	inlineCodePattern  = "`[^`]+`"
	// Single line; inner edges are neither space nor digit, so currency such
	// as "$5 and 10$" survives. The shortest span wins.
	shellSpanPattern = `\$[^\s$\d](?:[^\n]*?[^\s$\d])??\$`
)

// Regex patterns for command output removal and normalisation.
const (
	separatorPattern  = `^(?:-{3,}|={3,})$`
	whitespacePattern = `\s+`
)

const replacement = " "

// statusTokens are build/test status words dropped when they form a whole line.
var statusTokens = map[string]struct{}{
	"SUCCESS":    {},
	"SUCCESSFUL": {},
	"FAILED":     {},
	"FAILURE":    {},
	"PASS":       {},
	"PASSED":     {},
	"FAIL":       {},
	"ERROR":      {},
	"OK":         {},
	"DONE":       {},
}

// Result is the outcome of Filter.
type Result struct {
	ShouldSpeak bool
	// Text is the sanitized utterance; only meaningful when ShouldSpeak is true.
	Text string
	// Reason explains a skip; empty when ShouldSpeak is true.
	Reason string
}

// ContentFilter holds the precompiled patterns of every stage.
// It has no mutable state and is safe for concurrent use.
type ContentFilter struct {
	fencedBlock *regexp.Regexp
	openFence   *regexp.Regexp
	inlineCode  *regexp.Regexp
	shellSpan   *regexp.Regexp
	separator   *regexp.Regexp
	whitespace  *regexp.Regexp
	sensitive   *sensitiveDetector
}

// New creates a ContentFilter with compiled patterns.
func New() *ContentFilter {
	return &ContentFilter{
		fencedBlock: regexp.MustCompile(fencedBlockPattern),
		openFence:   regexp.MustCompile(openFencePattern),
		inlineCode:  regexp.MustCompile(inlineCodePattern),
		shellSpan:   regexp.MustCompile(shellSpanPattern),
		separator:   regexp.MustCompile(separatorPattern),
		whitespace:  regexp.MustCompile(whitespacePattern),
		sensitive:   newSensitiveDetector(),
	}
}

// Filter runs every stage enabled by cfg and reports whether text should be spoken.
func (f *ContentFilter) Filter(text string, cfg core.TTSConfig) Result {
	if strings.TrimSpace(text) == "" {
		return skip(ReasonEmpty)
	}

	if cfg.Filters.SkipCodeBlocks {
		text = f.RemoveCodeBlocks(text)
	}

	if cfg.Filters.SkipCommands {
		text = f.RemoveCommandOutputs(text)
	}

	text = f.normalizeWhitespace(text)
	if text == "" {
		return skip(ReasonEmptyAfter)
	}

	if cfg.Filters.Sensitive && f.DetectSensitive(text) {
		return skip(ReasonSensitive)
	}

	if utf8.RuneCountInString(text) < cfg.MinLength {
		return skip(ReasonBelowMinLength)
	}

	if cfg.MaxLength > 0 {
		text = truncateRunes(text, cfg.MaxLength)
	}

	return Result{ShouldSpeak: true, Text: text, Reason: ""}
}

// RemoveCodeBlocks replaces fenced blocks, an unterminated trailing fence,
// inline code and $...$ shell spans with a single space. Backtick removal is
// repeated until nothing matches; shell spans are removed in one pass after
// it, which is already stable. The function is idempotent.
func (f *ContentFilter) RemoveCodeBlocks(text string) string {
	for {
		stripped := f.removeBackticksOnce(text)
		if stripped == text {
			break
		}

		text = stripped
	}

	return f.shellSpan.ReplaceAllLiteralString(text, replacement)
}

// removeBackticksOnce makes one pass over text. Every match is at least two
// bytes and becomes one, so repeated passes terminate.
func (f *ContentFilter) removeBackticksOnce(text string) string {
	text = f.fencedBlock.ReplaceAllLiteralString(text, replacement)
	text = f.openFence.ReplaceAllLiteralString(text, replacement)

	return f.inlineCode.ReplaceAllLiteralString(text, replacement)
}

// RemoveCommandOutputs drops separator lines and whole-line build/test status
// tokens. All other lines are kept verbatim.
func (f *ContentFilter) RemoveCommandOutputs(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]

	for _, line := range lines {
		if f.isCommandOutput(line) {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func (f *ContentFilter) isCommandOutput(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if f.separator.MatchString(trimmed) {
		return true
	}

	_, isStatus := statusTokens[trimmed]

	return isStatus
}

// DetectSensitive reports whether text looks like it carries a credential.
func (f *ContentFilter) DetectSensitive(text string) bool {
	return f.sensitive.detect(text)
}

// normalizeWhitespace collapses whitespace runs, including line breaks, to a
// single space and trims the ends.
func (f *ContentFilter) normalizeWhitespace(text string) string {
	return strings.TrimSpace(f.whitespace.ReplaceAllLiteralString(text, replacement))
}

// truncateRunes keeps the first limit runes of text.
func truncateRunes(text string, limit int) string {
	count := 0

	for index := range text {
		if count == limit {
			return text[:index]
		}

		count++
	}

	return text
}

func skip(reason string) Result {
	return Result{ShouldSpeak: false, Text: "", Reason: reason}
}
