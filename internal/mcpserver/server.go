// Package mcpserver exposes the speech pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/book-expert/agent-speech/internal/config"
	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/book-expert/agent-speech/internal/mute"
	"github.com/book-expert/agent-speech/internal/tts"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server identity reported to MCP clients.
const (
	Name    = "agent-speech"
	Version = "0.1.0"
)

const reasonMuted = "muted"

// ConfigSource supplies the config for each tool call.
type ConfigSource interface {
	Current() *config.Config
}

// StaticConfig is a ConfigSource that never changes.
type StaticConfig struct {
	Config *config.Config
}

// Current returns the wrapped config.
func (s StaticConfig) Current() *config.Config {
	return s.Config
}

// MuteChecker reports the current mute.
type MuteChecker interface {
	Status() (mute.State, error)
}

// Handlers implements the MCP tools.
type Handlers struct {
	speech *tts.TextToSpeech
	source ConfigSource
	muter  MuteChecker
	log    *logging.Logger
}

// NewHandlers creates the tool handlers. A nil muter never mutes.
func NewHandlers(speech *tts.TextToSpeech, source ConfigSource, muter MuteChecker, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.Nop()
	}

	return &Handlers{speech: speech, source: source, muter: muter, log: log}
}

// New builds an MCP server with every tool registered.
func New(handlers *Handlers) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	mcpServer.AddTool(mcp.NewTool("speak",
		mcp.WithDescription("Speak a short notification aloud after filtering code, command output and secrets"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to speak")),
		mcp.WithString("tool", mcp.Description("Calling integration, e.g. claude-code; selects its enable switch")),
	), handlers.Speak)

	mcpServer.AddTool(mcp.NewTool("stop",
		mcp.WithDescription("Stop the utterance in progress"),
	), handlers.Stop)

	mcpServer.AddTool(mcp.NewTool("list_voices",
		mcp.WithDescription("List the voices of the speech backend"),
	), handlers.ListVoices)

	mcpServer.AddTool(mcp.NewTool("set_enabled",
		mcp.WithDescription("Switch speech on or off for this server"),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to enable speech")),
	), handlers.SetEnabled)

	mcpServer.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Report whether speech is enabled, muted or speaking"),
	), handlers.Status)

	mcpServer.AddTool(mcp.NewTool("preview",
		mcp.WithDescription("Show what would be spoken for a text without speaking it"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to filter")),
		mcp.WithString("tool", mcp.Description("Calling integration")),
	), handlers.Preview)

	return mcpServer
}

// Serve runs the MCP server on stdio until the client disconnects.
func Serve(handlers *Handlers) error {
	err := server.ServeStdio(New(handlers))
	if err != nil {
		return fmt.Errorf("failed to serve MCP over stdio: %w", err)
	}

	return nil
}

// Speak handles the speak tool.
func (h *Handlers) Speak(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tool := request.GetString("tool", "")

	state := h.muteState()
	if state.Muted {
		h.log.Debug("Skipping utterance: "+reasonMuted, map[string]string{"tool": tool})

		return mcp.NewToolResultText(fmt.Sprintf("skipped: %s (%s)", reasonMuted, mute.Describe(state))), nil
	}

	dispatch := h.speech.Speak(ctx, text, h.source.Current().ForTool(tool))
	if !dispatch.Spoken {
		return mcp.NewToolResultText("skipped: " + dispatch.Reason), nil
	}

	return mcp.NewToolResultText("spoken"), nil
}

// Stop handles the stop tool.
func (h *Handlers) Stop(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.speech.Stop()

	return mcp.NewToolResultText("stopped"), nil
}

// ListVoices handles the list_voices tool.
func (h *Handlers) ListVoices(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	voices, err := h.speech.Voices(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(voices)
}

// SetEnabled handles the set_enabled tool.
func (h *Handlers) SetEnabled(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := request.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h.speech.SetEnabled(enabled)
	h.log.Info("Speech switched", map[string]bool{"enabled": enabled})

	if enabled {
		return mcp.NewToolResultText("speech enabled"), nil
	}

	return mcp.NewToolResultText("speech disabled"), nil
}

// StatusReport is the payload of the status tool.
type StatusReport struct {
	Enabled  bool   `json:"enabled"`
	Config   bool   `json:"config_enabled"`
	Speaking bool   `json:"speaking"`
	Mute     string `json:"mute"`
	Voice    string `json:"voice"`
	Rate     int    `json:"rate"`
	Volume   int    `json:"volume"`
}

// Status handles the status tool.
func (h *Handlers) Status(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.source.Current()

	return jsonResult(StatusReport{
		Enabled:  h.speech.IsEnabled(),
		Config:   cfg.TTS.Enabled,
		Speaking: h.speech.IsSpeaking(),
		Mute:     mute.Describe(h.muteState()),
		Voice:    cfg.TTS.Voice,
		Rate:     cfg.TTS.Rate,
		Volume:   cfg.TTS.Volume,
	})
}

// PreviewReport is the payload of the preview tool.
type PreviewReport struct {
	ShouldSpeak bool   `json:"should_speak"`
	Text        string `json:"text,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Preview handles the preview tool.
func (h *Handlers) Preview(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := h.speech.FilterText(text, h.source.Current().ForTool(request.GetString("tool", "")))

	return jsonResult(PreviewReport{ShouldSpeak: result.ShouldSpeak, Text: result.Text, Reason: result.Reason})
}

// muteState treats an unreadable mute file as not muted.
func (h *Handlers) muteState() mute.State {
	if h.muter == nil {
		return mute.State{}
	}

	state, err := h.muter.Status()
	if err != nil {
		h.log.Warn("Failed to read mute state", map[string]string{"error": err.Error()})

		return mute.State{}
	}

	return state
}

func jsonResult(value any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}
