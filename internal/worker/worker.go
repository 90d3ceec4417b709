// Package worker provides a NATS worker that speaks notifications published
// by other processes.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/book-expert/events"
	"github.com/nats-io/nats.go"
)

// handleMessageTimeout bounds download plus speech for one notification.
const handleMessageTimeout = 2 * time.Minute

var (
	// ErrTextKeyEmpty indicates an event without a text key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrNoSpeaker indicates the worker was built without a speaker.
	ErrNoSpeaker = errors.New("speaker cannot be nil")
	// ErrNoObjectStore indicates the worker was built without an object store.
	ErrNoObjectStore = errors.New("object store cannot be nil")
	// ErrNoConfig indicates the worker was built without a config function.
	ErrNoConfig = errors.New("config function cannot be nil")
)

// ConfigFunc returns the TTS config to use for the next notification.
type ConfigFunc func() core.TTSConfig

// Ack is the reply sent for every notification.
type Ack struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Spoken     bool   `json:"spoken"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NatsWorker listens for notification events on a NATS subject and speaks them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	speaker        core.Speaker
	config         ConfigFunc
	log            *logging.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	speaker core.Speaker,
	config ConfigFunc,
	log *logging.Logger,
) (*NatsWorker, error) {
	if speaker == nil {
		return nil, ErrNoSpeaker
	}

	if store == nil {
		return nil, ErrNoObjectStore
	}

	if config == nil {
		return nil, ErrNoConfig
	}

	if log == nil {
		log = logging.Nop()
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		speaker:        speaker,
		config:         config,
		log:            log,
	}, nil
}

// Run subscribes and handles messages until ctx is done.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Worker listening", map[string]string{"subject": w.subject})

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event", map[string]string{"error": err.Error()})
		w.reply(msg, Ack{Error: err.Error()})

		return
	}

	workflowID := event.Header.WorkflowID

	dispatch, err := w.processNotification(ctx, event)
	if err != nil {
		w.log.Error("Failed to process notification", map[string]string{
			"workflow_id": workflowID,
			"error":       err.Error(),
		})
		w.reply(msg, Ack{WorkflowID: workflowID, Error: err.Error()})

		return
	}

	w.log.Debug("Notification handled", map[string]any{
		"workflow_id": workflowID,
		"spoken":      dispatch.Spoken,
		"reason":      dispatch.Reason,
	})

	w.reply(msg, Ack{WorkflowID: workflowID, Spoken: dispatch.Spoken, Reason: dispatch.Reason})
}

// processNotification downloads the utterance and hands it to the speaker.
func (w *NatsWorker) processNotification(ctx context.Context, event *events.TextProcessedEvent) (core.Dispatch, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return core.Dispatch{}, fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	ttsCfg := w.config()
	if event.Voice != "" {
		ttsCfg.Voice = event.Voice
	}

	return w.speaker.Speak(ctx, string(textData), ttsCfg), nil
}

// reply responds when the publisher asked for a reply.
func (w *NatsWorker) reply(msg *nats.Msg, ack Ack) {
	if msg.Reply == "" {
		return
	}

	replyData, err := json.Marshal(ack)
	if err != nil {
		w.log.Error("Failed to marshal ack", map[string]string{"error": err.Error()})

		return
	}

	err = msg.Respond(replyData)
	if err != nil {
		w.log.Error("Failed to publish ack", map[string]string{"error": err.Error()})
	}
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}
