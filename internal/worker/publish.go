package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrWorkerRejected indicates the worker replied with an error.
var ErrWorkerRejected = errors.New("worker rejected notification")

// Publish stores text under a fresh key and asks the worker on subject to
// speak it. An empty voice leaves the worker's configured voice in place.
func Publish(
	ctx context.Context,
	natsConnection *nats.Conn,
	store core.ObjectStore,
	subject, text, voice string,
) (Ack, error) {
	workflowID := uuid.NewString()
	textKey := workflowID + ".txt"

	err := store.Upload(ctx, textKey, []byte(text))
	if err != nil {
		return Ack{}, fmt.Errorf("failed to upload text for key '%s': %w", textKey, err)
	}

	event := events.TextProcessedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: workflowID,
			EventID:    uuid.NewString(),
		},
		TextKey: textKey,
		Voice:   voice,
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	replyMsg, err := natsConnection.RequestWithContext(ctx, subject, eventData)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to request speech on subject %s: %w", subject, err)
	}

	var ack Ack

	err = json.Unmarshal(replyMsg.Data, &ack)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to unmarshal ack: %w", err)
	}

	if ack.Error != "" {
		return ack, fmt.Errorf("%w: %s", ErrWorkerRejected, ack.Error)
	}

	return ack, nil
}
