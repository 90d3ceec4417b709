package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/agent-speech/internal/core"
	"github.com/book-expert/agent-speech/internal/objectstore"
	"github.com/book-expert/agent-speech/internal/worker"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"
)

const defaultPublishTimeout = time.Minute

func workerCmd(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Speak notifications published on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return application.runWorker(ctx)
		},
	}
}

func publishCmd(application *app) *cobra.Command {
	var (
		voice   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish [text]",
		Short: "Send text to a running worker over NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ack, err := application.publish(ctx, text, voice)
			if err != nil {
				return err
			}

			if !ack.Spoken {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s\n", ack.Reason)

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "spoken (workflow %s)\n", ack.WorkflowID)

			return nil
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Voice overriding the worker's configured voice")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultPublishTimeout, "How long to wait for the worker")

	return cmd
}

// connect opens NATS and binds the text object store.
func (a *app) connect(ctx context.Context) (*nats.Conn, core.ObjectStore, error) {
	natsConnection, err := nats.Connect(a.cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", a.cfg.NATS.URL, err)
	}

	js, err := jetstream.New(natsConnection)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(ctx, js, a.cfg.NATS.TextObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	return natsConnection, store, nil
}

func (a *app) runWorker(ctx context.Context) error {
	natsConnection, store, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer natsConnection.Close()

	configFunc := func() core.TTSConfig { return a.cfg.ForTool("") }

	workerInstance, err := worker.NewNatsWorker(
		natsConnection, a.cfg.NATS.NotifySubject, store, a.newSpeech(), configFunc, a.log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	return workerInstance.Run(ctx)
}

func (a *app) publish(ctx context.Context, text, voice string) (worker.Ack, error) {
	natsConnection, store, err := a.connect(ctx)
	if err != nil {
		return worker.Ack{}, err
	}
	defer natsConnection.Close()

	return worker.Publish(ctx, natsConnection, store, a.cfg.NATS.NotifySubject, text, voice)
}
