package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/bootstrap"
	"agrichain/advisor/internal/callback"
	"agrichain/advisor/pkg/lmstfy"
)

func newCallbacksCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callbacks",
		Short: "Inspect recommendation callbacks",
	}
	cmd.AddCommand(newCallbacksTailCmd(opts))
	return cmd
}

func newCallbacksTailCmd(opts *options) *cobra.Command {
	var (
		queue string
		count int
		ttr   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Consume and print callbacks from the callback queue",
		Long: `Consumes recommendation callbacks (ACKing each one) and prints them as JSON.
The queue defaults to the first worker's callback_queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if queue == "" {
				queue = bootstrap.CallbackQueue(cfg)
			}
			if queue == "" {
				return errors.New("no callback queue configured, pass --queue")
			}

			log, err := opts.logger(cfg)
			if err != nil {
				return err
			}
			source, err := lmstfy.NewClient(cfg.Lmstfy)
			if err != nil {
				return err
			}

			printCallback := func(ctx context.Context, cb *model.RecommendationCallback) error {
				return writeJSON(cmd, cb)
			}
			consumer := callback.NewConsumer(source, printCallback, callback.Config{QueueName: queue, TTR: ttr}, log)
			return consumer.Run(cmd.Context(), count)
		},
	}

	f := cmd.Flags()
	f.StringVar(&queue, "queue", "", "Callback queue name")
	f.IntVarP(&count, "count", "n", 1, "Stop after n callbacks (0: until interrupted)")
	f.DurationVar(&ttr, "ttr", 30*time.Second, "Time-to-run before an unacked callback is redelivered")
	return cmd
}
