package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server consuming the mail queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewWorker constructs a Worker processing email tasks.
func NewWorker(redisOpts asynq.RedisClientOpt, processor *Processor, logger *slog.Logger) *Worker {
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueMail: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskOrderConfirmation, processor.HandleOrderConfirmation)
	mux.HandleFunc(TaskOrderStatus, processor.HandleOrderStatus)
	mux.HandleFunc(TaskWishlistSale, processor.HandleWishlistSale)

	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
