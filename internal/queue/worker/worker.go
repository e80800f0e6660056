package worker

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/placehub/placehub/internal/jobs"
	"github.com/placehub/placehub/internal/observability"
	"github.com/placehub/placehub/internal/queue/redisclient"
)

// Queue is the transport the worker drains; tests fake it, production hands
// in the redis client.
type Queue interface {
	Enqueue(ctx context.Context, queue string, raw []byte) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// FileRemover deletes one stored blob by path.
type FileRemover interface {
	Delete(path string) error
}

type Config struct {
	QueueName   string
	PollTimeout time.Duration
}

type Worker struct {
	cfg   Config
	queue Queue
	files FileRemover
	log   *slog.Logger
	prom  *observability.Prom
}

func New(cfg Config, queue Queue, files FileRemover, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.QueueName == "" {
		cfg.QueueName = redisclient.CleanupQueue
	}

	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}

	return &Worker{
		cfg:   cfg,
		queue: queue,
		files: files,
		log:   log,
		prom:  prom,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		default:
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			w.log.Error("cleanup step failed", "err", err)
		}

		if !processed {
			continue
		}
	}
}

// ProcessOne drains a single message. The bool reports whether a message was
// handled at all, so callers can tell idle polls from work.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	raw, err := w.queue.Dequeue(ctx, w.cfg.QueueName, w.cfg.PollTimeout)

	if err != nil {
		if errors.Is(err, redisclient.ErrEmpty) {
			return false, nil
		}

		return false, err
	}

	j, err := jobs.DecodeJob(raw)

	if err != nil {
		// a poisoned message is dropped, not retried
		w.observe("failed", 0)
		return true, err
	}

	start := time.Now()

	err = w.execute(j)

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	w.observe("done", time.Since(start))
	w.log.Info("image removed", "job_id", j.ID, "attempts", j.Attempts)

	return true, nil
}

func (w *Worker) execute(j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	payload, ok := decoded.(jobs.ImageCleanupPayload)

	if !ok {
		return jobs.ErrPayloadTypeMismatch
	}

	err = w.files.Delete(payload.ImagePath)

	if err != nil {
		// already gone counts as done; the record delete is what mattered
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	return nil
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error) {
	j.Attempts++

	if j.Attempts >= j.MaxTries {
		w.observe("failed", 0)
		w.log.Error("image cleanup gave up", "job_id", j.ID, "path_err", cause, "attempts", j.Attempts)
		return
	}

	time.Sleep(ExponentialBackoff(j.Attempts))

	raw, err := jobs.EncodeJob(j)

	if err != nil {
		w.observe("failed", 0)
		w.log.Error("could not re-encode cleanup job", "job_id", j.ID, "err", err)
		return
	}

	err = w.queue.Enqueue(ctx, w.cfg.QueueName, raw)

	if err != nil {
		w.observe("failed", 0)
		w.log.Error("could not re-enqueue cleanup job", "job_id", j.ID, "err", err)
		return
	}

	w.observe("retry", 0)
	w.log.Warn("image cleanup retry scheduled", "job_id", j.ID, "attempts", j.Attempts, "cause", cause)
}

func (w *Worker) observe(result string, d time.Duration) {
	if w.prom == nil {
		return
	}

	w.prom.CleanupResults.WithLabelValues(result).Inc()

	if result == "done" {
		w.prom.CleanupDuration.WithLabelValues(result).Observe(d.Seconds())
	}
}
