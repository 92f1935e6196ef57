package crosspost

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Worker drains the fan-out queue. Tasks are processed one at a time.
type Worker struct {
	engine    *Engine
	batchSize int
}

func (e *Engine) NewWorker(batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Worker{engine: e, batchSize: batchSize}
}

// ProcessPending claims a batch of tasks and runs them, returning how many finished.
func (w *Worker) ProcessPending(ctx context.Context) (int, error) {
	tasks, err := w.engine.queue.Claim(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim fan-out tasks: %w", err)
	}

	processed := 0
	for i := range tasks {
		if err := w.processTask(ctx, &tasks[i]); err != nil {
			log.Error().Err(err).Uint("task", tasks[i].ID).Msg("Failed to finish fan-out task...")
			continue
		}
		processed++
	}
	return processed, nil
}

func (w *Worker) processTask(ctx context.Context, task *models.FanoutTask) error {
	var held *Notification
	if len(task.Held) > 0 {
		held = new(Notification)
		if err := jsoniter.Unmarshal(task.Held, held); err != nil {
			log.Warn().Err(err).Uint("task", task.ID).Msg("Unable to decode held notification, dropped...")
			held = nil
		}
	}

	run := NewRun()
	result, err := w.engine.Process(ctx, run, Request{
		TopicID:   task.TopicID,
		AccountID: task.AccountID,
		GroupIDs:  task.GroupIDs,
		Tags:      task.Tags,
		Title:     task.Title,
		Content:   task.Content,
	}, held)

	task.Status = models.FanoutTaskDone
	task.Result = result.Alert
	if err != nil {
		task.Status = models.FanoutTaskFailed
		task.Error = err.Error()
	}
	task.Title, task.Content, task.Tags, task.Held = "", "", "", nil
	task.FinishedAt = lo.ToPtr(time.Now())

	log.Info().
		Str("run", run.ID).
		Uint("task", task.ID).
		Uint("topic", task.TopicID).
		Int("duplicates", len(result.Duplicates)).
		Str("status", task.Status).
		Msg("Processed fan-out task.")

	return w.engine.queue.Finish(ctx, task)
}

// Run processes the queue every interval and whenever a task is submitted, until ctx is done.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessPending(ctx); err != nil {
			log.Error().Err(err).Msg("An error occurred when processing fan-out queue...")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.engine.wake:
		}
	}
}
