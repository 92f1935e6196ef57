package crosspost

import (
	"context"
	"fmt"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// Engine wires the cross-posting components to the host ports.
type Engine struct {
	Relations   *Relations
	Executor    *Executor
	Coordinator *Coordinator
	Composer    *Composer

	directory  Directory
	publisher  Publisher
	stream     ActivityStream
	meta       MetaStore
	recipients Recipients
	mailer     Mailer
	queue      Queue

	backfillBuffer int
	wake           chan struct{}
}

type Option func(*Engine) error

func WithHost(directory Directory, publisher Publisher, stream ActivityStream) Option {
	return func(e *Engine) error {
		if directory == nil || publisher == nil || stream == nil {
			return fmt.Errorf("host ports cannot be nil")
		}
		e.directory, e.publisher, e.stream = directory, publisher, stream
		return nil
	}
}

func WithMetaStore(meta MetaStore) Option {
	return func(e *Engine) error {
		if meta == nil {
			return fmt.Errorf("meta store cannot be nil")
		}
		e.meta = meta
		return nil
	}
}

func WithNotifications(recipients Recipients, mailer Mailer) Option {
	return func(e *Engine) error {
		if recipients == nil || mailer == nil {
			return fmt.Errorf("recipients and mailer cannot be nil")
		}
		e.recipients, e.mailer = recipients, mailer
		return nil
	}
}

func WithQueue(queue Queue) Option {
	return func(e *Engine) error {
		if queue == nil {
			return fmt.Errorf("queue cannot be nil")
		}
		e.queue = queue
		return nil
	}
}

func WithBackfillBuffer(buffer int) Option {
	return func(e *Engine) error {
		if buffer < 0 {
			return fmt.Errorf("backfill buffer cannot be negative")
		}
		e.backfillBuffer = buffer
		return nil
	}
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		backfillBuffer: DefaultBackfillBuffer,
		wake:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	if e.directory == nil {
		return nil, NewError(ErrCodeConfiguration, "host ports are required (use WithHost)")
	}
	if e.meta == nil {
		return nil, NewError(ErrCodeConfiguration, "meta store is required (use WithMetaStore)")
	}
	if e.recipients == nil {
		return nil, NewError(ErrCodeConfiguration, "notification ports are required (use WithNotifications)")
	}
	if e.queue == nil {
		return nil, NewError(ErrCodeConfiguration, "queue is required (use WithQueue)")
	}

	e.Relations = NewRelations(e.meta)
	e.Composer = NewComposer(e.Relations, e.directory, e.stream)
	e.Executor = NewExecutor(e.directory, e.publisher, e.Relations)
	e.Coordinator = NewCoordinator(e.Relations, e.recipients, e.mailer, e.Composer)
	return e, nil
}

// Feed puts the deduplication stage in front of source.
func (e *Engine) Feed(source FeedSource) FeedSource {
	return Deduplicate(source, e.Relations, e.backfillBuffer)
}

// Submit queues a fan-out together with the notification it holds back.
func (e *Engine) Submit(ctx context.Context, req Request, held *Notification) (*models.FanoutTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := &models.FanoutTask{
		TopicID:   req.TopicID,
		AccountID: req.AccountID,
		GroupIDs:  req.GroupIDs,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		Status:    models.FanoutTaskPending,
	}
	if held != nil {
		raw, err := jsoniter.Marshal(held)
		if err != nil {
			return nil, fmt.Errorf("unable to encode held notification: %v", err)
		}
		task.Held = raw
	}

	if err := e.queue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	select {
	case e.wake <- struct{}{}:
	default:
	}

	log.Info().Uint("topic", req.TopicID).Uint("task", task.ID).Int("targets", len(req.GroupIDs)).Msg("Queued cross-post.")
	return task, nil
}

type Result struct {
	Duplicates []DuplicateInfo
	Alert      string
	Released   int
}

// Process runs one fan-out to completion inside run.
// The held notification is released whatever the executor returns.
func (e *Engine) Process(ctx context.Context, run *Run, req Request, held *Notification) (Result, error) {
	var result Result

	duplicates, execErr := e.Executor.Execute(ctx, req)
	if execErr != nil {
		log.Warn().Err(execErr).Str("run", run.ID).Uint("topic", req.TopicID).Msg("Cross-post fan-out failed, releasing held notification anyway...")
	}
	result.Duplicates = duplicates

	original, err := e.stream.GetTopicCreateActivity(ctx, req.TopicID)
	hasOriginal := err == nil
	if !hasOriginal {
		log.Warn().Err(err).Str("run", run.ID).Uint("topic", req.TopicID).Msg("Original feed entry not found, copies will not be linked to it...")
	} else if len(duplicates) > 0 {
		if err := e.Relations.MarkHasDuplicates(ctx, original.ID); err != nil {
			log.Warn().Err(err).Uint("activity", original.ID).Msg("Unable to mark original feed entry...")
		}
	}

	if result.Released, err = e.Coordinator.Release(ctx, run, held); err != nil {
		log.Warn().Err(err).Str("run", run.ID).Msg("An error occurred when releasing held notification...")
	}

	for _, duplicate := range duplicates {
		topic, err := e.directory.GetTopic(ctx, duplicate.TopicID)
		if err != nil {
			log.Warn().Err(err).Uint("topic", duplicate.TopicID).Msg("Unable to load cross-posted topic...")
			continue
		}
		activity, err := e.stream.RecordTopicCreate(ctx, topic, duplicate.GroupID)
		if err != nil {
			log.Warn().Err(err).Uint("topic", topic.ID).Msg("Unable to record feed entry for cross-posted topic...")
			continue
		}
		if err := e.stream.TouchGroup(ctx, duplicate.GroupID); err != nil {
			log.Warn().Err(err).Uint("group", duplicate.GroupID).Msg("Unable to update group last activity...")
		}
		if hasOriginal {
			if err := e.Relations.LinkActivity(ctx, original.ID, activity.ID); err != nil {
				log.Warn().Err(err).Uint("activity", activity.ID).Msg("Unable to link feed entry to its original...")
			}
		}
		if _, err := e.Coordinator.Dispatch(ctx, run, e.Coordinator.Compose(activity)); err != nil {
			log.Warn().Err(err).Uint("activity", activity.ID).Msg("An error occurred when dispatching notification...")
		}
	}

	if len(duplicates) > 0 {
		related, err := e.Relations.RelatedIDs(ctx, req.TopicID)
		if err == nil {
			result.Alert = e.Composer.AlsoPostedIn(ctx, Viewer{AccountID: req.AccountID}, related, ContextAlert)
		}
	}

	return result, execErr
}
