package crosspost

import (
	"context"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitThenProcessPending(t *testing.T) {
	ctx := context.Background()
	fx := newFanoutFixture(t)
	bob := fx.host.addAccount("bob")
	fx.host.join(fx.home, bob)
	fx.host.join(fx.g1, bob)

	activity, err := fx.host.GetTopicCreateActivity(ctx, fx.source.ID)
	require.NoError(t, err)
	held := fx.engine.Coordinator.Compose(activity)

	task, err := fx.engine.Submit(ctx, fx.request(fx.g1, fx.g2), &held)
	require.NoError(t, err)
	assert.Equal(t, models.FanoutTaskPending, task.Status)
	assert.NotEmpty(t, task.Held)
	assert.Len(t, fx.engine.wake, 1)
	assert.Empty(t, fx.host.mails, "notification waits for the copies")

	processed, err := fx.engine.NewWorker(0).ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	require.Len(t, fx.host.tasks, 1)
	stored := fx.host.tasks[0]
	assert.Equal(t, models.FanoutTaskDone, stored.Status)
	assert.Equal(t, "This topic was also posted in: F1 and F2.", stored.Result)
	assert.Empty(t, stored.Title)
	assert.Empty(t, stored.Content)
	assert.Empty(t, stored.Held)
	assert.NotNil(t, stored.FinishedAt)

	mails := fx.host.mailsTo(bob)
	require.Len(t, mails, 1)
	assert.Equal(t, "New topic: Hello", mails[0].Subject)
	assert.Contains(t, mails[0].Body, "This topic was also posted in:")

	processed, err = fx.engine.NewWorker(0).ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed, "finished tasks are not claimed again")
}

func TestSubmitRejectsSecondFanout(t *testing.T) {
	ctx := context.Background()
	fx := newFanoutFixture(t)

	_, err := fx.engine.Submit(ctx, fx.request(fx.g1), nil)
	require.NoError(t, err)

	_, err = fx.engine.Submit(ctx, fx.request(fx.g2), nil)
	assert.ErrorIs(t, err, ErrAlreadyCrossposted)
	assert.Len(t, fx.host.tasks, 1)
}

func TestSubmitValidatesRequest(t *testing.T) {
	fx := newFanoutFixture(t)

	_, err := fx.engine.Submit(context.Background(), fx.request(), nil)
	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, ErrCodeValidation, xerr.Code)
	assert.Empty(t, fx.host.tasks)
}

func TestProcessPendingMarksFailedTask(t *testing.T) {
	ctx := context.Background()
	fx := newFanoutFixture(t)
	req := fx.request(fx.g1)
	req.TopicID = 9999

	_, err := fx.engine.Submit(ctx, req, nil)
	require.NoError(t, err)

	processed, err := fx.engine.NewWorker(5).ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored := fx.host.tasks[0]
	assert.Equal(t, models.FanoutTaskFailed, stored.Status)
	assert.Contains(t, stored.Error, ErrCodeNotFound)
	assert.Empty(t, stored.Result)
}

func TestWorkerRunStopsWithContext(t *testing.T) {
	fx := newFanoutFixture(t)
	_, err := fx.engine.Submit(context.Background(), fx.request(fx.g1), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fx.engine.NewWorker(1).Run(ctx, time.Hour)

	assert.Equal(t, models.FanoutTaskDone, fx.host.tasks[0].Status)
}

func TestNewRequiresPorts(t *testing.T) {
	h := newMemoryHost()

	_, err := New(WithHost(h, h, h), WithMetaStore(h), WithNotifications(h, h))
	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, ErrCodeConfiguration, xerr.Code)

	_, err = New(WithHost(h, h, h), WithMetaStore(nil))
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, ErrCodeConfiguration, xerr.Code)

	_, err = New(WithHost(h, h, h), WithMetaStore(h), WithNotifications(h, h), WithQueue(h), WithBackfillBuffer(-1))
	assert.Error(t, err)
}
