package crosspost

import (
	"context"
	"testing"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldOnlyWhenFanoutRequested(t *testing.T) {
	ctx := context.Background()
	fx := newFanoutFixture(t)
	activity, err := fx.host.GetTopicCreateActivity(ctx, fx.source.ID)
	require.NoError(t, err)
	notification := fx.engine.Coordinator.Compose(activity)

	held, err := fx.engine.Coordinator.Hold(ctx, notification, false)
	require.NoError(t, err)
	assert.False(t, held)

	held, err = fx.engine.Coordinator.Hold(ctx, notification, true)
	require.NoError(t, err)
	assert.True(t, held)

	_, err = fx.engine.Executor.Execute(ctx, fx.request(fx.g1))
	require.NoError(t, err)

	held, err = fx.engine.Coordinator.Hold(ctx, notification, true)
	require.NoError(t, err)
	assert.False(t, held, "copies already exist")
}

func TestComposeStripsMarkup(t *testing.T) {
	coordinator := &Coordinator{}
	notification := coordinator.Compose(models.Activity{
		BaseModel:       models.BaseModel{ID: 3},
		AccountID:       1,
		ItemID:          2,
		SecondaryItemID: 4,
		Action:          `<a href="/u/alice">alice</a> started the topic <a href="/t/4">Q&amp;A</a>`,
		Content:         "Q&A",
		PrimaryLink:     "/t/4",
	})

	assert.Equal(t, uint(4), notification.TopicID)
	assert.Equal(t, uint(2), notification.GroupID)
	assert.Equal(t, "New topic: Q&A", notification.Subject)
	assert.Equal(t, "alice started the topic Q&A\n\n/t/4", notification.Body)
}

func TestProcessNotifiesEachRecipientOnce(t *testing.T) {
	ctx := context.Background()
	h := newMemoryHost()
	engine := newTestEngine(t, h)

	actor := h.addAccount("actor")
	everywhere := h.addAccount("everywhere")
	twoGroups := h.addAccount("two-groups")
	bystander := h.addAccount("bystander")

	home, homeForum := h.addGroupWithForum("Home", models.GroupStatusPublic)
	g1, _ := h.addGroupWithForum("F1", models.GroupStatusPublic)
	g2, _ := h.addGroupWithForum("F2", models.GroupStatusPublic)
	g3, _ := h.addGroupWithForum("F3", models.GroupStatusPrivate)
	g4, _ := h.addGroupWithForum("F4", models.GroupStatusPublic)

	for _, group := range []uint{home, g1, g2, g3, g4} {
		h.join(group, actor)
	}
	for _, group := range []uint{home, g1, g2, g3} {
		h.join(group, everywhere)
	}
	h.join(g2, twoGroups)
	h.join(g3, twoGroups)
	h.join(g4, bystander)

	source, activity := h.addTopic(homeForum, actor, "Hello")
	notification := engine.Coordinator.Compose(activity)
	held, err := engine.Coordinator.Hold(ctx, notification, true)
	require.NoError(t, err)
	require.True(t, held)
	assert.Empty(t, h.mails)

	run := NewRun()
	result, err := engine.Process(ctx, run, Request{
		TopicID:   source.ID,
		AccountID: actor,
		GroupIDs:  []uint{g1, g2, g3},
		Title:     "Hello",
		Content:   "Hello body",
	}, &notification)
	require.NoError(t, err)
	require.Len(t, result.Duplicates, 3)
	assert.Equal(t, 1, result.Released)

	assert.Empty(t, h.mailsTo(actor))
	assert.Empty(t, h.mailsTo(bystander))
	require.Len(t, h.mailsTo(everywhere), 1)
	require.Len(t, h.mailsTo(twoGroups), 1)

	first := h.mailsTo(everywhere)[0]
	assert.Equal(t, "New topic: Hello", first.Subject)
	assert.Contains(t, first.Body, "This topic was also posted in: ")
	assert.Contains(t, first.Body, `<a href="/topic/`)

	marked, err := engine.Relations.HasDuplicates(ctx, activity.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	linked, err := engine.Relations.ActivityDuplicatesOf(ctx, activity.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 3)
	assert.ElementsMatch(t, []uint{g1, g2, g3}, h.touched)

	assert.Equal(t, "This topic was also posted in: F1, F2, and F3.", result.Alert)

	released, err := engine.Coordinator.Release(ctx, run, &notification)
	require.NoError(t, err)
	assert.Zero(t, released, "held notification fires once per run")
}

func TestProcessReleasesWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	fx := newFanoutFixture(t)
	reader := fx.host.addAccount("reader")
	fx.host.join(fx.home, reader)
	fx.host.leave(fx.g1, fx.author)

	activity, err := fx.host.GetTopicCreateActivity(ctx, fx.source.ID)
	require.NoError(t, err)
	notification := fx.engine.Coordinator.Compose(activity)

	result, err := fx.engine.Process(ctx, NewRun(), fx.request(fx.g1), &notification)
	require.NoError(t, err)
	assert.Empty(t, result.Duplicates)
	assert.Empty(t, result.Alert)
	assert.Equal(t, 1, result.Released)

	mails := fx.host.mailsTo(reader)
	require.Len(t, mails, 1)
	assert.NotContains(t, mails[0].Body, "also posted in")

	marked, err := fx.engine.Relations.HasDuplicates(ctx, activity.ID)
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestProcessWithoutOriginalFeedEntry(t *testing.T) {
	ctx := context.Background()
	fx := newFanoutFixture(t)
	fx.host.activities = lo.Reject(fx.host.activities, func(item models.Activity, _ int) bool {
		return item.SecondaryItemID == fx.source.ID
	})

	result, err := fx.engine.Process(ctx, NewRun(), fx.request(fx.g1, fx.g2), nil)
	require.NoError(t, err)
	require.Len(t, result.Duplicates, 2)

	for _, info := range result.Duplicates {
		activity, err := fx.host.GetTopicCreateActivity(ctx, info.TopicID)
		require.NoError(t, err, "copies still get their own feed entry")
		_, linked, err := fx.engine.Relations.ActivityOriginalOf(ctx, activity.ID)
		require.NoError(t, err)
		assert.False(t, linked)
	}
}

func TestRunLedger(t *testing.T) {
	run := NewRun()
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Notified(1, []uint{10, 11}))

	run.MarkNotified(1, 11)
	assert.True(t, run.Notified(1, []uint{10, 11}))
	assert.False(t, run.Notified(2, []uint{10, 11}))
	assert.False(t, run.Notified(1, nil))
}
