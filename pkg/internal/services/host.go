package services

import (
	"context"
	"errors"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"gorm.io/gorm"
)

type txContextKey struct{}

// Host exposes the gorm-backed forum, group and feed routines as cross-posting ports.
// Calls made with a context returned inside RunInTx share that transaction.
type Host struct {
	DB *gorm.DB
}

func NewHost(db *gorm.DB) *Host {
	return &Host{DB: db}
}

func (h *Host) tx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return h.DB.WithContext(ctx)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return crosspost.NewErrorWithCause(crosspost.ErrCodeNotFound, "record not found", err)
	}
	return err
}

func (h *Host) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(txContextKey{}).(*gorm.DB); nested {
		return fn(ctx)
	}
	return h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

func (h *Host) GetGroup(ctx context.Context, id uint) (models.Group, error) {
	group, err := GetGroup(h.tx(ctx), id)
	return group, translate(err)
}

func (h *Host) IsGroupMember(ctx context.Context, groupID, accountID uint) (bool, error) {
	return IsGroupMember(h.tx(ctx), groupID, accountID)
}

func (h *Host) ListGroupForumIDs(ctx context.Context, groupID uint) ([]uint, error) {
	return ListGroupForumIDs(h.tx(ctx), groupID)
}

func (h *Host) GetForum(ctx context.Context, id uint) (models.Forum, error) {
	forum, err := GetForum(h.tx(ctx), id)
	return forum, translate(err)
}

func (h *Host) GetTopic(ctx context.Context, id uint) (models.Topic, error) {
	topic, err := GetTopic(h.tx(ctx), id)
	return topic, translate(err)
}

func (h *Host) TopicPermalink(topic models.Topic) string {
	return TopicPermalink(topic)
}

func (h *Host) ForumPermalink(forum models.Forum) string {
	return ForumPermalink(forum)
}

func (h *Host) InsertTopic(ctx context.Context, topic *models.Topic) error {
	return h.tx(ctx).Create(topic).Error
}

func (h *Host) ListAttachments(ctx context.Context, topicID uint) ([]models.Attachment, error) {
	return ListTopicAttachments(h.tx(ctx), topicID)
}

func (h *Host) InsertAttachment(ctx context.Context, attachment *models.Attachment) error {
	return h.tx(ctx).Create(attachment).Error
}

func (h *Host) UpdateTopicAggregates(ctx context.Context, topicID, forumID uint, lastActive time.Time) error {
	return UpdateTopicAggregates(h.tx(ctx), topicID, forumID, lastActive)
}

func (h *Host) GetTopicCreateActivity(ctx context.Context, topicID uint) (models.Activity, error) {
	activity, err := GetTopicCreateActivity(h.tx(ctx), topicID)
	return activity, translate(err)
}

func (h *Host) ListActivitiesByID(ctx context.Context, ids []uint) ([]models.Activity, error) {
	return ListActivitiesByID(h.tx(ctx), ids)
}

func (h *Host) RecordTopicCreate(ctx context.Context, topic models.Topic, groupID uint) (models.Activity, error) {
	return RecordTopicCreate(h.tx(ctx), topic, groupID)
}

func (h *Host) TouchGroup(ctx context.Context, groupID uint) error {
	return TouchGroup(h.tx(ctx), groupID)
}

func (h *Host) Query(ctx context.Context, q crosspost.FeedQuery) (crosspost.FeedPage, error) {
	items, count, err := ListActivities(h.tx(ctx), q)
	return crosspost.FeedPage{Activities: items, Total: count}, err
}

func (h *Host) AddMeta(ctx context.Context, object string, objectID uint, key, value string) error {
	return AddMeta(h.tx(ctx), object, objectID, key, value)
}

func (h *Host) GetMeta(ctx context.Context, object string, objectID uint, key string) ([]string, error) {
	return GetMeta(h.tx(ctx), object, objectID, key)
}

func (h *Host) ListMeta(ctx context.Context, object string, objectIDs []uint, key string) (map[uint][]string, error) {
	return ListMeta(h.tx(ctx), object, objectIDs, key)
}

func (h *Host) FindByMeta(ctx context.Context, object, key, value string) ([]uint, error) {
	return FindByMeta(h.tx(ctx), object, key, value)
}

func (h *Host) ListGroupSubscribers(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	return ListGroupSubscribers(h.tx(ctx), groupID)
}

func (h *Host) Enqueue(ctx context.Context, task *models.FanoutTask) error {
	return EnqueueFanoutTask(h.tx(ctx), task)
}

func (h *Host) Claim(ctx context.Context, limit int) ([]models.FanoutTask, error) {
	return ClaimFanoutTasks(h.tx(ctx), limit)
}

func (h *Host) Finish(ctx context.Context, task *models.FanoutTask) error {
	return FinishFanoutTask(h.tx(ctx), task)
}

var (
	_ crosspost.Directory      = (*Host)(nil)
	_ crosspost.Publisher      = (*Host)(nil)
	_ crosspost.ActivityStream = (*Host)(nil)
	_ crosspost.FeedSource     = (*Host)(nil)
	_ crosspost.MetaStore      = (*Host)(nil)
	_ crosspost.Recipients     = (*Host)(nil)
	_ crosspost.Queue          = (*Host)(nil)
	_ crosspost.Mailer         = LogMailer{}
)
