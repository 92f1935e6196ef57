package crosspost

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
)

// Directory resolves the host's groups, forums and topics.
// Lookups that find nothing return ErrNotFound.
type Directory interface {
	GetGroup(ctx context.Context, id uint) (models.Group, error)
	IsGroupMember(ctx context.Context, groupID, accountID uint) (bool, error)
	// ListGroupForumIDs returns the forums attached to a group, the first one is the group's forum.
	ListGroupForumIDs(ctx context.Context, groupID uint) ([]uint, error)
	GetForum(ctx context.Context, id uint) (models.Forum, error)
	GetTopic(ctx context.Context, id uint) (models.Topic, error)
	TopicPermalink(topic models.Topic) string
	ForumPermalink(forum models.Forum) string
}

// Publisher writes forum content through the host's own routines.
type Publisher interface {
	// RunInTx runs fn atomically when the storage supports it.
	// Ports called with the context passed to fn join the transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertTopic(ctx context.Context, topic *models.Topic) error
	ListAttachments(ctx context.Context, topicID uint) ([]models.Attachment, error)
	InsertAttachment(ctx context.Context, attachment *models.Attachment) error
	UpdateTopicAggregates(ctx context.Context, topicID, forumID uint, lastActive time.Time) error
}

// ActivityStream reads and records feed entries.
type ActivityStream interface {
	GetTopicCreateActivity(ctx context.Context, topicID uint) (models.Activity, error)
	// ListActivitiesByID keeps the order of ids and drops the ones that do not exist.
	ListActivitiesByID(ctx context.Context, ids []uint) ([]models.Activity, error)
	RecordTopicCreate(ctx context.Context, topic models.Topic, groupID uint) (models.Activity, error)
	TouchGroup(ctx context.Context, groupID uint) error
}

// FeedQuery selects one page of the activity feed.
type FeedQuery struct {
	// GroupID scopes the query to one group's own feed.
	GroupID   *uint
	AccountID *uint
	Offset    int
	Limit     int
	Exclude   []uint
}

type FeedPage struct {
	Activities []models.Activity
	Total      int64
}

// FeedSource is one stage of the feed pipeline.
type FeedSource interface {
	Query(ctx context.Context, q FeedQuery) (FeedPage, error)
}

// MetaStore keeps key/value rows for topics and activities.
type MetaStore interface {
	AddMeta(ctx context.Context, object string, objectID uint, key, value string) error
	// GetMeta returns every value of key in insertion order.
	GetMeta(ctx context.Context, object string, objectID uint, key string) ([]string, error)
	ListMeta(ctx context.Context, object string, objectIDs []uint, key string) (map[uint][]string, error)
	// FindByMeta returns the ids of objects holding key=value, in ascending order.
	FindByMeta(ctx context.Context, object, key, value string) ([]uint, error)
}

// Recipients lists who should be told about activity in a group.
type Recipients interface {
	ListGroupSubscribers(ctx context.Context, groupID uint) ([]models.GroupMember, error)
}

type Email struct {
	To        string
	AccountID uint
	Subject   string
	Body      string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Queue hands fan-out tasks from the submitting request to the worker.
type Queue interface {
	// Enqueue fails with ErrAlreadyCrossposted when the topic already has a task.
	Enqueue(ctx context.Context, task *models.FanoutTask) error
	// Claim moves up to limit pending tasks to running, each task is claimed by one caller only.
	Claim(ctx context.Context, limit int) ([]models.FanoutTask, error)
	Finish(ctx context.Context, task *models.FanoutTask) error
}
