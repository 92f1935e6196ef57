package crosspost

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// memoryHost implements every port in memory.
type memoryHost struct {
	nextID      uint
	accounts    map[uint]models.Account
	groups      map[uint]models.Group
	members     []models.GroupMember
	forums      map[uint]models.Forum
	topics      map[uint]models.Topic
	attachments []models.Attachment
	activities  []models.Activity
	metas       []models.Meta
	tasks       []models.FanoutTask
	mails       []Email
	aggregated  []uint
	touched     []uint
}

func newMemoryHost() *memoryHost {
	return &memoryHost{
		accounts: make(map[uint]models.Account),
		groups:   make(map[uint]models.Group),
		forums:   make(map[uint]models.Forum),
		topics:   make(map[uint]models.Topic),
	}
}

func (h *memoryHost) id() uint {
	h.nextID++
	return h.nextID
}

func (h *memoryHost) addAccount(name string) uint {
	id := h.id()
	h.accounts[id] = models.Account{BaseModel: models.BaseModel{ID: id}, Name: name, Email: name + "@example.com"}
	return id
}

func (h *memoryHost) addGroup(name, status string) uint {
	id := h.id()
	h.groups[id] = models.Group{BaseModel: models.BaseModel{ID: id}, Name: name, Status: status, EnableForum: true}
	return id
}

// addGroupWithForum creates a group and its forum, both named name.
func (h *memoryHost) addGroupWithForum(name, status string) (uint, uint) {
	group := h.addGroup(name, status)
	return group, h.addForum(group, name)
}

func (h *memoryHost) addForum(groupID uint, name string) uint {
	id := h.id()
	h.forums[id] = models.Forum{BaseModel: models.BaseModel{ID: id}, Name: name, Alias: name, GroupID: lo.ToPtr(groupID)}
	return id
}

func (h *memoryHost) join(groupID, accountID uint) {
	h.members = append(h.members, models.GroupMember{
		BaseModel:   models.BaseModel{ID: h.id()},
		GroupID:     groupID,
		AccountID:   accountID,
		Account:     h.accounts[accountID],
		EmailNotify: true,
	})
}

func (h *memoryHost) leave(groupID, accountID uint) {
	h.members = lo.Reject(h.members, func(item models.GroupMember, _ int) bool {
		return item.GroupID == groupID && item.AccountID == accountID
	})
}

// addTopic creates a topic the way the host does, with its feed entry.
func (h *memoryHost) addTopic(forumID, accountID uint, title string) (models.Topic, models.Activity) {
	topic := models.Topic{ForumID: forumID, AccountID: accountID, Title: title, Content: title + " body", Tags: []string{"intro"}}
	_ = h.InsertTopic(context.Background(), &topic)
	activity, _ := h.RecordTopicCreate(context.Background(), topic, *h.forums[forumID].GroupID)
	return topic, activity
}

func (h *memoryHost) addPlainActivity(groupID uint) models.Activity {
	activity := models.Activity{
		BaseModel: models.BaseModel{ID: h.id()},
		Component: models.ActivityComponentGroups,
		Type:      "joined_group",
		ItemID:    groupID,
		Action:    "someone joined",
	}
	h.activities = append(h.activities, activity)
	return activity
}

func (h *memoryHost) mailsTo(accountID uint) []Email {
	return lo.Filter(h.mails, func(item Email, _ int) bool {
		return item.AccountID == accountID
	})
}

// Directory

func (h *memoryHost) GetGroup(_ context.Context, id uint) (models.Group, error) {
	if group, ok := h.groups[id]; ok {
		return group, nil
	}
	return models.Group{}, ErrNotFound
}

func (h *memoryHost) IsGroupMember(_ context.Context, groupID, accountID uint) (bool, error) {
	return lo.ContainsBy(h.members, func(item models.GroupMember) bool {
		return item.GroupID == groupID && item.AccountID == accountID
	}), nil
}

func (h *memoryHost) ListGroupForumIDs(_ context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	for id, forum := range h.forums {
		if forum.GroupID != nil && *forum.GroupID == groupID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (h *memoryHost) GetForum(_ context.Context, id uint) (models.Forum, error) {
	if forum, ok := h.forums[id]; ok {
		return forum, nil
	}
	return models.Forum{}, ErrNotFound
}

func (h *memoryHost) GetTopic(_ context.Context, id uint) (models.Topic, error) {
	if topic, ok := h.topics[id]; ok {
		return topic, nil
	}
	return models.Topic{}, ErrNotFound
}

func (h *memoryHost) TopicPermalink(topic models.Topic) string {
	return fmt.Sprintf("/topic/%d", topic.ID)
}

func (h *memoryHost) ForumPermalink(forum models.Forum) string {
	return "/forum/" + forum.Alias
}

// Publisher

func (h *memoryHost) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (h *memoryHost) InsertTopic(_ context.Context, topic *models.Topic) error {
	topic.ID = h.id()
	h.topics[topic.ID] = *topic
	return nil
}

func (h *memoryHost) ListAttachments(_ context.Context, topicID uint) ([]models.Attachment, error) {
	return lo.Filter(h.attachments, func(item models.Attachment, _ int) bool {
		return item.TopicID == topicID
	}), nil
}

func (h *memoryHost) InsertAttachment(_ context.Context, attachment *models.Attachment) error {
	attachment.ID = h.id()
	h.attachments = append(h.attachments, *attachment)
	return nil
}

func (h *memoryHost) UpdateTopicAggregates(_ context.Context, topicID, _ uint, lastActive time.Time) error {
	topic := h.topics[topicID]
	topic.LastActiveID = topicID
	topic.LastActiveAt = &lastActive
	topic.VoiceCount = 1
	h.topics[topicID] = topic
	h.aggregated = append(h.aggregated, topicID)
	return nil
}

// ActivityStream

func (h *memoryHost) GetTopicCreateActivity(_ context.Context, topicID uint) (models.Activity, error) {
	for _, item := range h.activities {
		if item.Type == models.ActivityTypeTopicCreate && item.SecondaryItemID == topicID {
			return item, nil
		}
	}
	return models.Activity{}, ErrNotFound
}

func (h *memoryHost) ListActivitiesByID(_ context.Context, ids []uint) ([]models.Activity, error) {
	return lo.FilterMap(ids, func(id uint, _ int) (models.Activity, bool) {
		return lo.Find(h.activities, func(item models.Activity) bool {
			return item.ID == id
		})
	}), nil
}

func (h *memoryHost) RecordTopicCreate(_ context.Context, topic models.Topic, groupID uint) (models.Activity, error) {
	forum := h.forums[topic.ForumID]
	activity := models.Activity{
		BaseModel:       models.BaseModel{ID: h.id()},
		Component:       models.ActivityComponentGroups,
		Type:            models.ActivityTypeTopicCreate,
		AccountID:       topic.AccountID,
		ItemID:          groupID,
		SecondaryItemID: topic.ID,
		ActorLink:       h.accounts[topic.AccountID].Name,
		Action:          fmt.Sprintf("%s started the topic %s in the forum %s", h.accounts[topic.AccountID].Name, topic.Title, forum.Name),
		Content:         topic.Title,
		PrimaryLink:     h.TopicPermalink(topic),
	}
	h.activities = append(h.activities, activity)
	return activity, nil
}

func (h *memoryHost) TouchGroup(_ context.Context, groupID uint) error {
	h.touched = append(h.touched, groupID)
	return nil
}

// FeedSource, newest first.

func (h *memoryHost) Query(_ context.Context, q FeedQuery) (FeedPage, error) {
	items := lo.Filter(h.activities, func(item models.Activity, _ int) bool {
		if q.GroupID != nil && item.ItemID != *q.GroupID {
			return false
		}
		if q.AccountID != nil && item.AccountID != *q.AccountID {
			return false
		}
		return !lo.Contains(q.Exclude, item.ID)
	})
	items = lo.Reverse(items)

	total := int64(len(items))
	items = lo.Drop(items, q.Offset)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return FeedPage{Activities: items, Total: total}, nil
}

// MetaStore

func (h *memoryHost) AddMeta(_ context.Context, object string, objectID uint, key, value string) error {
	h.metas = append(h.metas, models.Meta{ID: h.id(), ObjectType: object, ObjectID: objectID, Key: key, Value: value})
	return nil
}

func (h *memoryHost) GetMeta(_ context.Context, object string, objectID uint, key string) ([]string, error) {
	var values []string
	for _, row := range h.metas {
		if row.ObjectType == object && row.ObjectID == objectID && row.Key == key {
			values = append(values, row.Value)
		}
	}
	return values, nil
}

func (h *memoryHost) ListMeta(_ context.Context, object string, objectIDs []uint, key string) (map[uint][]string, error) {
	out := make(map[uint][]string)
	for _, row := range h.metas {
		if row.ObjectType == object && row.Key == key && lo.Contains(objectIDs, row.ObjectID) {
			out[row.ObjectID] = append(out[row.ObjectID], row.Value)
		}
	}
	return out, nil
}

func (h *memoryHost) FindByMeta(_ context.Context, object, key, value string) ([]uint, error) {
	var ids []uint
	for _, row := range h.metas {
		if row.ObjectType == object && row.Key == key && row.Value == value {
			ids = append(ids, row.ObjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return lo.Uniq(ids), nil
}

// Recipients and Mailer

func (h *memoryHost) ListGroupSubscribers(_ context.Context, groupID uint) ([]models.GroupMember, error) {
	return lo.Filter(h.members, func(item models.GroupMember, _ int) bool {
		return item.GroupID == groupID && item.EmailNotify
	}), nil
}

func (h *memoryHost) Send(_ context.Context, email Email) error {
	h.mails = append(h.mails, email)
	return nil
}

// Queue

func (h *memoryHost) Enqueue(_ context.Context, task *models.FanoutTask) error {
	if lo.ContainsBy(h.tasks, func(item models.FanoutTask) bool { return item.TopicID == task.TopicID }) {
		return ErrAlreadyCrossposted
	}
	task.ID = h.id()
	h.tasks = append(h.tasks, *task)
	return nil
}

func (h *memoryHost) Claim(_ context.Context, limit int) ([]models.FanoutTask, error) {
	var out []models.FanoutTask
	for idx := range h.tasks {
		if len(out) >= limit {
			break
		}
		if h.tasks[idx].Status == models.FanoutTaskPending {
			h.tasks[idx].Status = models.FanoutTaskRunning
			out = append(out, h.tasks[idx])
		}
	}
	return out, nil
}

func (h *memoryHost) Finish(_ context.Context, task *models.FanoutTask) error {
	for idx := range h.tasks {
		if h.tasks[idx].ID == task.ID {
			h.tasks[idx] = *task
			return nil
		}
	}
	return ErrNotFound
}

func newTestEngine(t *testing.T, h *memoryHost) *Engine {
	t.Helper()
	engine, err := New(
		WithHost(h, h, h),
		WithMetaStore(h),
		WithNotifications(h, h),
		WithQueue(h),
	)
	require.NoError(t, err)
	return engine
}
