package crosspost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Request is one fan-out of a freshly created topic.
type Request struct {
	TopicID   uint
	AccountID uint
	GroupIDs  []uint
	Tags      string
	Title     string
	Content   string
}

func (r Request) Validate() error {
	if r.TopicID == 0 {
		return NewError(ErrCodeValidation, "source topic is required")
	}
	if r.AccountID == 0 {
		return NewError(ErrCodeValidation, "acting account is required")
	}
	if len(lo.Compact(r.GroupIDs)) == 0 {
		return NewError(ErrCodeValidation, "no target groups selected")
	}
	return nil
}

type DuplicateInfo struct {
	TopicID uint
	ForumID uint
	GroupID uint
}

// Executor copies a topic into the forums of other groups.
type Executor struct {
	directory Directory
	publisher Publisher
	relations *Relations
	clock     func() time.Time

	titlePolicy   *bluemonday.Policy
	contentPolicy *bluemonday.Policy
}

func NewExecutor(directory Directory, publisher Publisher, relations *Relations) *Executor {
	return &Executor{
		directory:     directory,
		publisher:     publisher,
		relations:     relations,
		clock:         time.Now,
		titlePolicy:   bluemonday.StrictPolicy(),
		contentPolicy: bluemonday.UGCPolicy(),
	}
}

// Execute creates one duplicate per valid target group, in target order.
// Targets the account is no longer a member of, or that have no forum, are skipped.
func (x *Executor) Execute(ctx context.Context, req Request) ([]DuplicateInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	source, err := x.directory.GetTopic(ctx, req.TopicID)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeNotFound, "source topic not found", err)
	}
	if related, err := x.relations.RelatedIDs(ctx, source.ID); err != nil {
		return nil, err
	} else if len(related) > 0 {
		return nil, ErrAlreadyCrossposted
	}

	title := lo.Ternary(len(strings.TrimSpace(req.Title)) > 0, req.Title, source.Title)
	content := lo.Ternary(len(strings.TrimSpace(req.Content)) > 0, req.Content, source.Content)
	tags := ParseTags(req.Tags)
	if len(tags) == 0 {
		tags = source.Tags
	}

	attachments, err := x.publisher.ListAttachments(ctx, source.ID)
	if err != nil {
		log.Warn().Err(err).Uint("topic", source.ID).Msg("Unable to list attachments of source topic, copies will have none...")
		attachments = nil
	}

	var out []DuplicateInfo
	for _, groupID := range lo.Uniq(lo.Compact(req.GroupIDs)) {
		forumID, ok := x.resolveTarget(ctx, req.AccountID, groupID)
		if !ok || forumID == source.ForumID {
			continue
		}

		topic := models.Topic{
			ForumID:   forumID,
			AccountID: req.AccountID,
			Title:     x.titlePolicy.Sanitize(title),
			Content:   x.contentPolicy.Sanitize(content),
			Tags:      tags,
			Language:  source.Language,
		}
		err := x.publisher.RunInTx(ctx, func(ctx context.Context) error {
			return x.duplicate(ctx, source, &topic, attachments)
		})
		if err != nil {
			log.Error().Err(err).Uint("topic", source.ID).Uint("group", groupID).Msg("Unable to cross-post topic into group, skipped...")
			continue
		}

		log.Debug().Uint("topic", source.ID).Uint("duplicate", topic.ID).Uint("group", groupID).Msg("Cross-posted topic.")
		out = append(out, DuplicateInfo{TopicID: topic.ID, ForumID: forumID, GroupID: groupID})
	}

	return out, nil
}

func (x *Executor) resolveTarget(ctx context.Context, accountID, groupID uint) (uint, bool) {
	member, err := x.directory.IsGroupMember(ctx, groupID, accountID)
	if err != nil || !member {
		log.Debug().Uint("group", groupID).Uint("account", accountID).Msg("Skipped cross-post target, account is not a member.")
		return 0, false
	}
	forumIDs, err := x.directory.ListGroupForumIDs(ctx, groupID)
	if err != nil || len(forumIDs) == 0 {
		log.Debug().Uint("group", groupID).Msg("Skipped cross-post target, group has no forum.")
		return 0, false
	}
	return forumIDs[0], true
}

func (x *Executor) duplicate(ctx context.Context, source models.Topic, topic *models.Topic, attachments []models.Attachment) error {
	if err := x.publisher.InsertTopic(ctx, topic); err != nil {
		return fmt.Errorf("unable to create topic: %v", err)
	}

	for _, attachment := range attachments {
		clone := models.Attachment{
			TopicID:  topic.ID,
			FileURL:  attachment.FileURL,
			MimeType: attachment.MimeType,
			Title:    attachment.Title,
			Metadata: attachment.Metadata,
		}
		if err := x.publisher.InsertAttachment(ctx, &clone); err != nil {
			return fmt.Errorf("unable to copy attachment %d: %v", attachment.ID, err)
		}
	}

	if err := x.publisher.UpdateTopicAggregates(ctx, topic.ID, topic.ForumID, x.clock()); err != nil {
		return fmt.Errorf("unable to update aggregates: %v", err)
	}

	return x.relations.LinkDuplicate(ctx, source.ID, topic.ID)
}

// ParseTags splits a comma separated tag string, dropping blanks and repeats.
func ParseTags(raw string) []string {
	tags := lo.Map(strings.Split(raw, ","), func(item string, _ int) string {
		return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(item))
	})
	return lo.Uniq(lo.Compact(tags))
}
