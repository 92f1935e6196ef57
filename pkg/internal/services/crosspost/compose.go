package crosspost

import (
	"context"
	"fmt"
	"html"
	"strings"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// MessageContext selects how the "also posted in" sentence is rendered.
type MessageContext string

const (
	ContextEmail      = MessageContext("email")
	ContextForumTopic = MessageContext("forum_topic")
	ContextAlert      = MessageContext("alert")
)

// Viewer is whoever the rendered text is shown or sent to.
type Viewer struct {
	AccountID   uint
	IsModerator bool
}

// Composer renders the text that points readers at the other copies of a topic.
type Composer struct {
	relations *Relations
	directory Directory
	stream    ActivityStream
}

func NewComposer(relations *Relations, directory Directory, stream ActivityStream) *Composer {
	return &Composer{relations: relations, directory: directory, stream: stream}
}

// CanSee applies the host's group visibility rule.
func (c *Composer) CanSee(ctx context.Context, viewer Viewer, groupID uint) bool {
	if viewer.IsModerator {
		return true
	}
	group, err := c.directory.GetGroup(ctx, groupID)
	if err != nil {
		return false
	}
	if group.Status == models.GroupStatusPublic {
		return true
	}
	if viewer.AccountID == 0 {
		return false
	}
	member, err := c.directory.IsGroupMember(ctx, groupID, viewer.AccountID)
	return err == nil && member
}

// AlsoPostedIn builds "This topic was also posted in: A, B, and C." for the given topics.
// Returns an empty string when none of the topics resolve to a named forum.
func (c *Composer) AlsoPostedIn(ctx context.Context, viewer Viewer, topicIDs []uint, mctx MessageContext) string {
	if len(topicIDs) == 0 {
		return ""
	}
	linkable := mctx == ContextEmail || mctx == ContextForumTopic

	var names []string
	for _, id := range topicIDs {
		topic, err := c.directory.GetTopic(ctx, id)
		if err != nil {
			log.Debug().Err(err).Uint("topic", id).Msg("Skipped unresolvable topic in also posted in message.")
			continue
		}
		forum, err := c.directory.GetForum(ctx, topic.ForumID)
		if err != nil || len(strings.TrimSpace(forum.Name)) == 0 {
			continue
		}

		name := html.EscapeString(forum.Name)
		if linkable && forum.GroupID != nil && c.CanSee(ctx, viewer, *forum.GroupID) {
			name = anchor(c.directory.TopicPermalink(topic), forum.Name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}

	message := fmt.Sprintf("This topic was also posted in: %s.", JoinList(names))
	if mctx == ContextForumTopic {
		message = fmt.Sprintf(`<div class="posted-in-other-forums">%s</div>`, message)
	}
	return message
}

// ActionString rewrites a topic creation entry so it names every related forum the viewer can see.
// Entries without relations, or whose relations are all hidden, keep the host's action.
func (c *Composer) ActionString(ctx context.Context, viewer Viewer, activity models.Activity) (string, error) {
	if activity.Component != models.ActivityComponentGroups || activity.Type != models.ActivityTypeTopicCreate {
		return activity.Action, nil
	}

	var related []uint
	if original, isDuplicate, err := c.relations.ActivityOriginalOf(ctx, activity.ID); err != nil {
		return activity.Action, err
	} else if isDuplicate {
		siblings, err := c.relations.ActivityDuplicatesOf(ctx, original)
		if err != nil {
			return activity.Action, err
		}
		related = append([]uint{original}, lo.Without(siblings, activity.ID)...)
	} else if marked, err := c.relations.HasDuplicates(ctx, activity.ID); err != nil {
		return activity.Action, err
	} else if marked {
		if related, err = c.relations.ActivityDuplicatesOf(ctx, activity.ID); err != nil {
			return activity.Action, err
		}
	}
	if len(related) == 0 {
		return activity.Action, nil
	}

	entries, err := c.stream.ListActivitiesByID(ctx, related)
	if err != nil {
		return activity.Action, err
	}
	entries = lo.Filter(entries, func(item models.Activity, _ int) bool {
		return c.CanSee(ctx, viewer, item.ItemID)
	})
	if len(entries) == 0 {
		return activity.Action, nil
	}

	links := make([]string, 0, len(entries)+1)
	for _, entry := range append([]models.Activity{activity}, entries...) {
		if link, ok := c.forumLink(ctx, entry); ok {
			links = append(links, link)
		}
	}
	if len(links) < 2 {
		return activity.Action, nil
	}

	return fmt.Sprintf(
		"%s started the topic %s in the forums: %s.",
		activity.ActorLink,
		anchor(activity.PrimaryLink, activity.Content),
		JoinList(links),
	), nil
}

// forumLink names the forum an entry's topic lives in, linked to that topic.
func (c *Composer) forumLink(ctx context.Context, entry models.Activity) (string, bool) {
	topic, err := c.directory.GetTopic(ctx, entry.SecondaryItemID)
	if err != nil {
		return "", false
	}
	forum, err := c.directory.GetForum(ctx, topic.ForumID)
	if err != nil || len(strings.TrimSpace(forum.Name)) == 0 {
		return "", false
	}
	href := entry.PrimaryLink
	if len(href) == 0 {
		href = c.directory.TopicPermalink(topic)
	}
	return anchor(href, forum.Name), true
}

// JoinList joins items as "A", "A and B" or "A, B, and C".
func JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func anchor(href, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(text))
}
