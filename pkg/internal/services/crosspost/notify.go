package crosspost

import (
	"context"
	"fmt"
	"html"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Notification is the email sent to group members when a topic is created.
type Notification struct {
	ActivityID uint   `json:"activity_id"`
	TopicID    uint   `json:"topic_id"`
	GroupID    uint   `json:"group_id"`
	ActorID    uint   `json:"actor_id"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Coordinator holds the original topic's notification until its copies exist,
// then makes sure each recipient hears about the event once.
type Coordinator struct {
	relations  *Relations
	recipients Recipients
	mailer     Mailer
	composer   *Composer
}

func NewCoordinator(relations *Relations, recipients Recipients, mailer Mailer, composer *Composer) *Coordinator {
	return &Coordinator{relations: relations, recipients: recipients, mailer: mailer, composer: composer}
}

// Compose captures the notification a topic creation entry triggers.
func (c *Coordinator) Compose(activity models.Activity) Notification {
	action := html.UnescapeString(bluemonday.StrictPolicy().Sanitize(activity.Action))
	return Notification{
		ActivityID: activity.ID,
		TopicID:    activity.SecondaryItemID,
		GroupID:    activity.ItemID,
		ActorID:    activity.AccountID,
		Subject:    fmt.Sprintf("New topic: %s", activity.Content),
		Body:       fmt.Sprintf("%s\n\n%s", action, activity.PrimaryLink),
	}
}

// Hold decides whether the notification must wait for a requested fan-out.
func (c *Coordinator) Hold(ctx context.Context, n Notification, fanoutRequested bool) (bool, error) {
	if !fanoutRequested {
		return false, nil
	}
	related, err := c.relations.RelatedIDs(ctx, n.TopicID)
	if err != nil {
		return false, err
	}
	return len(related) == 0, nil
}

// Release sends the held notification once per run.
// It is safe to call with nil when nothing was held.
func (c *Coordinator) Release(ctx context.Context, run *Run, held *Notification) (int, error) {
	if held == nil || run.released {
		return 0, nil
	}
	run.released = true
	return c.Dispatch(ctx, run, *held)
}

// Dispatch sends n to the group's subscribers, skipping the actor and anyone the run
// already told about this logical event.
func (c *Coordinator) Dispatch(ctx context.Context, run *Run, n Notification) (int, error) {
	related, err := c.relations.RelatedIDs(ctx, n.TopicID)
	if err != nil {
		return 0, err
	}
	members, err := c.recipients.ListGroupSubscribers(ctx, n.GroupID)
	if err != nil {
		return 0, fmt.Errorf("unable to list subscribers of group %d: %v", n.GroupID, err)
	}
	members = lo.UniqBy(members, func(item models.GroupMember) uint {
		return item.AccountID
	})

	var sent int
	for _, member := range members {
		if member.AccountID == n.ActorID {
			continue
		}
		if run.Notified(member.AccountID, related) {
			log.Debug().
				Str("run", run.ID).
				Uint("account", member.AccountID).
				Uint("topic", n.TopicID).
				Msg("Suppressed notification, recipient already notified for this topic.")
			run.MarkNotified(member.AccountID, n.TopicID)
			continue
		}
		run.MarkNotified(member.AccountID, n.TopicID)

		body := n.Body
		if len(related) > 0 {
			viewer := Viewer{AccountID: member.AccountID, IsModerator: member.Account.IsModerator}
			if message := c.composer.AlsoPostedIn(ctx, viewer, related, ContextEmail); len(message) > 0 {
				body += "\n" + message
			}
		}

		err := c.mailer.Send(ctx, Email{
			To:        member.Account.Email,
			AccountID: member.AccountID,
			Subject:   n.Subject,
			Body:      body,
		})
		if err != nil {
			log.Warn().Err(err).Uint("account", member.AccountID).Msg("An error occurred when sending notification...")
			continue
		}
		sent++
	}

	log.Debug().Str("run", run.ID).Uint("topic", n.TopicID).Int("sent", sent).Msg("Dispatched topic notification.")
	return sent, nil
}
