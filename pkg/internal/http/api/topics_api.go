package api

import (
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/database"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

func getTopic(c *fiber.Ctx) error {
	id, err := c.ParamsInt("topicId", 0)
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic id")
	}

	topic, err := services.GetTopic(database.C, uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if topic.Attachments, err = services.ListTopicAttachments(database.C, topic.ID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	ctx := c.UserContext()
	related, err := engine.Relations.RelatedIDs(ctx, topic.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"data":           topic,
		"related":        related,
		"also_posted_in": engine.Composer.AlsoPostedIn(ctx, exts.Viewer(c), related, crosspost.ContextForumTopic),
	})
}

func createTopic(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Title   string `json:"title" validate:"required,max=1024"`
		Content string `json:"content" validate:"required"`
		Tags    string `json:"tags" validate:"max=4096"`
		Groups  []uint `json:"groups_to_post_to"`
		Nonce   string `json:"nonce"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	forumID, err := c.ParamsInt("forumId", 0)
	if err != nil || forumID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid forum id")
	}
	forum, err := services.GetForum(database.C, uint(forumID))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unable to find forum: %v", err))
	}
	if forum.GroupID != nil {
		if member, err := services.IsGroupMember(database.C, *forum.GroupID, user.ID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		} else if !member {
			return fiber.NewError(fiber.StatusForbidden, "you must be a member of this group to post in its forum")
		}
	}

	targets := lo.Without(lo.Uniq(lo.Compact(data.Groups)), lo.FromPtr(forum.GroupID))
	requested := len(targets) > 0
	if requested {
		if err := services.VerifyNonce(data.Nonce, user.ID, services.NonceActionCrosspost); err != nil {
			log.Debug().Err(err).Uint("account", user.ID).Msg("Rejected cross-post submission...")
			return fiber.NewError(fiber.StatusForbidden, "Sorry, there was a problem verifying your request.")
		}
	}

	topic, activity, err := services.NewTopic(database.C, models.Topic{
		ForumID:   forum.ID,
		AccountID: user.ID,
		Title:     data.Title,
		Content:   data.Content,
		Tags:      crosspost.ParseTags(data.Tags),
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()

	var held *crosspost.Notification
	if activity.ID > 0 {
		notification := engine.Coordinator.Compose(activity)
		if hold, err := engine.Coordinator.Hold(ctx, notification, requested); err == nil && hold {
			held = &notification
		} else if _, err := engine.Coordinator.Dispatch(ctx, crosspost.NewRun(), notification); err != nil {
			log.Warn().Err(err).Uint("topic", topic.ID).Msg("An error occurred when notifying group members...")
		}
	}

	var task *models.FanoutTask
	if requested {
		task, err = engine.Submit(ctx, crosspost.Request{
			TopicID:   topic.ID,
			AccountID: user.ID,
			GroupIDs:  targets,
			Tags:      data.Tags,
			Title:     data.Title,
			Content:   data.Content,
		}, held)
		if err != nil {
			if held != nil {
				_, _ = engine.Coordinator.Release(ctx, crosspost.NewRun(), held)
			}
			if errors.Is(err, crosspost.ErrAlreadyCrossposted) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(fiber.Map{
		"data": topic,
		"task": task,
	})
}

func getCrosspostTask(c *fiber.Ctx) error {
	id, err := c.ParamsInt("topicId", 0)
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic id")
	}

	task, err := services.GetFanoutTaskByTopic(database.C, uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return c.JSON(task)
}
