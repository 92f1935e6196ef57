package api

import (
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

func listFeed(c *fiber.Ctx) error {
	take := c.QueryInt("take", 10)
	offset := c.QueryInt("offset", 0)
	if take <= 0 || take > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "take must be between 1 and 100")
	}

	q := crosspost.FeedQuery{Limit: take, Offset: offset}
	if group := c.QueryInt("group", 0); group > 0 {
		q.GroupID = lo.ToPtr(uint(group))
	}
	if author := c.QueryInt("author", 0); author > 0 {
		q.AccountID = lo.ToPtr(uint(author))
	}

	ctx := c.UserContext()
	page, err := engine.Feed(host).Query(ctx, q)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	viewer := exts.Viewer(c)
	for idx, item := range page.Activities {
		action, err := engine.Composer.ActionString(ctx, viewer, item)
		if err != nil {
			log.Warn().Err(err).Uint("activity", item.ID).Msg("Unable to compose feed action, keeping original...")
			continue
		}
		page.Activities[idx].Action = action
	}

	return c.JSON(fiber.Map{
		"count": page.Total,
		"data":  page.Activities,
	})
}
