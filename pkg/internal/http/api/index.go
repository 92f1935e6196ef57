package api

import (
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/database"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/gofiber/fiber/v2"
)

var (
	engine *crosspost.Engine
	host   *services.Host
)

func MapAPIs(app *fiber.App, baseURL string, e *crosspost.Engine) {
	engine = e
	host = services.NewHost(database.C)

	api := app.Group(baseURL).Name("API")
	{
		api.Get("/feed", listFeed)

		groups := api.Group("/groups").Name("Groups API")
		{
			groups.Get("/crosspost", listCrosspostCandidates)
		}

		forums := api.Group("/forums").Name("Forums API")
		{
			forums.Post("/:forumId/topics", createTopic)
		}

		topics := api.Group("/topics").Name("Topics API")
		{
			topics.Get("/:topicId", getTopic)
		}

		crossposts := api.Group("/crossposts").Name("Crossposts API")
		{
			crossposts.Get("/:topicId", getCrosspostTask)
		}
	}
}
