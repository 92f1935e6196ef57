package exts

import (
	"strconv"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/database"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const AccountHeader = "X-Account-Id"

// ContextMiddleware loads the account the gateway authenticated into c.Locals("user").
func ContextMiddleware(c *fiber.Ctx) error {
	raw := c.Get(AccountHeader)
	if len(raw) == 0 {
		return c.Next()
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}
	account, err := services.GetAccount(database.C, uint(id))
	if err != nil {
		log.Debug().Err(err).Uint64("account", id).Msg("Unable to load account from gateway header...")
		return c.Next()
	}

	c.Locals("user", account)
	return c.Next()
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(models.Account); !ok {
		return fiber.NewError(fiber.StatusUnauthorized)
	}
	return nil
}

// Viewer describes the current reader for visibility checks, anonymous when unauthenticated.
func Viewer(c *fiber.Ctx) crosspost.Viewer {
	if user, ok := c.Locals("user").(models.Account); ok {
		return crosspost.Viewer{AccountID: user.ID, IsModerator: user.IsModerator}
	}
	return crosspost.Viewer{}
}
