package api

import (
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/database"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

func listCrosspostCandidates(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	groups, err := services.ListCrosspostCandidates(database.C, user.ID, uint(c.QueryInt("current", 0)))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	nonce, err := services.IssueNonce(user.ID, services.NonceActionCrosspost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	visible := viper.GetInt("crosspost.selector_visible")
	if visible <= 0 {
		visible = 5
	}

	return c.JSON(fiber.Map{
		"count":   len(groups),
		"data":    groups,
		"visible": visible,
		"nonce":   nonce,
	})
}
