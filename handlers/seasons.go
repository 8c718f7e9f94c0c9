// handlers/seasons.go
package handlers

import (
	"net/url"
	"time"

	"crm-gamification-engine/middleware"
	"crm-gamification-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSeasonRoutes(app *fiber.App, rolloverService *services.RolloverService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Season history for one period label, e.g. /s/seasons/March%202025/winners
	securedGroup.Get("/seasons/:period/winners", func(c *fiber.Ctx) error {
		tenantID := c.Locals("tenant_id").(string)
		period, err := url.PathUnescape(c.Params("period"))
		if err != nil || period == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing or malformed season period",
			})
		}

		winners, err := rolloverService.ListSeasonWinners(c.Context(), tenantID, period)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get season winners",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"season_period": period,
			"winners":       winners,
		})
	})

	// Admin: trigger the rollover for the season containing `at` (defaults to
	// the previous month). Safe against double-triggers — duplicate runs no-op.
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/rollover", func(c *fiber.Ctx) error {
		tenantID := c.Locals("tenant_id").(string)

		type Req struct {
			At *time.Time `json:"at"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		seasonTime := time.Now().UTC()
		if req.At != nil {
			seasonTime = req.At.UTC()
		} else {
			monthStart := time.Date(seasonTime.Year(), seasonTime.Month(), 1, 0, 0, 0, 0, time.UTC)
			seasonTime = monthStart.AddDate(0, 0, -1)
		}

		if err := rolloverService.RunSeasonRollover(c.Context(), tenantID, seasonTime); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "season rollover failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":       "season rollover completed",
			"season_period": seasonTime.Format("January 2006"),
		})
	})
}
