// handlers/leaderboard.go
package handlers

import (
	"strconv"

	"crm-gamification-engine/middleware"
	"crm-gamification-engine/models"
	"crm-gamification-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		tenantID := c.Locals("tenant_id").(string)
		period := models.TimePeriod(c.Query("period", string(models.PeriodWeek)))
		limit, _ := strconv.Atoi(c.Query("limit", "10"))

		switch period {
		case models.PeriodWeek, models.PeriodMonth, models.PeriodAllTime:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid period — must be week, month or all_time",
			})
		}

		board, err := leaderboardService.GetLeaderboard(c.Context(), tenantID, period, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(board)
	})
}
