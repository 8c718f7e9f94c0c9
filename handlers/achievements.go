// handlers/achievements.go
package handlers

import (
	"crm-gamification-engine/middleware"
	"crm-gamification-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAchievementRoutes(app *fiber.App, achievementService *services.AchievementService, notificationService *services.NotificationService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		earned, definitions, err := achievementService.ListUserAchievements(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}

		var response []fiber.Map
		for _, ua := range earned {
			def := definitions[ua.AchievementID]
			response = append(response, fiber.Map{
				"id":             ua.ID,
				"achievement_id": def.ID,
				"code":           def.Code,
				"name":           def.Name,
				"description":    def.Description,
				"icon":           def.Icon,
				"badge_color":    def.BadgeColor,
				"points":         def.Points,
				"earned_at":      ua.EarnedAt,
				"progress":       ua.Progress,
			})
		}
		return c.JSON(response)
	})

	securedGroup.Get("/user/points", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		tenantID := c.Locals("tenant_id").(string)

		total, err := achievementService.GetUserPoints(c.Context(), userID, tenantID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get points",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"user_id":      userID,
			"total_points": total,
		})
	})

	// Toast stream for the UI layer
	securedGroup.Get("/achievements/stream", notificationService.StreamAchievementsSSE)
}
