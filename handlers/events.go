// handlers/events.go
package handlers

import (
	"errors"
	"log"
	"time"

	"crm-gamification-engine/middleware"
	"crm-gamification-engine/models"
	"crm-gamification-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, scoringService *services.ScoringService, achievementService *services.AchievementService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Ingest one activity event: score it, then evaluate the achievements it
	// can have unlocked. Callers must de-duplicate events by their own event
	// id before posting — the engine applies every event it accepts.
	securedGroup.Post("/events", func(c *fiber.Ctx) error {
		type Req struct {
			UserID       string         `json:"user_id"`
			ActivityType string         `json:"activity_type"`
			Value        int64          `json:"value"`
			OccurredAt   time.Time      `json:"occurred_at"`
			Metadata     map[string]any `json:"metadata"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		userID := req.UserID
		if userID == "" {
			userID = c.Locals("user_id").(string)
		}
		tenantID := c.Locals("tenant_id").(string)

		event := models.ActivityEvent{
			UserID:       userID,
			TenantID:     tenantID,
			ActivityType: models.ActivityType(req.ActivityType),
			Value:        req.Value,
			OccurredAt:   req.OccurredAt,
			Metadata:     req.Metadata,
		}

		if err := scoringService.ProcessEvent(c.Context(), event); err != nil {
			if errors.Is(err, services.ErrUnknownActivityType) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "unknown activity type",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "scoring failed",
				"cause": err.Error(),
			})
		}

		// Achievement evaluation is isolated from scoring: a criteria failure
		// never fails the ingest.
		if err := achievementService.EvaluateOnEvent(c.Context(), event); err != nil {
			log.Printf("⚠️ Achievement evaluation failed for user %s: %v", userID, err)
		}

		return c.JSON(fiber.Map{
			"message":       "event scored",
			"user_id":       userID,
			"activity_type": req.ActivityType,
		})
	})

	// Backfill: re-evaluate every active achievement for a user from journal
	// and ledger state only.
	securedGroup.Post("/achievements/reevaluate", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		tenantID := c.Locals("tenant_id").(string)

		if err := achievementService.EvaluateAll(c.Context(), userID, tenantID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "re-evaluation finished with failures",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "achievements re-evaluated",
			"user_id": userID,
		})
	})
}
