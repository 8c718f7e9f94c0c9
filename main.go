package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"crm-gamification-engine/handlers"
	"crm-gamification-engine/middleware"
	"crm-gamification-engine/models"
	"crm-gamification-engine/services"
	"crm-gamification-engine/utils"
	"crm-gamification-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID, X-Tenant-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.ActivityLog{},
		&models.ScoreRecord{},
		&models.ScoringWeight{},
		&models.AchievementDefinition{},
		&models.UserAchievement{},
		&models.UserPoints{},
		&models.SeasonWinner{},
		&models.SeasonRollover{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedAchievementDefinitions(db); err != nil {
		log.Fatal("failed to seed achievement definitions:", err)
	}

	// Optional leaderboard cache
	var cache *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		log.Printf("✅ Leaderboard cache enabled (redis at %s)", redisAddr)
	} else {
		log.Println("⚠️  REDIS_ADDR not set — leaderboard cache disabled")
	}

	scoringService := services.NewScoringService(db)
	leaderboardService := services.NewLeaderboardService(db, cache)
	achievementService := services.NewAchievementService(db)
	notificationService := services.NewNotificationService(db)
	rolloverService := services.NewRolloverService(db)

	// Optional season archive export mirror
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  Season archive export disabled: %v", err)
	} else {
		rolloverService.Exporter = utils.UploadJSONToR2
		log.Println("✅ Season archive export to R2 enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mirror scoring weights from the admin settings store, if configured
	if settingsURL := os.Getenv("SETTINGS_SERVICE_URL"); settingsURL != "" {
		settingsToken := os.Getenv("SETTINGS_SERVICE_TOKEN")
		weightsWorker := workers.NewWeightsSyncWorker(db, settingsURL, "/api/v1/internal/scoring-weights", settingsToken)
		weightsWorker.Start(ctx)
	} else {
		log.Println("⚠️  SETTINGS_SERVICE_URL not set — scoring weights use defaults and manual rows only")
	}

	rolloverService.StartRolloverScheduler()

	handlers.SetupEventRoutes(app, scoringService, achievementService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)
	handlers.SetupAchievementRoutes(app, achievementService, notificationService)
	handlers.SetupSeasonRoutes(app, rolloverService)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Gamification engine running on http://localhost:%s", port)
	log.Println("✅ Season rollover scheduler running (hourly boundary check)")

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
