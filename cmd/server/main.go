package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/studyorbit/squadsync-backend/internal/cache"
	"github.com/studyorbit/squadsync-backend/internal/handlers"
	"github.com/studyorbit/squadsync-backend/internal/handlers/ws"
	"github.com/studyorbit/squadsync-backend/internal/jobs"
	"github.com/studyorbit/squadsync-backend/internal/middleware"
	"github.com/studyorbit/squadsync-backend/internal/repository"
	"github.com/studyorbit/squadsync-backend/internal/service"
	"github.com/studyorbit/squadsync-backend/internal/settings"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName: "SquadSync Backend",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	squadCache := cache.NewSquadCache(redisCache)

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	squadRepo := repository.NewSquadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	readReceiptRepo := repository.NewReadReceiptRepository(db)
	eventRepo := repository.NewEventRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	pomodoroRepo := repository.NewPomodoroRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize services
	settingsCache := settings.NewCache(settingsRepo, settings.DefaultTTL)
	squadService := service.NewSquadService(squadRepo, profileRepo, settingsCache)
	chatService := service.NewChatService(messageRepo, eventRepo, squadRepo, squadCache)
	challengeService := service.NewChallengeService(challengeRepo, eventRepo, squadRepo, settingsCache, squadCache)
	pomodoroService := service.NewPomodoroService(pomodoroRepo, squadRepo)
	receiptBatcher := service.NewReceiptBatcher(readReceiptRepo, 2*time.Second)

	// Initialize hub and handlers
	hub := ws.NewHub(profileRepo)
	wsHandler := handlers.NewWebSocketHandler(squadService, chatService, receiptBatcher, hub)
	squadHandler := handlers.NewSquadHandler(squadService, squadCache)
	chatHandler := handlers.NewChatHandler(chatService, receiptBatcher, hub)
	challengeHandler := handlers.NewChallengeHandler(challengeService, hub)
	pomodoroHandler := handlers.NewPomodoroHandler(pomodoroService, hub)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, settingsCache)

	// Background finalizer sweeps overdue challenges; read paths also
	// finalize opportunistically, the sweep covers idle squads.
	jobs.StartChallengeFinalizer(context.Background(), challengeService, hub, 10*time.Second)

	api := app.Group("/api", middleware.OriginAllowed())

	// Public settings read; writes are platform-admin only.
	api.Get("/settings", settingsHandler.GetSettings)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired())
	protected.Put("/settings", middleware.RequireRole("admin"), settingsHandler.UpdateSettings)

	// Squad routes
	protected.Post("/squads", squadHandler.CreateSquad)
	protected.Get("/squads/me", squadHandler.GetMySquad)
	protected.Get("/squads/search", limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}), squadHandler.SearchByCode)
	protected.Get("/squads/:id", squadHandler.GetSquad)
	protected.Post("/squads/:id/join", squadHandler.JoinSquad)
	protected.Post("/squads/:id/leave", squadHandler.LeaveSquad)
	protected.Get("/squads/:id/members", squadHandler.GetMembers)
	protected.Delete("/squads/:id/members/:member_id", squadHandler.KickMember)
	protected.Put("/squads/:id/name", squadHandler.RenameSquad)
	protected.Post("/squads/:id/transfer", squadHandler.TransferOwnership)
	protected.Delete("/squads/:id", squadHandler.DeleteSquad)

	// Chat routes
	protected.Get("/squads/:id/messages", chatHandler.GetMessages)
	protected.Post("/squads/:id/messages", chatHandler.SendMessage)
	protected.Post("/squads/:id/messages/read", chatHandler.MarkRead)
	protected.Delete("/squads/:id/messages", chatHandler.ClearChat)
	protected.Get("/squads/:id/announcements", chatHandler.GetAnnouncements)

	// Challenge routes
	protected.Post("/squads/:id/challenges", challengeHandler.StartChallenge)
	protected.Get("/squads/:id/challenges/active", challengeHandler.GetActiveChallenge)
	protected.Post("/challenges/:challenge_id/join", challengeHandler.JoinChallenge)
	protected.Post("/challenges/:challenge_id/finish", challengeHandler.FinishChallenge)
	protected.Get("/challenges/:challenge_id/progress", challengeHandler.GetProgress)
	protected.Post("/challenges/:challenge_id/finalize", challengeHandler.FinalizeChallenge)
	protected.Post("/challenges/:challenge_id/end", challengeHandler.EndChallenge)
	protected.Get("/challenges/:challenge_id/summary", challengeHandler.GetSummary)

	// Pomodoro routes
	protected.Post("/squads/:id/pomodoro", pomodoroHandler.StartPomodoro)
	protected.Get("/squads/:id/pomodoro", pomodoroHandler.GetPomodoro)
	protected.Delete("/squads/:id/pomodoro", pomodoroHandler.StopPomodoro)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "SquadSync is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
