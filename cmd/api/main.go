package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/skillbridge-app/backend/internal/config"
	"github.com/skillbridge-app/backend/internal/db"
	"github.com/skillbridge-app/backend/internal/handlers"
	"github.com/skillbridge-app/backend/internal/middleware"
	"github.com/skillbridge-app/backend/internal/models"
	"github.com/skillbridge-app/backend/internal/realtime"
	"github.com/skillbridge-app/backend/internal/services/wallet"
	"github.com/skillbridge-app/backend/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Freelancer{},
		&models.Project{},
		&models.ProjectBid{},
		&models.Application{},
		&models.WalletTransaction{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	notifier := realtime.NewWorkflowNotifier(hub, rdb)
	engine := workflow.NewEngine(gdb, wallet.NewService(gdb), notifier)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	projectH := handlers.NewProjectHandler(gdb, engine)
	applicationH := handlers.NewApplicationHandler(engine)
	freelancerH := handlers.NewFreelancerHandler(gdb, engine)
	userH := handlers.NewUserHandler(engine)
	notificationsH := handlers.NewNotificationsHandler(hub)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/projects", projectH.List)
	api.Get("/projects/:id", projectH.Get)

	// protected (JWT)
	protected := api.Group("/", middleware.JWTFromCookie(cfg.JWTSecret))

	protected.Get("/users", userH.List)
	protected.Get("/users/:id", userH.Get)
	protected.Get("/freelancers/:id", freelancerH.Get)
	protected.Get("/applications", applicationH.List)

	// client only
	protected.Post("/projects",
		middleware.RequireRoles("client"),
		projectH.Create,
	)
	protected.Post("/applications/:id/approve",
		middleware.RequireRoles("client"),
		applicationH.Approve,
	)
	protected.Post("/applications/:id/reject",
		middleware.RequireRoles("client"),
		applicationH.Reject,
	)
	protected.Post("/projects/:id/submission/approve",
		middleware.RequireRoles("client"),
		projectH.ApproveSubmission,
	)
	protected.Post("/projects/:id/submission/reject",
		middleware.RequireRoles("client"),
		projectH.RejectSubmission,
	)

	// freelancer only
	protected.Post("/bids",
		middleware.RequireRoles("freelancer"),
		applicationH.PlaceBid,
	)
	protected.Post("/projects/submit",
		middleware.RequireRoles("freelancer"),
		projectH.Submit,
	)
	protected.Put("/freelancer/profile",
		middleware.RequireRoles("freelancer"),
		freelancerH.Update,
	)

	// WebSocket notifications (auth via query param)
	app.Get("/ws/notifications", websocket.New(notificationsH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
