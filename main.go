package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"membership/internal/api"
	"membership/internal/auth"
	"membership/internal/config"
	"membership/internal/directory"
	"membership/internal/logger"
	"membership/internal/mail"
	"membership/internal/member"
	"membership/internal/middleware"
	"membership/internal/monitoring"
	"membership/internal/openfga"
	"membership/internal/ratelimit"
	"membership/internal/storage"
	"membership/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/storage/postgres/v3"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	sessionDBHost     = "localhost"
	sessionDBPort     = 5432
	sessionDBUser     = "postgres"
	sessionDBPassword = "postgres"
	sessionDBName     = "postgres"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	telemetry, err := monitoring.NewOpenTelemetry(cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown failed: %v", err)
		}
	}()

	appLogger := logger.New(*cfg)

	// Connect to the session database
	dataSourceName := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		sessionDBHost, sessionDBPort, sessionDBUser, sessionDBPassword, sessionDBName)
	sessionDB, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}
	defer sessionDB.Close()

	// Initialize session store
	sessionStorage := postgres.New(postgres.Config{
		Host:     sessionDBHost,
		Port:     sessionDBPort,
		Database: sessionDBName,
		Username: sessionDBUser,
		Password: sessionDBPassword,
		Table:    "sessions",
		Reset:    false, // Don't reset the table on startup
	})

	store := session.New(session.Config{
		Storage:        sessionStorage,
		KeyLookup:      "cookie:session_id",
		CookieDomain:   "",
		CookiePath:     "/",
		CookieSecure:   cfg.Server.Environment == "production",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     24 * time.Hour,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rateLimiter := ratelimit.NewRateLimiter(redisClient)

	fgaClient, err := openfga.NewClient(cfg.OpenFGA)
	if err != nil {
		log.Fatalf("Failed to initialize OpenFGA client: %v", err)
	}
	authz := openfga.NewAuthorizationService(fgaClient)

	archives, err := storage.NewStorageFromConfig(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize archive storage: %v", err)
	}

	welcome, err := mail.NewTemplate(cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to load welcome mail template: %v", err)
	}

	directoryClient := directory.NewClient(cfg.Directory)
	members := member.NewService(
		directoryClient,
		cfg.Directory.MembersGroupID,
		cfg.Mail.SenderID,
		welcome,
		appLogger.Logger,
	)

	authenticator := auth.NewAuthenticator(cfg.Auth)
	tokenCache := auth.NewTokenCache(authenticator.OAuthConfig())

	validate := validator.New()

	handler := api.NewHandler(store, members, archives, authenticator, tokenCache, rateLimiter, authz, telemetry, validate)
	health := api.NewHealthHandler(sessionDB, redisClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    4 * 1024 * 1024,
	})

	// CSRF Protection
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.Server.Environment == "production",
		Expiration:     1 * time.Hour,
		KeyGenerator:   utils.UUIDv4,
		ContextKey:     "token",
		Next: func(c *fiber.Ctx) bool {
			// The callback is a top-level redirect from the identity
			// provider and cannot carry our token.
			return c.Path() == "/auth/callback"
		},
	}))

	// Rate limiting for the sign-in endpoints
	signinLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})

	app.Get("/", handler.ShowHomePage)
	app.Get("/healthz", health.Healthy)

	// Sign-in routes
	app.Get("/auth/login", signinLimiter, handler.Login)
	app.Get("/auth/callback", signinLimiter, handler.Callback)
	app.Post("/auth/logout", handler.Logout)

	authed := app.Group("",
		middleware.AuthenticatedSession(store),
		middleware.RefreshToken(store, tokenCache),
	)

	// Self-service routes
	authed.Get("/profile", handler.ShowProfile)
	authed.Post("/profile", handler.UpdateProfile)
	authed.Post("/profile/email", handler.ChangeOwnEmail)

	// Staff routes
	staff := authed.Group("", middleware.RequireAdmin(cfg.Auth.AdminRole, authz))
	staff.Get("/members", handler.ListMembers)
	staff.Get("/members/:id", handler.GetMember)
	staff.Get("/members/:id/photo", handler.GetMemberPhoto)
	staff.Post("/members/:id", handler.UpdateMember)
	staff.Post("/members/:id/active", handler.SetMemberActive)
	staff.Post("/members/:id/email", handler.ChangeMemberEmail)
	staff.Post("/setup/import", handler.ImportRoster)

	port := cfg.Server.Port
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on :%s", port)
	log.Panic(app.Listen(":" + port))
}
