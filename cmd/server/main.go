package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/atwlabs/semantic-job-matcher/internal/config"
	"github.com/atwlabs/semantic-job-matcher/internal/domain/fiber/handler"
	"github.com/atwlabs/semantic-job-matcher/internal/logger"
	"github.com/atwlabs/semantic-job-matcher/internal/middleware"
	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/atwlabs/semantic-job-matcher/internal/repository"
	"github.com/atwlabs/semantic-job-matcher/internal/service"
	"github.com/atwlabs/semantic-job-matcher/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()

	zapLogger, err := logger.New(appConfig.Env == "production", appConfig.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer zapLogger.Sync()

	app := fiber.New(fiber.Config{
		AppName: appConfig.Name,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}

			return ctx.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: appConfig.Env != "production",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(healthcheck.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	db := ConnectDB()

	tenantRepo := repository.NewTenantRepository(db)
	resumeRepo := repository.NewResumeRepository(db)
	jobEmbeddingRepo := repository.NewJobEmbeddingRepository(db)
	jobMatchRepo := repository.NewJobMatchRepository(db)

	gemini, err := service.NewGeminiService(ctx, zapLogger)
	if err != nil {
		log.Fatal(err)
	}
	openRouter := service.NewOpenRouterService(zapLogger)
	embeddings := service.NewEmbeddingService(gemini, openRouter, zapLogger)

	uc := usecase.NewMatchingUsecase(
		resumeRepo,
		jobEmbeddingRepo,
		jobMatchRepo,
		embeddings,
		zapLogger,
		config.LoadMatchingConfig(),
	)

	auth := middleware.APIKeyAuth(tenantRepo, zapLogger)
	handler.NewMatchingHandler(uc, auth).RegisterRoutes(app)

	zapLogger.Info("server starting", zap.String("port", appConfig.Port))
	if err := app.Listen(appConfig.Port); err != nil {
		log.Fatal(err)
	}
}

func ConnectDB() *gorm.DB {
	dbConfig := config.LoadDBConfig()
	appConfig := config.LoadAppConfig()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		dbConfig.Host,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Port,
		dbConfig.SSLMode,
		dbConfig.TimeZone,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if appConfig.Env != "production" {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(200)
		pgDB.SetConnMaxLifetime(time.Hour)
	}

	err = db.AutoMigrate(&model.Tenant{}, &model.Resume{}, &model.JobEmbedding{}, &model.JobMatch{})
	if err != nil {
		log.Fatal("migration failed: ", err)
	}
	return db
}
