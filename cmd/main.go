package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/alcyonehq/alcyone/config"
	"github.com/alcyonehq/alcyone/internal/api/v1/handlers"
	"github.com/alcyonehq/alcyone/internal/api/v1/middleware"
	v1 "github.com/alcyonehq/alcyone/internal/api/v1/routes"
	"github.com/alcyonehq/alcyone/internal/constants"
	"github.com/alcyonehq/alcyone/internal/db"
	"github.com/alcyonehq/alcyone/internal/db/repos"
	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/services"
)

func main() {
	config.LoadEnv()
	logger.InitializeAndConfigure()

	history := historyRepo()
	service := services.NewJobService(services.Options{
		History: history,
	})
	service.Start(context.Background())

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})
	app.Use(middleware.Logger())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API v1 routes
	v1.Register(app, handlers.NewJobHandler(service, history))

	log.Fatal(app.Listen(config.GetEnv(constants.EnvListenAddr, ":8080")))
}

// historyRepo opens the submission history store when it is enabled.
// The server runs without it; history is an audit record, not job state.
func historyRepo() *repos.SubmissionRepository {
	if config.GetEnv(constants.EnvHistory, "false") != "true" {
		return nil
	}

	conn, err := db.New(db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, db.DefaultHost),
		Port:     config.GetEnvInt(constants.EnvDBPort, db.DefaultPort),
		User:     config.GetEnv(constants.EnvDBUser, db.DefaultUser),
		Password: config.GetEnv(constants.EnvDBPassword, db.DefaultPassword),
		DBName:   config.GetEnv(constants.EnvDBName, db.DefaultDBName),
	})
	if err != nil {
		logger.Fatalf("failed to connect to history database: %v", err)
	}
	return repos.NewSubmissionRepository(conn)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
