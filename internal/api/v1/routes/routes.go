package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alcyonehq/alcyone/internal/api/v1/handlers"
)

// Route locations, shared with the API client.
const (
	// DefaultBaseURL is where a locally run server listens
	DefaultBaseURL = "http://localhost:8080"
	// JobsPath is the base path for job operations
	JobsPath = "/api/v1/jobs"
	// HistoryPath is the path for the submission history listing
	HistoryPath = "/api/v1/history"
)

// JobURL returns the path for one job's state.
func JobURL(id string) string {
	return JobsPath + "/" + id
}

// JobOutputURL returns the path for one job's output artifact.
func JobOutputURL(id string) string {
	return JobURL(id) + "/output"
}

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, h *handlers.JobHandler) {
	// Job routes
	jobs := router.Group("/jobs")
	jobs.Post("/", h.SubmitJob)
	jobs.Get("/", h.ListJobs)
	jobs.Get("/:id", h.GetJob)
	jobs.Get("/:id/output", h.GetJobOutput)

	// Submission history
	router.Get("/history", h.ListHistory)
}

// Register registers the v1 routes
func Register(app *fiber.App, h *handlers.JobHandler) {
	// API v1 routes
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, h)
}
