// Package handlers implements the HTTP surface over the job service. A
// submitted job runs asynchronously; these endpoints only register work
// and read snapshots.
package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/alcyonehq/alcyone/internal/db/models"
	"github.com/alcyonehq/alcyone/internal/db/repos"
	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/services"
	"github.com/alcyonehq/alcyone/internal/slurm"
)

// JobHandler handles HTTP requests for job operations
type JobHandler struct {
	service *services.JobService
	history *repos.SubmissionRepository
}

// NewJobHandler creates a new job handler instance. history may be nil when
// the submission history database is not configured.
func NewJobHandler(s *services.JobService, history *repos.SubmissionRepository) *JobHandler {
	return &JobHandler{service: s, history: history}
}

// SubmitJob handles the request to submit a new job. The body is a job
// manifest; a task path in the body refers to a file on this server.
func (h *JobHandler) SubmitJob(c *fiber.Ctx) error {
	// Absent gpus keeps the default accelerator request; an explicit zero
	// disables it.
	m := &job.Manifest{
		Resources: slurm.BatchParams{GPUs: slurm.DefaultGPUs},
	}
	if err := c.BodyParser(m); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}

	view, err := h.service.Submit(c.Context(), m)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}

	return c.Status(fiber.StatusCreated).
		JSON(Response{
			Slug: SuccessSlug,
			Data: view,
		})
}

// GetJob handles the request to get one job's lifecycle state
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("invalid job id"))
	}

	view, ok := h.service.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).
			JSON(errNotFound(fmt.Sprintf("job %s not found", id)))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: view,
	})
}

// ListJobs handles the request to list the jobs this process has handled
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	stateFilter := c.Query("state")
	if stateFilter != "" {
		if _, err := job.ParseState(stateFilter); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(errInvalidInput("invalid job state"))
		}
	}

	views := h.service.List()
	if stateFilter != "" {
		filtered := views[:0]
		for _, v := range views {
			if v.State == stateFilter {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: views,
	})
}

// GetJobOutput handles the request to download a job's output artifact
func (h *JobHandler) GetJobOutput(c *fiber.Ctx) error {
	id := c.Params("id")
	view, ok := h.service.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).
			JSON(errNotFound(fmt.Sprintf("job %s not found", id)))
	}

	data, ok := h.service.Artifact(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).
			JSON(errNotFound(fmt.Sprintf("no artifact for job %s (state %s)", id, view.State)))
	}

	c.Set(fiber.HeaderContentType, "application/octet-stream")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("alcyone_out_%s.dat", id)))
	return c.Send(data)
}

// ListHistory handles the request to list persisted submission rows
func (h *JobHandler) ListHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return c.Status(fiber.StatusNotImplemented).
			JSON(errGeneral("submission history is not enabled"))
	}

	var (
		limit  = c.QueryInt("limit", models.DefaultLimit)
		offset = c.QueryInt("offset", 0)
		state  = c.Query("state")
	)
	if state != "" {
		if _, err := job.ParseState(state); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(errInvalidInput("invalid job state"))
		}
	}

	rows, err := h.history.List(c.Context(), state, &models.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}
	total, err := h.history.Count(c.Context(), state)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: fiber.Map{
			"rows":  rows,
			"total": total,
		},
	})
}
