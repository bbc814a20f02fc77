package handler

import (
	"errors"
	"time"

	"github.com/atwlabs/semantic-job-matcher/internal/dto"
	"github.com/atwlabs/semantic-job-matcher/internal/middleware"
	"github.com/atwlabs/semantic-job-matcher/internal/usecase"
	"github.com/atwlabs/semantic-job-matcher/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MatchingHandler struct {
	uc   *usecase.MatchingUsecase
	auth fiber.Handler
}

func NewMatchingHandler(uc *usecase.MatchingUsecase, auth fiber.Handler) *MatchingHandler {
	return &MatchingHandler{uc: uc, auth: auth}
}

func (h *MatchingHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api", h.auth)
	api.Post("/resumes", middleware.RateLimiter(10, 1*time.Minute), h.UploadResume)
	api.Get("/resumes/:id/matches", h.StoredMatches)
	api.Post("/jobs/sync", h.SyncJobs)
	api.Get("/analytics", h.Analytics)
}

type uploadResumeRequest struct {
	Text      string  `json:"text"`
	Filename  string  `json:"filename"`
	Email     string  `json:"email"`
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}

// UploadResume stores the (already extracted) resume text and returns its
// ranked matches in one round trip, mirroring the upload flow of the clients.
func (h *MatchingHandler) UploadResume(c *fiber.Ctx) error {
	tenant := middleware.TenantFromContext(c)

	var req uploadResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid request body",
		}, err)
	}
	if req.Text == "" {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "resume text is required",
		})
	}

	resume, err := h.uc.StoreResume(c.Context(), req.Text, req.Filename, tenant.ID, req.Email, c.IP())
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to store resume",
		}, err)
	}

	matches, err := h.uc.FindMatches(c.Context(), resume.ID, tenant.ID, req.Limit, req.Threshold)
	if err != nil {
		code := fiber.StatusInternalServerError
		if errors.Is(err, usecase.ErrResumeNotFound) {
			code = fiber.StatusNotFound
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    code,
			Message: "failed to find matches",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Resume processed",
		Data: fiber.Map{
			"resume": dto.ResumeDTO{
				ID:              resume.ID,
				Filename:        resume.Filename,
				Skills:          resume.Skills,
				ExperienceYears: resume.ExperienceYears,
				CreatedAt:       resume.CreatedAt,
			},
			"match_count": len(matches),
			"matches":     matches,
		},
	})
}

func (h *MatchingHandler) StoredMatches(c *fiber.Ctx) error {
	tenant := middleware.TenantFromContext(c)

	resumeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid resume id",
		}, err)
	}

	matches, err := h.uc.GetStoredMatches(tenant.ID, resumeID, c.QueryInt("limit"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to get matches",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get stored matches",
		Data: fiber.Map{
			"resume_id":   resumeID,
			"match_count": len(matches),
			"matches":     matches,
		},
	})
}

type syncJobsRequest struct {
	Jobs *[]dto.JobRecord `json:"jobs"`
}

func (h *MatchingHandler) SyncJobs(c *fiber.Ctx) error {
	tenant := middleware.TenantFromContext(c)

	var req syncJobsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid request body",
		}, err)
	}
	if req.Jobs == nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "jobs array is required",
		})
	}

	result, err := h.uc.SyncJobs(c.Context(), *req.Jobs, tenant.ID)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to sync jobs",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Jobs synced",
		Data:    result,
	})
}

func (h *MatchingHandler) Analytics(c *fiber.Ctx) error {
	tenant := middleware.TenantFromContext(c)

	stats, err := h.uc.GetAnalytics(tenant.ID)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to get analytics",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get analytics",
		Data: fiber.Map{
			"tenant":     tenant.Name,
			"statistics": stats,
		},
	})
}
