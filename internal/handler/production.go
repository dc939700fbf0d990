package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/printworks/api/internal/apperr"
	"github.com/printworks/api/internal/middleware"
	"github.com/printworks/api/internal/model"
	"github.com/printworks/api/internal/service"
	"github.com/printworks/api/pkg/response"
)

// ProductionHandler exposes the workflow engine's operations over HTTP.
type ProductionHandler struct {
	service   *service.WorkflowService
	validator *validator.Validate
}

func NewProductionHandler(svc *service.WorkflowService, v *validator.Validate) *ProductionHandler {
	return &ProductionHandler{
		service:   svc,
		validator: v,
	}
}

// CreateJob handles POST /api/production/jobs
func (h *ProductionHandler) CreateJob(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.CreateJob(c.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, model.NewJobResponse(job))
}

// GetJob handles GET /api/production/jobs/:jobId
func (h *ProductionHandler) GetJob(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.NewJobResponse(job))
}

// ListStages handles GET /api/production/jobs/:jobId/stages
func (h *ProductionHandler) ListStages(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	stages, err := h.service.ListStages(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	now := time.Now()
	out := make([]model.StageResponse, 0, len(stages))
	for _, stage := range stages {
		out = append(out, model.NewStageResponse(stage, now))
	}
	return response.OK(c, out)
}

// Queue handles GET /api/production/jobs/:jobId/queue — the stages an
// operator or approver can currently act on.
func (h *ProductionHandler) Queue(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	stages, err := h.service.ListStages(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	now := time.Now()
	out := make([]model.StageResponse, 0)
	for _, stage := range stages {
		if stage.StageStatus.Actionable() {
			out = append(out, model.NewStageResponse(stage, now))
		}
	}
	return response.OK(c, out)
}

// StartProduction handles POST /api/production/jobs/:jobId/start
func (h *ProductionHandler) StartProduction(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, stages, err := h.service.StartProduction(c.Context(), jobID, middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}

	now := time.Now()
	stageResponses := make([]model.StageResponse, 0, len(stages))
	for _, stage := range stages {
		stageResponses = append(stageResponses, model.NewStageResponse(stage, now))
	}
	return response.OK(c, model.StartProductionResponse{
		Success: true,
		Job:     model.NewJobResponse(job),
		Stages:  stageResponses,
	})
}

// StartStage handles POST /api/production/stages/:stageId/start
func (h *ProductionHandler) StartStage(c *fiber.Ctx) error {
	req, err := h.parseActionRequest(c)
	if err != nil {
		return err
	}

	stage, serr := h.service.StartStage(c.Context(), c.Params("stageId"), middleware.GetUserID(c), req.Notes)
	if serr != nil {
		return serviceError(c, serr)
	}
	return transitionOK(c, stage)
}

// CompleteStage handles POST /api/production/stages/:stageId/complete
func (h *ProductionHandler) CompleteStage(c *fiber.Ctx) error {
	var req model.CompleteStageRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	stage, err := h.service.CompleteStage(c.Context(), c.Params("stageId"), middleware.GetUserID(c), req.Notes, req.StageData)
	if err != nil {
		return serviceError(c, err)
	}
	return transitionOK(c, stage)
}

// ApproveStage handles POST /api/production/stages/:stageId/approve
func (h *ProductionHandler) ApproveStage(c *fiber.Ctx) error {
	req, err := h.parseActionRequest(c)
	if err != nil {
		return err
	}

	stage, serr := h.service.ApproveStage(c.Context(), c.Params("stageId"), middleware.GetUserID(c), req.Notes)
	if serr != nil {
		return serviceError(c, serr)
	}
	return transitionOK(c, stage)
}

// RejectStage handles POST /api/production/stages/:stageId/reject
func (h *ProductionHandler) RejectStage(c *fiber.Ctx) error {
	var req model.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	stage, err := h.service.RejectStage(c.Context(), c.Params("stageId"), middleware.GetUserID(c), req.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return transitionOK(c, stage)
}

// HoldStage handles POST /api/production/stages/:stageId/hold
func (h *ProductionHandler) HoldStage(c *fiber.Ctx) error {
	var req model.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	stage, err := h.service.HoldStage(c.Context(), c.Params("stageId"), middleware.GetUserID(c), req.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return transitionOK(c, stage)
}

// ResumeStage handles POST /api/production/stages/:stageId/resume
func (h *ProductionHandler) ResumeStage(c *fiber.Ctx) error {
	req, err := h.parseActionRequest(c)
	if err != nil {
		return err
	}

	stage, serr := h.service.ResumeStage(c.Context(), c.Params("stageId"), middleware.GetUserID(c), req.Notes)
	if serr != nil {
		return serviceError(c, serr)
	}
	return transitionOK(c, stage)
}

// parseActionRequest reads the optional notes body shared by start, approve
// and resume.
func (h *ProductionHandler) parseActionRequest(c *fiber.Ctx) (*model.StageActionRequest, error) {
	var req model.StageActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return nil, response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return nil, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}
	return &req, nil
}

func transitionOK(c *fiber.Ctx, stage *model.ProductionStage) error {
	return response.OK(c, model.TransitionResponse{
		Success: true,
		Stage:   model.NewStageResponse(stage, time.Now()),
	})
}

// serviceError maps the typed workflow errors onto the response envelope.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, apperr.ErrValidation):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, apperr.ErrInvalidState):
		return response.InvalidState(c, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return response.Conflict(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
