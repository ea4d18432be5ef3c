package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fixlify/automation-engine/pkg/dispatcher"
	"github.com/fixlify/automation-engine/pkg/events"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// recognizedEvents are the business events the ingestion endpoint accepts.
var recognizedEvents = map[string]bool{
	events.JobCreated:       true,
	events.JobStatusChanged: true,
	events.JobScheduled:     true,
	events.JobCompleted:     true,
	events.EstimateSent:     true,
	events.EstimateApproved: true,
	events.InvoiceCreated:   true,
	events.PaymentReceived:  true,
	events.MissedCall:       true,
	events.CustomerInquiry:  true,
}

type APIHandlers struct {
	persistence persistence.Persistence
	dispatcher  *dispatcher.Dispatcher
	guard       *guard.ExecutionGuard
	validator   *validator.Validate
}

func NewAPIHandlers(
	store persistence.Persistence,
	disp *dispatcher.Dispatcher,
	g *guard.ExecutionGuard,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: store,
		dispatcher:  disp,
		guard:       g,
		validator:   validate,
	}
}

// IngestEvent accepts one business event and dispatches matching automations.
// Dispatch is fire-and-forget, so a valid request is always accepted even
// when no workflow matches or the guard refuses every execution.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	name := c.Params("name")
	if !recognizedEvents[name] {
		return badRequest(c, "Unrecognized event name: "+name)
	}

	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if name == events.JobStatusChanged {
		if req.NewStatus == "" {
			return badRequest(c, "new_status is required for job_status_changed")
		}

		h.dispatcher.JobStatusChanged(c.Context(), req.EntityID, req.OldStatus, req.NewStatus, req.Entity)
	} else {
		event := events.NewTriggerEvent(name, models.EntityType(req.EntityType), req.EntityID, req.Entity)
		h.dispatcher.DispatchEvent(c.Context(), event)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event":     name,
		"entity_id": req.EntityID,
		"accepted":  true,
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handlePersistenceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	status := models.WorkflowStatus(req.Status)
	if status == "" {
		status = models.WorkflowStatusDraft
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		TriggerKind: models.TriggerKind(req.TriggerKind),
		EventName:   req.EventName,
		Schedule:    req.Schedule,
		Steps:       req.Steps,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.validator.Struct(workflow); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return handlePersistenceError(c, err)
	}

	h.dispatcher.InvalidateCache()

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handlePersistenceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Status != nil {
		existing.Status = models.WorkflowStatus(*req.Status)
	}

	if req.EventName != nil {
		existing.EventName = *req.EventName
	}

	if req.Schedule != nil {
		existing.Schedule = *req.Schedule
	}

	if req.Steps != nil {
		existing.Steps = req.Steps
	}

	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.validator.Struct(existing); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), existing); err != nil {
		return handlePersistenceError(c, err)
	}

	h.dispatcher.InvalidateCache()

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.DeleteWorkflow(c.Context(), id); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handlePersistenceError(c, err)
	}

	h.dispatcher.InvalidateCache()

	return c.SendStatus(fiber.StatusNoContent)
}

// GetExecutionLogs lists recent executions, optionally filtered by workflow.
func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+limitStr)
		}

		limit = parsed
	}

	logs, err := h.persistence.ExecutionLogs(c.Context(), c.Query("workflow_id"), limit)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": logs,
		"count":      len(logs),
	})
}

// ResetGuard clears all execution-guard counters. Operator-only escape hatch
// for a wedged budget.
func (h *APIHandlers) ResetGuard(c fiber.Ctx) error {
	h.guard.Reset()

	return c.JSON(fiber.Map{
		"reset":   true,
		"tracked": h.guard.Tracked(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Fixlify automation engine is healthy"
	httpStatus := http.StatusOK

	repositoryErr := h.persistence.HealthCheck(c.Context())
	if repositoryErr != nil {
		status = "unhealthy"
		message = "Fixlify automation engine is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	checkers := fiber.Map{"repository": "ok"}
	if repositoryErr != nil {
		checkers["repository"] = repositoryErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"checkers":  checkers,
		"timestamp": time.Now().UTC(),
	})
}
