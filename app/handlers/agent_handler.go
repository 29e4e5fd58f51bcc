package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"

	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
)

// AgentHandlerInterface defines the contract for agent handlers
type AgentHandlerInterface interface {
	RunOnce(c fiber.Ctx) error
	ListRuns(c fiber.Ctx) error
}

// AgentHandler triggers and inspects agent sweeps
type AgentHandler struct {
	agentFlow businessflow.AgentFlow
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agentFlow businessflow.AgentFlow) *AgentHandler {
	return &AgentHandler{agentFlow: agentFlow}
}

// RunOnce triggers one full agent sweep synchronously
func (h *AgentHandler) RunOnce(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := h.agentFlow.RunOnce(ctx, models.TriggeredByAPI)
	if err != nil {
		log.Println("Agent run failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Agent run failed", "AGENT_RUN_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Agent run finished", summary)
}

// ListRuns returns agent run audit rows
func (h *AgentHandler) ListRuns(c fiber.Ctx) error {
	filter := models.AgentRunFilter{}
	if v := c.Query("status"); v != "" {
		status := models.AgentRunStatus(v)
		filter.Status = &status
	}

	limit, offset := pagination(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	runs, err := h.agentFlow.ListRuns(ctx, filter, limit, offset)
	if err != nil {
		log.Println("List agent runs failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list agent runs", "LIST_AGENT_RUNS_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Agent runs retrieved", runs)
}
