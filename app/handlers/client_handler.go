package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hermes-crm/hermes/app/dto"
	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
)

// ClientHandlerInterface defines the contract for client handlers
type ClientHandlerInterface interface {
	ListClients(c fiber.Ctx) error
	CreateClient(c fiber.Ctx) error
	SeedDemoClients(c fiber.Ctx) error
	ImportClients(c fiber.Ctx) error
}

// ClientHandler handles client management requests
type ClientHandler struct {
	clientFlow businessflow.ClientFlow
	validator  *validator.Validate
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientFlow businessflow.ClientFlow) *ClientHandler {
	return &ClientHandler{
		clientFlow: clientFlow,
		validator:  validator.New(),
	}
}

// ListClients returns clients filtered by optional query params
func (h *ClientHandler) ListClients(c fiber.Ctx) error {
	filter := models.ClientFilter{}
	if v := c.Query("segment"); v != "" {
		segment := models.ClientSegment(v)
		filter.Segment = &segment
	}
	if v := c.Query("profession"); v != "" {
		filter.Profession = &v
	}

	limit, offset := pagination(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	clients, err := h.clientFlow.ListClients(ctx, filter, limit, offset)
	if err != nil {
		log.Println("List clients failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list clients", "LIST_CLIENTS_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Clients retrieved", clients)
}

// CreateClient creates one client
func (h *ClientHandler) CreateClient(c fiber.Ctx) error {
	var req dto.CreateClientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorList(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := h.clientFlow.CreateClient(ctx, &req)
	if err != nil {
		log.Println("Create client failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to create client", "CREATE_CLIENT_FAILED", nil)
	}
	return successResponse(c, fiber.StatusCreated, "Client created", client)
}

// SeedDemoClients inserts the demo dataset
func (h *ClientHandler) SeedDemoClients(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.clientFlow.SeedDemoClients(ctx)
	if err != nil {
		log.Println("Seed demo clients failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to seed demo clients", "SEED_DEMO_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Demo clients seeded", result)
}

// ImportClients loads clients from an uploaded xlsx file
func (h *ClientHandler) ImportClients(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Multipart field 'file' is required", "INVALID_REQUEST", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", "INVALID_REQUEST", nil)
	}
	defer file.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.clientFlow.ImportClients(ctx, file)
	if err != nil {
		if businessflow.IsImportFileInvalid(err) {
			return errorResponse(c, fiber.StatusBadRequest, "File is not a readable xlsx workbook", "IMPORT_FILE_INVALID", nil)
		}
		log.Println("Import clients failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to import clients", "IMPORT_CLIENTS_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Clients imported", result)
}
