package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"

	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
)

// DeliveryHandlerInterface defines the contract for delivery handlers
type DeliveryHandlerInterface interface {
	ListDeliveries(c fiber.Ctx) error
}

// DeliveryHandler exposes the delivery ledger for inspection
type DeliveryHandler struct {
	deliveryFlow businessflow.DeliveryFlow
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryFlow businessflow.DeliveryFlow) *DeliveryHandler {
	return &DeliveryHandler{deliveryFlow: deliveryFlow}
}

// ListDeliveries returns delivery rows filtered by optional query params
func (h *DeliveryHandler) ListDeliveries(c fiber.Ctx) error {
	filter := models.DeliveryFilter{}
	if v := c.Query("status"); v != "" {
		status := models.DeliveryStatus(v)
		filter.Status = &status
	}
	if v := c.Query("channel"); v != "" {
		channel := models.DeliveryChannel(v)
		filter.Channel = &channel
	}

	limit, offset := pagination(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	deliveries, err := h.deliveryFlow.ListDeliveries(ctx, filter, limit, offset)
	if err != nil {
		log.Println("List deliveries failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list deliveries", "LIST_DELIVERIES_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Deliveries retrieved", deliveries)
}
