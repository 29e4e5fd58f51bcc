package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// ApprovalFlow handles operator review of greetings
type ApprovalFlow interface {
	ApproveGreeting(ctx context.Context, req *dto.ReviewGreetingRequest) (*dto.ReviewGreetingResponse, error)
	RejectGreeting(ctx context.Context, req *dto.ReviewGreetingRequest) (*dto.ReviewGreetingResponse, error)
	ListGreetings(ctx context.Context, filter models.GreetingFilter, limit, offset int) ([]*models.Greeting, error)
}

// ApprovalFlowImpl implements the approval state machine
type ApprovalFlowImpl struct {
	greetingRepo repository.GreetingRepository
	eventRepo    repository.EventRepository
	clientRepo   repository.ClientRepository
	deliveryFlow DeliveryFlow
	logger       *log.Logger
}

// NewApprovalFlow creates a new approval flow instance
func NewApprovalFlow(
	greetingRepo repository.GreetingRepository,
	eventRepo repository.EventRepository,
	clientRepo repository.ClientRepository,
	deliveryFlow DeliveryFlow,
	logger *log.Logger,
) ApprovalFlow {
	return &ApprovalFlowImpl{
		greetingRepo: greetingRepo,
		eventRepo:    eventRepo,
		clientRepo:   clientRepo,
		deliveryFlow: deliveryFlow,
		logger:       logger,
	}
}

// ApproveGreeting approves a reviewable greeting. An approval before
// the event day only schedules the greeting; on the event day itself
// the delivery is attempted immediately. Approving a greeting that is
// not reviewable is an idempotent no-op reported as "ignored".
func (s *ApprovalFlowImpl) ApproveGreeting(ctx context.Context, req *dto.ReviewGreetingRequest) (*dto.ReviewGreetingResponse, error) {
	g, err := s.greetingRepo.ByID(ctx, req.GreetingID)
	if err != nil {
		return nil, NewBusinessError("APPROVE_GREETING_FAILED", "Failed to load greeting", err)
	}
	if g == nil {
		return nil, ErrGreetingNotFound
	}

	if !g.IsReviewable() {
		return &dto.ReviewGreetingResponse{
			Status: "ignored",
			Reason: fmt.Sprintf("cannot approve from status=%s", g.Status),
		}, nil
	}

	g.Status = models.GreetingStatusApproved
	g.ApprovedAt = utils.UTCNowPtr()
	g.ApprovedBy = utils.ToPtr(req.ReviewedBy)
	if req.Comment != nil && *req.Comment != "" {
		g.ReviewComment = req.Comment
	}
	if err := s.greetingRepo.Update(ctx, g); err != nil {
		return nil, NewBusinessError("APPROVE_GREETING_FAILED", "Failed to update greeting", err)
	}

	today := utils.DateOnly(utils.UTCNow())

	ev, err := s.eventRepo.ByID(ctx, g.EventID)
	if err != nil {
		return nil, NewBusinessError("APPROVE_GREETING_FAILED", "Failed to load event", err)
	}
	if ev != nil && !utils.SameDate(ev.EventDate, today) {
		// Approved ahead of time: the due sweep delivers on the day.
		return &dto.ReviewGreetingResponse{
			Status:       "approved",
			Reason:       "scheduled",
			ScheduledFor: utils.ToPtr(utils.DateOnly(ev.EventDate).Format("2006-01-02")),
		}, nil
	}

	var client *models.Client
	if g.ClientID != nil {
		client, err = s.clientRepo.ByID(ctx, *g.ClientID)
		if err != nil {
			return nil, NewBusinessError("APPROVE_GREETING_FAILED", "Failed to load client", err)
		}
	}
	if client == nil {
		if err := s.greetingRepo.UpdateStatus(ctx, g.ID, models.GreetingStatusError); err != nil {
			s.logger.Printf("approval: error mark failed for greeting=%d: %v", g.ID, err)
		}
		return &dto.ReviewGreetingResponse{Status: "error", Reason: "client-missing"}, nil
	}

	delivery, err := s.deliveryFlow.SendGreeting(ctx, g, client)
	if err != nil {
		s.logger.Printf("approval: send failed for greeting=%d: %v", g.ID, err)
		if markErr := s.greetingRepo.UpdateStatus(ctx, g.ID, models.GreetingStatusError); markErr != nil {
			s.logger.Printf("approval: error mark failed for greeting=%d: %v", g.ID, markErr)
		}
		return &dto.ReviewGreetingResponse{Status: "error", Reason: err.Error()}, nil
	}

	reason := ""
	if delivery.ProviderMessage != nil {
		reason = *delivery.ProviderMessage
	}

	switch delivery.Status {
	case models.DeliveryStatusSent:
		if err := s.greetingRepo.UpdateStatus(ctx, g.ID, models.GreetingStatusSent); err != nil {
			return nil, NewBusinessError("APPROVE_GREETING_FAILED", "Failed to mark greeting sent", err)
		}
		return &dto.ReviewGreetingResponse{Status: "sent", DeliveryID: &delivery.ID}, nil
	case models.DeliveryStatusSkipped:
		// Deliberate safety outcome, not an error.
		if err := s.greetingRepo.UpdateStatus(ctx, g.ID, models.GreetingStatusSkipped); err != nil {
			return nil, NewBusinessError("APPROVE_GREETING_FAILED", "Failed to mark greeting skipped", err)
		}
		return &dto.ReviewGreetingResponse{Status: "skipped", DeliveryID: &delivery.ID, Reason: reason}, nil
	default:
		if err := s.greetingRepo.UpdateStatus(ctx, g.ID, models.GreetingStatusError); err != nil {
			s.logger.Printf("approval: error mark failed for greeting=%d: %v", g.ID, err)
		}
		return &dto.ReviewGreetingResponse{Status: "error", DeliveryID: &delivery.ID, Reason: reason}, nil
	}
}

// RejectGreeting rejects a reviewable greeting. Rejection is terminal.
func (s *ApprovalFlowImpl) RejectGreeting(ctx context.Context, req *dto.ReviewGreetingRequest) (*dto.ReviewGreetingResponse, error) {
	g, err := s.greetingRepo.ByID(ctx, req.GreetingID)
	if err != nil {
		return nil, NewBusinessError("REJECT_GREETING_FAILED", "Failed to load greeting", err)
	}
	if g == nil {
		return nil, ErrGreetingNotFound
	}

	if !g.IsReviewable() {
		return &dto.ReviewGreetingResponse{
			Status: "ignored",
			Reason: fmt.Sprintf("cannot reject from status=%s", g.Status),
		}, nil
	}

	g.Status = models.GreetingStatusRejected
	g.ApprovedAt = utils.UTCNowPtr()
	g.ApprovedBy = utils.ToPtr(req.ReviewedBy)
	if req.Comment != nil && *req.Comment != "" {
		g.ReviewComment = req.Comment
	}
	if err := s.greetingRepo.Update(ctx, g); err != nil {
		return nil, NewBusinessError("REJECT_GREETING_FAILED", "Failed to update greeting", err)
	}

	return &dto.ReviewGreetingResponse{Status: "rejected"}, nil
}

// ListGreetings returns greetings for the review UI
func (s *ApprovalFlowImpl) ListGreetings(ctx context.Context, filter models.GreetingFilter, limit, offset int) ([]*models.Greeting, error) {
	rows, err := s.greetingRepo.ByFilter(ctx, filter, "id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_GREETINGS_FAILED", "Failed to list greetings", err)
	}
	return rows, nil
}
