package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
)

// FeedbackFlow defines the interface for greeting feedback
type FeedbackFlow interface {
	SubmitFeedback(ctx context.Context, req *dto.SubmitFeedbackRequest) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter models.FeedbackFilter, limit, offset int) ([]*models.Feedback, error)
}

// FeedbackFlowImpl implements the feedback flow
type FeedbackFlowImpl struct {
	feedbackRepo repository.FeedbackRepository
	greetingRepo repository.GreetingRepository
	logger       *log.Logger
}

// NewFeedbackFlow creates a new feedback flow instance
func NewFeedbackFlow(feedbackRepo repository.FeedbackRepository, greetingRepo repository.GreetingRepository, logger *log.Logger) FeedbackFlow {
	return &FeedbackFlowImpl{
		feedbackRepo: feedbackRepo,
		greetingRepo: greetingRepo,
		logger:       logger,
	}
}

func validFeedbackOutcome(outcome string) bool {
	switch outcome {
	case models.FeedbackOutcomeOpened, models.FeedbackOutcomeReplied,
		models.FeedbackOutcomeIgnored, models.FeedbackOutcomeUnknown:
		return true
	default:
		return false
	}
}

// SubmitFeedback records a manager-entered reaction to a greeting
func (s *FeedbackFlowImpl) SubmitFeedback(ctx context.Context, req *dto.SubmitFeedbackRequest) (*models.Feedback, error) {
	outcome := strings.ToLower(strings.TrimSpace(req.Outcome))
	if outcome == "" {
		outcome = models.FeedbackOutcomeUnknown
	}
	if !validFeedbackOutcome(outcome) {
		return nil, NewBusinessErrorf("FEEDBACK_OUTCOME_INVALID", "Unknown feedback outcome: %s", ErrFeedbackOutcomeInvalid, req.Outcome)
	}
	if req.Score != nil && (*req.Score < 1 || *req.Score > 5) {
		return nil, NewBusinessError("FEEDBACK_SCORE_OUT_OF_RANGE", "Score must be between 1 and 5", ErrFeedbackScoreOutOfRange)
	}

	greeting, err := s.greetingRepo.ByID(ctx, req.GreetingID)
	if err != nil {
		return nil, NewBusinessError("SUBMIT_FEEDBACK_FAILED", "Failed to load greeting", err)
	}
	if greeting == nil {
		return nil, NewBusinessError("GREETING_NOT_FOUND", "Greeting does not exist", ErrGreetingNotFound)
	}

	feedback := &models.Feedback{
		GreetingID: greeting.ID,
		Outcome:    outcome,
		Score:      req.Score,
		Notes:      req.Notes,
	}
	if err := s.feedbackRepo.Save(ctx, feedback); err != nil {
		return nil, NewBusinessError("SUBMIT_FEEDBACK_FAILED", "Failed to save feedback", err)
	}
	return feedback, nil
}

// ListFeedback returns feedback rows matching the filter
func (s *FeedbackFlowImpl) ListFeedback(ctx context.Context, filter models.FeedbackFilter, limit, offset int) ([]*models.Feedback, error) {
	rows, err := s.feedbackRepo.ByFilter(ctx, filter, "id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_FEEDBACK_FAILED", "Failed to list feedback", err)
	}
	return rows, nil
}
