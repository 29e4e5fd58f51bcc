package businessflow

import (
	"context"
	"log"

	"github.com/hermes-crm/hermes/app/services"
	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// AgentSummary holds the counters of one full agent sweep.
type AgentSummary struct {
	RunID              uint           `json:"run_id"`
	ScannedEvents      int            `json:"scanned_events"`
	GeneratedGreetings int            `json:"generated_greetings"`
	SentDeliveries     int            `json:"sent_deliveries"`
	SkippedExisting    int            `json:"skipped_existing"`
	Errors             int            `json:"errors"`
	Due                DueSweepResult `json:"due"`
}

// AgentFlow orchestrates one materialize-generate-send sweep
type AgentFlow interface {
	RunOnce(ctx context.Context, triggeredBy string) (*AgentSummary, error)
	ListRuns(ctx context.Context, filter models.AgentRunFilter, limit, offset int) ([]*models.AgentRun, error)
}

// AgentFlowImpl implements the agent orchestration
type AgentFlowImpl struct {
	materializeFlow MaterializeFlow
	dueFlow         DueFlow
	eventRepo       repository.EventRepository
	greetingRepo    repository.GreetingRepository
	clientRepo      repository.ClientRepository
	agentRunRepo    repository.AgentRunRepository
	content         services.ContentService
	cards           services.CardService
	agentConfig     config.Agent
	llmConfig       config.LLM
	imageConfig     config.Image
	logger          *log.Logger
}

// NewAgentFlow creates a new agent flow instance
func NewAgentFlow(
	materializeFlow MaterializeFlow,
	dueFlow DueFlow,
	eventRepo repository.EventRepository,
	greetingRepo repository.GreetingRepository,
	clientRepo repository.ClientRepository,
	agentRunRepo repository.AgentRunRepository,
	content services.ContentService,
	cards services.CardService,
	agentConfig config.Agent,
	llmConfig config.LLM,
	imageConfig config.Image,
	logger *log.Logger,
) AgentFlow {
	return &AgentFlowImpl{
		materializeFlow: materializeFlow,
		dueFlow:         dueFlow,
		eventRepo:       eventRepo,
		greetingRepo:    greetingRepo,
		clientRepo:      clientRepo,
		agentRunRepo:    agentRunRepo,
		content:         content,
		cards:           cards,
		agentConfig:     agentConfig,
		llmConfig:       llmConfig,
		imageConfig:     imageConfig,
		logger:          logger,
	}
}

// RunOnce performs one sweep: materialize upcoming events, generate a
// greeting for every event in the window that lacks one, then run the
// due-day arbitration for today. The audit row is created before any
// work and always finalized, so even a failed sweep leaves a trail.
func (s *AgentFlowImpl) RunOnce(ctx context.Context, triggeredBy string) (*AgentSummary, error) {
	today := utils.DateOnly(utils.UTCNow())
	end := today.AddDate(0, 0, s.agentConfig.LookaheadDays)

	llmMode := "template"
	if s.llmConfig.Enabled {
		llmMode = "openai"
	}
	imageMode := "off"
	if s.imageConfig.Enabled {
		imageMode = "card"
	}

	run := &models.AgentRun{
		TriggeredBy:   triggeredBy,
		Status:        models.AgentRunStatusRunning,
		StartedAt:     utils.UTCNow(),
		LookaheadDays: s.agentConfig.LookaheadDays,
		LLMMode:       llmMode,
		ImageMode:     imageMode,
	}
	if err := s.agentRunRepo.Save(ctx, run); err != nil {
		return nil, NewBusinessError("AGENT_RUN_CREATE_FAILED", "Failed to create agent run", err)
	}

	summary := &AgentSummary{RunID: run.ID}
	defer s.finalizeRun(ctx, run, summary)

	if _, err := s.materializeFlow.EnsureUpcomingEvents(ctx, today); err != nil {
		s.logger.Printf("agent: materialization failed: %v", err)
		summary.Errors++
		return summary, nil
	}

	events, err := s.eventRepo.ListInWindow(ctx, today, end)
	if err != nil {
		s.logger.Printf("agent: window query failed: %v", err)
		summary.Errors++
		return summary, nil
	}

	for _, ev := range events {
		summary.ScannedEvents++
		if err := s.generateForEvent(ctx, ev, summary); err != nil {
			s.logger.Printf("agent: event=%d generation failed: %v", ev.ID, err)
			summary.Errors++
		}
	}

	due, err := s.dueFlow.SendDue(ctx, today)
	if err != nil {
		s.logger.Printf("agent: due sweep failed: %v", err)
		summary.Errors++
		return summary, nil
	}
	summary.Due = due
	summary.SentDeliveries = due.Sent
	summary.Errors += due.Errors

	return summary, nil
}

// generateForEvent creates a greeting for one event unless one exists.
func (s *AgentFlowImpl) generateForEvent(ctx context.Context, ev *models.Event, summary *AgentSummary) error {
	exists, err := s.greetingRepo.ExistsForEvent(ctx, ev.ID)
	if err != nil {
		return err
	}
	if exists {
		summary.SkippedExisting++
		return nil
	}

	if ev.ClientID == nil {
		// Personalization and delivery both need a client.
		return ErrClientNotFound
	}
	client, err := s.clientRepo.ByID(ctx, *ev.ClientID)
	if err != nil {
		return err
	}
	if client == nil {
		return ErrClientNotFound
	}

	content, err := s.content.Produce(ctx, services.ContentRequest{Client: client, Event: ev})
	if err != nil {
		return err
	}

	// Card rendering is best-effort: a greeting without an image is
	// still a greeting.
	var imagePath *string
	if s.imageConfig.Enabled {
		path, err := s.cards.Render(ev.Title, client.FullName(), ev.EventDate)
		if err != nil {
			s.logger.Printf("agent: card render failed for event=%d: %v", ev.ID, err)
		} else {
			imagePath = &path
		}
	}

	status := models.GreetingStatusGenerated
	if client.Segment.RequiresApproval() {
		status = models.GreetingStatusNeedsApproval
	}

	greeting := &models.Greeting{
		EventID:   ev.ID,
		ClientID:  ev.ClientID,
		Tone:      content.Tone,
		Subject:   content.Subject,
		Body:      content.Body,
		ImagePath: imagePath,
		Status:    status,
	}
	if err := s.greetingRepo.Save(ctx, greeting); err != nil {
		return err
	}
	summary.GeneratedGreetings++

	return nil
}

// finalizeRun stamps the audit row with counters and a terminal status.
func (s *AgentFlowImpl) finalizeRun(ctx context.Context, run *models.AgentRun, summary *AgentSummary) {
	run.ScannedEvents = summary.ScannedEvents
	run.GeneratedGreetings = summary.GeneratedGreetings
	run.SentDeliveries = summary.SentDeliveries
	run.SkippedExisting = summary.SkippedExisting
	run.Errors = summary.Errors
	run.FinishedAt = utils.UTCNowPtr()

	switch {
	case summary.Errors == 0:
		run.Status = models.AgentRunStatusSuccess
	case summary.GeneratedGreetings > 0:
		run.Status = models.AgentRunStatusPartial
	default:
		run.Status = models.AgentRunStatusError
	}

	if err := s.agentRunRepo.Update(ctx, run); err != nil {
		s.logger.Printf("agent: run finalize failed for run=%d: %v", run.ID, err)
	}
}

// ListRuns returns agent run audit rows
func (s *AgentFlowImpl) ListRuns(ctx context.Context, filter models.AgentRunFilter, limit, offset int) ([]*models.AgentRun, error) {
	rows, err := s.agentRunRepo.ByFilter(ctx, filter, "id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_AGENT_RUNS_FAILED", "Failed to list agent runs", err)
	}
	return rows, nil
}
