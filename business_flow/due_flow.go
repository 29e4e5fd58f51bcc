package businessflow

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// DueSweepResult carries the counters of one due-day sweep.
type DueSweepResult struct {
	Sent         int `json:"sent"`
	Skipped      int `json:"skipped"`
	Suppressed   int `json:"suppressed"`
	Errors       int `json:"errors"`
	DueTotal     int `json:"due_total"`
	ClientsTotal int `json:"clients_total"`
}

// DueFlow arbitrates and sends greetings on their event day
type DueFlow interface {
	SendDue(ctx context.Context, today time.Time) (DueSweepResult, error)
}

// DueFlowImpl implements the due-date arbitrator
type DueFlowImpl struct {
	greetingRepo repository.GreetingRepository
	deliveryFlow DeliveryFlow
	logger       *log.Logger
}

// NewDueFlow creates a new due flow instance
func NewDueFlow(
	greetingRepo repository.GreetingRepository,
	deliveryFlow DeliveryFlow,
	logger *log.Logger,
) DueFlow {
	return &DueFlowImpl{
		greetingRepo: greetingRepo,
		deliveryFlow: deliveryFlow,
		logger:       logger,
	}
}

// considerStatuses are the greeting states a due sweep looks at. The
// needs_approval state is included so an unapproved birthday can still
// block lower-priority sends for the same client.
var considerStatuses = []models.GreetingStatus{
	models.GreetingStatusGenerated,
	models.GreetingStatusApproved,
	models.GreetingStatusNeedsApproval,
}

// eventPriority ranks event kinds, lower wins.
func eventPriority(ev *models.Event) int {
	if ev == nil {
		return 9
	}
	switch ev.EventType {
	case models.EventTypeBirthday:
		return 0
	case models.EventTypeManual:
		return 1
	case models.EventTypeHoliday:
		if ev.IsProfessionalHoliday() {
			return 2
		}
		return 3
	default:
		return 9
	}
}

// isSendableToday reports whether the greeting may be delivered,
// ignoring the date which the candidate query already pinned. VIP
// clients require explicit approval; everyone else sends from
// generated or approved.
func isSendableToday(g *models.Greeting, c *models.Client) bool {
	if c != nil && c.Segment.RequiresApproval() {
		return g.Status == models.GreetingStatusApproved
	}
	return g.Status == models.GreetingStatusGenerated || g.Status == models.GreetingStatusApproved
}

// SendDue delivers greetings that are due today, at most one per client.
//
// Selection per client: a birthday greeting, when present, is the only
// candidate for the day even when it is not yet eligible itself. Without
// a birthday the best sendable greeting wins by priority, ties broken by
// lowest ID. Every other sendable greeting for the client is suppressed
// to skipped. Per-client failures are counted and never abort the sweep.
func (s *DueFlowImpl) SendDue(ctx context.Context, today time.Time) (DueSweepResult, error) {
	today = utils.DateOnly(today)

	var result DueSweepResult

	rows, err := s.greetingRepo.ListDueOn(ctx, today, considerStatuses)
	if err != nil {
		return result, NewBusinessError("DUE_SWEEP_QUERY_FAILED", "Failed to query due greetings", err)
	}
	result.DueTotal = len(rows)

	byClient := make(map[uint][]*models.Greeting)
	var clientOrder []uint
	for _, g := range rows {
		if g.ClientID == nil {
			// A greeting without a client cannot be delivered.
			if err := s.markStatus(ctx, g, models.GreetingStatusError); err != nil {
				s.logger.Printf("due sweep: error mark failed for greeting=%d: %v", g.ID, err)
			}
			result.Errors++
			continue
		}
		if _, seen := byClient[*g.ClientID]; !seen {
			clientOrder = append(clientOrder, *g.ClientID)
		}
		byClient[*g.ClientID] = append(byClient[*g.ClientID], g)
	}
	result.ClientsTotal = len(byClient)

	for _, clientID := range clientOrder {
		items := byClient[clientID]
		client := items[0].Client

		var birthdays []*models.Greeting
		for _, g := range items {
			if g.Event != nil && g.Event.EventType == models.EventTypeBirthday {
				birthdays = append(birthdays, g)
			}
		}

		var winner *models.Greeting
		if len(birthdays) > 0 {
			winner = pickBest(birthdays)
		} else {
			var sendable []*models.Greeting
			for _, g := range items {
				if isSendableToday(g, client) {
					sendable = append(sendable, g)
				}
			}
			if len(sendable) > 0 {
				winner = pickBest(sendable)
			}
		}

		// Suppress every other sendable greeting so the client never
		// receives two messages on one day.
		for _, g := range items {
			if winner != nil && g.ID == winner.ID {
				continue
			}
			if isSendableToday(g, client) {
				if err := s.markStatus(ctx, g, models.GreetingStatusSkipped); err != nil {
					s.logger.Printf("due sweep: suppress failed for greeting=%d: %v", g.ID, err)
					result.Errors++
					continue
				}
				result.Suppressed++
			}
		}

		if winner == nil {
			continue
		}
		// A blocking birthday that is itself not eligible (VIP awaiting
		// approval) means nothing goes out for this client today.
		if len(birthdays) > 0 && !isSendableToday(winner, client) {
			continue
		}

		s.deliverWinner(ctx, winner, client, &result)
	}

	return result, nil
}

func (s *DueFlowImpl) deliverWinner(ctx context.Context, g *models.Greeting, client *models.Client, result *DueSweepResult) {
	if client == nil || client.Recipient() == "" {
		if err := s.markStatus(ctx, g, models.GreetingStatusError); err != nil {
			s.logger.Printf("due sweep: error mark failed for greeting=%d: %v", g.ID, err)
		}
		result.Errors++
		return
	}

	delivery, err := s.deliveryFlow.SendGreeting(ctx, g, client)
	if err != nil {
		s.logger.Printf("due sweep: send failed for greeting=%d client=%d: %v", g.ID, client.ID, err)
		if markErr := s.markStatus(ctx, g, models.GreetingStatusError); markErr != nil {
			s.logger.Printf("due sweep: error mark failed for greeting=%d: %v", g.ID, markErr)
		}
		result.Errors++
		return
	}

	switch delivery.Status {
	case models.DeliveryStatusSent:
		if err := s.markStatus(ctx, g, models.GreetingStatusSent); err != nil {
			s.logger.Printf("due sweep: sent mark failed for greeting=%d: %v", g.ID, err)
			result.Errors++
			return
		}
		result.Sent++
	case models.DeliveryStatusSkipped:
		// Safety skip: terminal, never auto-retried.
		if err := s.markStatus(ctx, g, models.GreetingStatusSkipped); err != nil {
			s.logger.Printf("due sweep: skip mark failed for greeting=%d: %v", g.ID, err)
			result.Errors++
			return
		}
		result.Skipped++
	default:
		if err := s.markStatus(ctx, g, models.GreetingStatusError); err != nil {
			s.logger.Printf("due sweep: error mark failed for greeting=%d: %v", g.ID, err)
		}
		result.Errors++
	}
}

func (s *DueFlowImpl) markStatus(ctx context.Context, g *models.Greeting, status models.GreetingStatus) error {
	if err := s.greetingRepo.UpdateStatus(ctx, g.ID, status); err != nil {
		return err
	}
	g.Status = status
	return nil
}

// pickBest returns the candidate with the lowest (priority, ID) pair.
func pickBest(items []*models.Greeting) *models.Greeting {
	sorted := make([]*models.Greeting, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		pi, pj := eventPriority(sorted[i].Event), eventPriority(sorted[j].Event)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}
