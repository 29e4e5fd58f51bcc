package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// MaterializeFlow creates missing event rows for upcoming occasions
type MaterializeFlow interface {
	EnsureUpcomingEvents(ctx context.Context, today time.Time) (int, error)
}

// MaterializeFlowImpl implements the event materializer
type MaterializeFlowImpl struct {
	clientRepo  repository.ClientRepository
	holidayRepo repository.HolidayRepository
	eventRepo   repository.EventRepository
	agentConfig config.Agent
	logger      *log.Logger
}

// NewMaterializeFlow creates a new materialize flow instance
func NewMaterializeFlow(
	clientRepo repository.ClientRepository,
	holidayRepo repository.HolidayRepository,
	eventRepo repository.EventRepository,
	agentConfig config.Agent,
	logger *log.Logger,
) MaterializeFlow {
	return &MaterializeFlowImpl{
		clientRepo:  clientRepo,
		holidayRepo: holidayRepo,
		eventRepo:   eventRepo,
		agentConfig: agentConfig,
		logger:      logger,
	}
}

// recurringHoliday is a month/day rule materialized for any year that
// intersects the lookahead window.
type recurringHoliday struct {
	Month    time.Month
	Day      int
	Title    string
	ToneHint string
}

var builtinHolidays = []recurringHoliday{
	{time.January, 1, "New Year's Day", "warm"},
	{time.March, 8, "International Women's Day", "warm"},
	{time.May, 1, "International Workers' Day", "warm"},
	{time.December, 31, "New Year's Eve", "warm"},
}

// professionalHoliday is a per-profession occasion. Computed entries
// derive their date from the year instead of a fixed month/day.
type professionalHoliday struct {
	Month    time.Month
	Day      int
	Title    string
	ToneHint string
	// DayOfYear, when non-zero, overrides Month/Day (e.g. the 256th
	// day of the year for Programmer's Day).
	DayOfYear int
}

var professionalHolidays = map[string]professionalHoliday{
	"accounting": {Month: time.November, Day: 10, Title: "International Accounting Day", ToneHint: "official"},
	"it":         {Title: "Programmer's Day", ToneHint: "warm", DayOfYear: 256},
	"hr":         {Month: time.May, Day: 20, Title: "International HR Day", ToneHint: "official"},
	"marketing":  {Month: time.October, Day: 25, Title: "Marketing Day", ToneHint: "warm"},
	"sales":      {Month: time.July, Day: 23, Title: "Sales Professionals Day", ToneHint: "warm"},
	"logistics":  {Month: time.June, Day: 28, Title: "Logistics Day", ToneHint: "official"},
	"medicine":   {Month: time.June, Day: 16, Title: "Medical Workers Day", ToneHint: "warm"},
	"finance":    {Month: time.September, Day: 8, Title: "Finance Professionals Day", ToneHint: "official"},
}

// EnsureUpcomingEvents creates missing events for birthdays, stored and
// built-in holidays and professional holidays inside the lookahead window.
// The unique index on events makes every insert idempotent, so repeated
// sweeps over the same window are no-ops.
func (s *MaterializeFlowImpl) EnsureUpcomingEvents(ctx context.Context, today time.Time) (int, error) {
	today = utils.DateOnly(today)
	end := today.AddDate(0, 0, s.agentConfig.LookaheadDays)
	window := utils.DaysInRange(today, end)

	clients, err := s.clientRepo.ListAll(ctx)
	if err != nil {
		return 0, NewBusinessError("MATERIALIZE_LIST_CLIENTS_FAILED", "Failed to list clients", err)
	}

	created := 0

	// Birthdays, one event per client per occurrence.
	for _, c := range clients {
		if c.BirthDate == nil {
			continue
		}
		occ := utils.NextOccurrence(c.BirthDate.Month(), c.BirthDate.Day(), today)
		if _, ok := window[occ]; !ok {
			continue
		}
		clientID := c.ID
		ev := &models.Event{
			ClientID:  &clientID,
			EventType: models.EventTypeBirthday,
			EventDate: occ,
			Title:     "Birthday",
			Details:   models.JSONMap{},
		}
		inserted, err := s.eventRepo.SaveIgnoreDuplicate(ctx, ev)
		if err != nil {
			s.logger.Printf("materialize: birthday insert failed for client=%d: %v", c.ID, err)
			continue
		}
		if inserted {
			created++
		}
	}

	fanout := s.agentConfig.MaxHolidayFanout
	recipients := clients
	if len(recipients) > fanout {
		recipients = recipients[:fanout]
	}

	// Stored holiday rows in the window, fanned out per client.
	holidays, err := s.holidayRepo.ListInWindow(ctx, today, end)
	if err != nil {
		return created, NewBusinessError("MATERIALIZE_LIST_HOLIDAYS_FAILED", "Failed to list holidays", err)
	}
	for _, h := range holidays {
		if !h.IsBusinessRelevant {
			continue
		}
		tags := h.Tags
		if tags == nil {
			tags = models.JSONMap{}
		}
		created += s.fanOutHoliday(ctx, recipients, utils.DateOnly(h.Date), h.Title, map[string]any(tags))
	}

	// Built-in recurring holidays.
	for _, rule := range builtinHolidays {
		for _, year := range windowYears(today, end) {
			date := utils.Date(year, rule.Month, rule.Day)
			if _, ok := window[date]; !ok {
				continue
			}
			tags := map[string]any{
				models.HolidayTagType:     models.HolidayTypeGeneral,
				models.HolidayTagToneHint: rule.ToneHint,
				models.HolidayTagSource:   "builtin",
			}
			created += s.fanOutHoliday(ctx, recipients, date, rule.Title, tags)
		}
	}

	// Professional holidays, one per client that has that profession.
	for _, c := range clients {
		if c.Profession == nil || *c.Profession == "" {
			continue
		}
		rule, ok := professionalHolidays[*c.Profession]
		if !ok {
			continue
		}
		for _, year := range windowYears(today, end) {
			var date time.Time
			if rule.DayOfYear > 0 {
				date = utils.DayOfYear(year, rule.DayOfYear)
			} else {
				date = utils.Date(year, rule.Month, rule.Day)
			}
			if _, ok := window[date]; !ok {
				continue
			}
			clientID := c.ID
			ev := &models.Event{
				ClientID:  &clientID,
				EventType: models.EventTypeHoliday,
				EventDate: date,
				Title:     rule.Title,
				Details: models.JSONMap{
					"holiday_tags": map[string]any{
						models.HolidayTagType:       models.HolidayTypeProfessional,
						models.HolidayTagProfession: *c.Profession,
						models.HolidayTagToneHint:   rule.ToneHint,
						models.HolidayTagSource:     "builtin",
					},
				},
			}
			inserted, err := s.eventRepo.SaveIgnoreDuplicate(ctx, ev)
			if err != nil {
				s.logger.Printf("materialize: professional holiday insert failed for client=%d: %v", c.ID, err)
				continue
			}
			if inserted {
				created++
			}
		}
	}

	return created, nil
}

func (s *MaterializeFlowImpl) fanOutHoliday(ctx context.Context, clients []*models.Client, date time.Time, title string, tags map[string]any) int {
	created := 0
	for _, c := range clients {
		clientID := c.ID
		ev := &models.Event{
			ClientID:  &clientID,
			EventType: models.EventTypeHoliday,
			EventDate: date,
			Title:     title,
			Details:   models.JSONMap{"holiday_tags": tags},
		}
		inserted, err := s.eventRepo.SaveIgnoreDuplicate(ctx, ev)
		if err != nil {
			s.logger.Printf("materialize: holiday insert failed for client=%d title=%q: %v", c.ID, title, err)
			continue
		}
		if inserted {
			created++
		}
	}
	return created
}

func windowYears(today, end time.Time) []int {
	if today.Year() == end.Year() {
		return []int{today.Year()}
	}
	return []int{today.Year(), end.Year()}
}
