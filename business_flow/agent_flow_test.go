package businessflow

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-crm/hermes/app/services"
	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

type agentFixture struct {
	clients    *memClientRepo
	holidays   *memHolidayRepo
	events     *memEventRepo
	greetings  *memGreetingRepo
	deliveries *memDeliveryRepo
	runs       *memAgentRunRepo
	flow       AgentFlow
	outboxDir  string
}

func newAgentFixture(t *testing.T) *agentFixture {
	t.Helper()

	clients := newMemClientRepo()
	holidays := newMemHolidayRepo()
	events := newMemEventRepo()
	greetings := newMemGreetingRepo()
	greetings.events = events
	greetings.clients = clients
	deliveries := newMemDeliveryRepo()
	runs := newMemAgentRunRepo()

	outboxDir := t.TempDir()
	senders := services.NewSenderRegistry(
		services.NewFileSender(outboxDir),
		services.NewNoopSender(),
	)
	policy := config.DeliveryPolicy{
		DefaultChannel: "file",
		OutboxDir:      outboxDir,
	}
	agentCfg := config.Agent{LookaheadDays: 7, MaxHolidayFanout: 100}

	deliveryFlow := NewDeliveryFlow(deliveries, senders, policy, config.SMTP{}, nil, "test:", testLogger())
	materializeFlow := NewMaterializeFlow(clients, holidays, events, agentCfg, testLogger())
	dueFlow := NewDueFlow(greetings, deliveryFlow, testLogger())

	flow := NewAgentFlow(
		materializeFlow, dueFlow,
		events, greetings, clients, runs,
		services.NewTemplateContentService(),
		services.NewCardService(config.Image{Dir: t.TempDir(), Width: 100, Height: 60}),
		agentCfg, config.LLM{}, config.Image{},
		testLogger(),
	)

	return &agentFixture{
		clients:    clients,
		holidays:   holidays,
		events:     events,
		greetings:  greetings,
		deliveries: deliveries,
		runs:       runs,
		flow:       flow,
		outboxDir:  outboxDir,
	}
}

func (f *agentFixture) addClient(segment models.ClientSegment, birthDate *time.Time) *models.Client {
	return f.clients.add(&models.Client{
		FirstName:        "Agent",
		LastName:         "Client",
		Segment:          segment,
		Email:            utils.ToPtr("agent.client@corp.biz"),
		PreferredChannel: models.PreferredChannelEmail,
		BirthDate:        birthDate,
	})
}

func TestRunOnceBirthdayTodayEndToEnd(t *testing.T) {
	f := newAgentFixture(t)
	today := utils.DateOnly(utils.UTCNow())
	birthday := utils.Date(1985, today.Month(), today.Day())
	f.addClient(models.ClientSegmentStandard, &birthday)

	summary, err := f.flow.RunOnce(context.Background(), models.TriggeredByAPI)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.GeneratedGreetings, 1)
	assert.Equal(t, 1, summary.SentDeliveries)
	assert.Zero(t, summary.Errors)

	entries, err := os.ReadDir(f.outboxDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	run, err := f.runs.ByID(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.AgentRunStatusSuccess, run.Status)
	assert.Equal(t, models.TriggeredByAPI, run.TriggeredBy)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, summary.SentDeliveries, run.SentDeliveries)
}

func TestRunOnceVIPBirthdayWaitsForApproval(t *testing.T) {
	f := newAgentFixture(t)
	today := utils.DateOnly(utils.UTCNow())
	birthday := utils.Date(1985, today.Month(), today.Day())
	f.addClient(models.ClientSegmentVIP, &birthday)

	summary, err := f.flow.RunOnce(context.Background(), models.TriggeredByScheduler)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.GeneratedGreetings, 1)
	assert.Zero(t, summary.SentDeliveries)
	assert.Zero(t, summary.Errors)

	var birthdayGreeting *models.Greeting
	for _, g := range f.greetings.rows {
		ev, _ := f.events.ByID(context.Background(), g.EventID)
		if ev != nil && ev.EventType == models.EventTypeBirthday {
			birthdayGreeting = g
		}
	}
	require.NotNil(t, birthdayGreeting)
	assert.Equal(t, models.GreetingStatusNeedsApproval, birthdayGreeting.Status)

	entries, err := os.ReadDir(f.outboxDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	f := newAgentFixture(t)
	today := utils.DateOnly(utils.UTCNow())
	birthday := utils.Date(1985, today.Month(), today.Day())
	f.addClient(models.ClientSegmentStandard, &birthday)

	first, err := f.flow.RunOnce(context.Background(), models.TriggeredByAPI)
	require.NoError(t, err)
	require.Equal(t, 1, first.SentDeliveries)

	second, err := f.flow.RunOnce(context.Background(), models.TriggeredByAPI)
	require.NoError(t, err)

	assert.Zero(t, second.GeneratedGreetings)
	assert.GreaterOrEqual(t, second.SkippedExisting, 1)
	assert.Zero(t, second.SentDeliveries)

	rows, _ := f.deliveries.ByFilter(context.Background(), models.DeliveryFilter{}, "", 0, 0)
	assert.Len(t, rows, 1)
	entries, err := os.ReadDir(f.outboxDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunOnceNoEventsStillSucceeds(t *testing.T) {
	f := newAgentFixture(t)
	f.addClient(models.ClientSegmentStandard, nil)

	summary, err := f.flow.RunOnce(context.Background(), models.TriggeredByWebUI)
	require.NoError(t, err)

	assert.Zero(t, summary.Errors)

	run, err := f.runs.ByID(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.AgentRunStatusSuccess, run.Status)
}

func TestListRunsFilterByStatus(t *testing.T) {
	f := newAgentFixture(t)

	_, err := f.flow.RunOnce(context.Background(), models.TriggeredByAPI)
	require.NoError(t, err)

	status := models.AgentRunStatusSuccess
	rows, err := f.flow.ListRuns(context.Background(), models.AgentRunFilter{Status: &status}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	status = models.AgentRunStatusError
	rows, err = f.flow.ListRuns(context.Background(), models.AgentRunFilter{Status: &status}, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}