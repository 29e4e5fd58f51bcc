package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

type eventFixture struct {
	events  *memEventRepo
	clients *memClientRepo
	flow    EventFlow
}

func newEventFixture() *eventFixture {
	events := newMemEventRepo()
	clients := newMemClientRepo()
	return &eventFixture{
		events:  events,
		clients: clients,
		flow:    NewEventFlow(events, clients, testLogger()),
	}
}

func (f *eventFixture) addClient() *models.Client {
	return f.clients.add(&models.Client{
		FirstName: "Anna",
		LastName:  "Bergman",
		Email:     utils.ToPtr("anna.bergman@corp.biz"),
		Segment:   models.ClientSegmentStandard,
	})
}

func TestCreateManualEvent(t *testing.T) {
	f := newEventFixture()
	client := f.addClient()

	note := "signed the renewal last spring"
	event, created, err := f.flow.CreateManualEvent(context.Background(), &dto.CreateManualEventRequest{
		ClientID:  client.ID,
		Title:     "Contract anniversary",
		EventDate: "2026-09-01",
		Note:      &note,
	})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.True(t, created)
	assert.Equal(t, models.EventTypeManual, event.EventType)
	assert.Equal(t, "Contract anniversary", event.Title)
	assert.Equal(t, utils.Date(2026, time.September, 1), event.EventDate)
	require.NotNil(t, event.ClientID)
	assert.Equal(t, client.ID, *event.ClientID)
	assert.Equal(t, "manual", event.Details["source"])
	assert.Equal(t, note, event.Details["note"])
}

func TestCreateManualEventDuplicate(t *testing.T) {
	f := newEventFixture()
	client := f.addClient()

	req := &dto.CreateManualEventRequest{
		ClientID:  client.ID,
		Title:     "Contract anniversary",
		EventDate: "2026-09-01",
	}

	first, created, err := f.flow.CreateManualEvent(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.flow.CreateManualEvent(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	rows, err := f.events.ByFilter(context.Background(), models.EventFilter{}, "id ASC", 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCreateManualEventValidation(t *testing.T) {
	f := newEventFixture()
	client := f.addClient()

	t.Run("MissingTitle", func(t *testing.T) {
		_, _, err := f.flow.CreateManualEvent(context.Background(), &dto.CreateManualEventRequest{
			ClientID:  client.ID,
			Title:     "   ",
			EventDate: "2026-09-01",
		})
		require.Error(t, err)
		assert.True(t, IsEventTitleRequired(err))
	})

	t.Run("MissingDate", func(t *testing.T) {
		_, _, err := f.flow.CreateManualEvent(context.Background(), &dto.CreateManualEventRequest{
			ClientID: client.ID,
			Title:    "Contract anniversary",
		})
		require.Error(t, err)
		assert.True(t, IsEventDateRequired(err))
	})

	t.Run("MalformedDate", func(t *testing.T) {
		_, _, err := f.flow.CreateManualEvent(context.Background(), &dto.CreateManualEventRequest{
			ClientID:  client.ID,
			Title:     "Contract anniversary",
			EventDate: "01.09.2026",
		})
		require.Error(t, err)
		assert.True(t, IsEventDateRequired(err))
	})

	t.Run("MissingClient", func(t *testing.T) {
		_, _, err := f.flow.CreateManualEvent(context.Background(), &dto.CreateManualEventRequest{
			ClientID:  999,
			Title:     "Contract anniversary",
			EventDate: "2026-09-01",
		})
		require.Error(t, err)
		assert.True(t, IsClientNotFound(err))
	})
}

func TestListEvents(t *testing.T) {
	f := newEventFixture()
	client := f.addClient()

	f.events.add(&models.Event{
		ClientID:  &client.ID,
		EventType: models.EventTypeBirthday,
		EventDate: utils.Date(2026, time.March, 14),
		Title:     "Birthday",
	})
	f.events.add(&models.Event{
		ClientID:  &client.ID,
		EventType: models.EventTypeManual,
		EventDate: utils.Date(2026, time.September, 1),
		Title:     "Contract anniversary",
	})

	manual := models.EventTypeManual
	rows, err := f.flow.ListEvents(context.Background(), models.EventFilter{EventType: &manual}, 50, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Contract anniversary", rows[0].Title)

	all, err := f.flow.ListEvents(context.Background(), models.EventFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
