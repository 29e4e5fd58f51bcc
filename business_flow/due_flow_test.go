package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

type dueFixture struct {
	greetings *memGreetingRepo
	delivery  *stubDeliveryFlow
	flow      DueFlow
	today     time.Time
	clients   *memClientRepo
}

func newDueFixture() *dueFixture {
	greetings := newMemGreetingRepo()
	delivery := newStubDeliveryFlow()
	return &dueFixture{
		greetings: greetings,
		delivery:  delivery,
		flow:      NewDueFlow(greetings, delivery, testLogger()),
		today:     utils.Date(2026, time.June, 15),
		clients:   newMemClientRepo(),
	}
}

func (f *dueFixture) addClient(segment models.ClientSegment) *models.Client {
	return f.clients.add(&models.Client{
		FirstName:        "Due",
		LastName:         "Client",
		Segment:          segment,
		Email:            utils.ToPtr("due.client@corp.biz"),
		PreferredChannel: models.PreferredChannelEmail,
	})
}

func (f *dueFixture) addDue(client *models.Client, eventType models.EventType, status models.GreetingStatus, tags models.JSONMap) *models.Greeting {
	details := models.JSONMap{}
	if tags != nil {
		details["holiday_tags"] = map[string]any(tags)
	}
	ev := &models.Event{
		ID:        uint(len(f.greetings.rows) + 100),
		ClientID:  &client.ID,
		EventType: eventType,
		EventDate: f.today,
		Title:     string(eventType),
		Details:   details,
	}
	return f.greetings.add(&models.Greeting{
		EventID:  ev.ID,
		ClientID: &client.ID,
		Status:   status,
		Subject:  "s",
		Body:     "b",
		Event:    ev,
		Client:   client,
	})
}

func TestSendDueBirthdayWinsOverHoliday(t *testing.T) {
	f := newDueFixture()
	client := f.addClient(models.ClientSegmentStandard)
	birthday := f.addDue(client, models.EventTypeBirthday, models.GreetingStatusGenerated, nil)
	holiday := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Suppressed)
	assert.Equal(t, []uint{birthday.ID}, f.delivery.sent)
	assert.Equal(t, models.GreetingStatusSent, birthday.Status)
	assert.Equal(t, models.GreetingStatusSkipped, holiday.Status)
}

func TestSendDueUnapprovedVIPBirthdayBlocksEverything(t *testing.T) {
	f := newDueFixture()
	vip := f.addClient(models.ClientSegmentVIP)
	birthday := f.addDue(vip, models.EventTypeBirthday, models.GreetingStatusNeedsApproval, nil)
	holiday := f.addDue(vip, models.EventTypeHoliday, models.GreetingStatusApproved, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Zero(t, result.Sent)
	assert.Empty(t, f.delivery.sent)
	// The blocking birthday stays reviewable for tomorrow's operator.
	assert.Equal(t, models.GreetingStatusNeedsApproval, birthday.Status)
	// The approved holiday is still consumed for the day.
	assert.Equal(t, models.GreetingStatusSkipped, holiday.Status)
	assert.Equal(t, 1, result.Suppressed)
}

func TestSendDueApprovedVIPBirthdaySends(t *testing.T) {
	f := newDueFixture()
	vip := f.addClient(models.ClientSegmentVIP)
	birthday := f.addDue(vip, models.EventTypeBirthday, models.GreetingStatusApproved, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, models.GreetingStatusSent, birthday.Status)
}

func TestSendDueVIPGeneratedIsNotSendable(t *testing.T) {
	f := newDueFixture()
	vip := f.addClient(models.ClientSegmentVIP)
	holiday := f.addDue(vip, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Zero(t, result.Sent)
	assert.Empty(t, f.delivery.sent)
	assert.Equal(t, models.GreetingStatusGenerated, holiday.Status)
}

func TestSendDuePriorityOrder(t *testing.T) {
	f := newDueFixture()
	client := f.addClient(models.ClientSegmentStandard)
	general := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, models.JSONMap{
		models.HolidayTagType: models.HolidayTypeGeneral,
	})
	professional := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, models.JSONMap{
		models.HolidayTagType: models.HolidayTypeProfessional,
	})
	manual := f.addDue(client, models.EventTypeManual, models.GreetingStatusGenerated, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []uint{manual.ID}, f.delivery.sent)
	assert.Equal(t, models.GreetingStatusSkipped, general.Status)
	assert.Equal(t, models.GreetingStatusSkipped, professional.Status)
	assert.Equal(t, 2, result.Suppressed)
}

func TestSendDueTieBreakLowestID(t *testing.T) {
	f := newDueFixture()
	client := f.addClient(models.ClientSegmentStandard)
	first := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)
	second := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, []uint{first.ID}, f.delivery.sent)
	assert.Equal(t, models.GreetingStatusSent, first.Status)
	assert.Equal(t, models.GreetingStatusSkipped, second.Status)
	assert.Equal(t, 1, result.Sent)
}

func TestSendDueOnePerClientAcrossClients(t *testing.T) {
	f := newDueFixture()
	a := f.addClient(models.ClientSegmentStandard)
	b := f.addClient(models.ClientSegmentLoyal)
	ga := f.addDue(a, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)
	gb := f.addDue(b, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 2, result.ClientsTotal)
	assert.ElementsMatch(t, []uint{ga.ID, gb.ID}, f.delivery.sent)
}

func TestSendDuePerClientErrorIsolation(t *testing.T) {
	f := newDueFixture()
	failing := f.addClient(models.ClientSegmentStandard)
	healthy := f.addClient(models.ClientSegmentStandard)
	bad := f.addDue(failing, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)
	good := f.addDue(healthy, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)

	f.delivery.errs[bad.ID] = errors.New("smtp connection refused")

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, models.GreetingStatusError, bad.Status)
	assert.Equal(t, models.GreetingStatusSent, good.Status)
}

func TestSendDueSkippedDeliveryIsNotAnError(t *testing.T) {
	f := newDueFixture()
	client := f.addClient(models.ClientSegmentStandard)
	g := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)

	f.delivery.statuses[g.ID] = models.DeliveryStatusSkipped

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Zero(t, result.Errors)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, models.GreetingStatusSkipped, g.Status)
}

func TestSendDueGreetingWithoutClient(t *testing.T) {
	f := newDueFixture()
	ev := &models.Event{ID: 900, EventType: models.EventTypeHoliday, EventDate: f.today, Title: "orphan"}
	orphan := f.greetings.add(&models.Greeting{
		EventID: ev.ID,
		Status:  models.GreetingStatusGenerated,
		Subject: "s",
		Body:    "b",
		Event:   ev,
	})

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, models.GreetingStatusError, orphan.Status)
	assert.Empty(t, f.delivery.sent)
}

func TestSendDueIgnoresOtherDays(t *testing.T) {
	f := newDueFixture()
	client := f.addClient(models.ClientSegmentStandard)
	g := f.addDue(client, models.EventTypeHoliday, models.GreetingStatusGenerated, nil)
	g.Event.EventDate = f.today.AddDate(0, 0, 1)

	result, err := f.flow.SendDue(context.Background(), f.today)
	require.NoError(t, err)

	assert.Zero(t, result.DueTotal)
	assert.Equal(t, models.GreetingStatusGenerated, g.Status)
}
