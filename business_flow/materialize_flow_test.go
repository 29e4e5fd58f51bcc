package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

type materializeFixture struct {
	clients  *memClientRepo
	holidays *memHolidayRepo
	events   *memEventRepo
	flow     MaterializeFlow
}

func newMaterializeFixture(lookaheadDays, fanout int) *materializeFixture {
	clients := newMemClientRepo()
	holidays := newMemHolidayRepo()
	events := newMemEventRepo()
	cfg := config.Agent{LookaheadDays: lookaheadDays, MaxHolidayFanout: fanout}
	return &materializeFixture{
		clients:  clients,
		holidays: holidays,
		events:   events,
		flow:     NewMaterializeFlow(clients, holidays, events, cfg, testLogger()),
	}
}

func (f *materializeFixture) addClient(birthDate *time.Time, profession string) *models.Client {
	c := &models.Client{
		FirstName:        "Mat",
		LastName:         "Client",
		Segment:          models.ClientSegmentStandard,
		Email:            utils.ToPtr("mat.client@corp.biz"),
		PreferredChannel: models.PreferredChannelEmail,
		BirthDate:        birthDate,
	}
	if profession != "" {
		c.Profession = &profession
	}
	return f.clients.add(c)
}

func (f *materializeFixture) eventsOfType(t models.EventType) []*models.Event {
	rows, _ := f.events.ByFilter(context.Background(), models.EventFilter{EventType: &t}, "", 0, 0)
	return rows
}

func TestMaterializeBirthdayInWindow(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	today := utils.Date(2026, time.June, 10)
	client := f.addClient(utils.ToPtr(utils.Date(1985, time.June, 12)), "")

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	birthdays := f.eventsOfType(models.EventTypeBirthday)
	require.Len(t, birthdays, 1)
	ev := birthdays[0]
	require.NotNil(t, ev.ClientID)
	assert.Equal(t, client.ID, *ev.ClientID)
	assert.Equal(t, utils.Date(2026, time.June, 12), ev.EventDate)
	assert.Equal(t, "Birthday", ev.Title)
}

func TestMaterializeBirthdayOutsideWindow(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	today := utils.Date(2026, time.June, 10)
	f.addClient(utils.ToPtr(utils.Date(1985, time.June, 25)), "")

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, f.eventsOfType(models.EventTypeBirthday))
}

func TestMaterializeIsIdempotent(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	today := utils.Date(2026, time.June, 10)
	f.addClient(utils.ToPtr(utils.Date(1985, time.June, 12)), "logistics")
	f.holidays.add(&models.Holiday{
		Date:               utils.Date(2026, time.June, 11),
		Title:              "Company Day",
		IsBusinessRelevant: true,
	})

	first, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Positive(t, first)

	second, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestMaterializeLeapBirthdayObservedFebTwentyEight(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	today := utils.Date(2026, time.February, 25)
	f.addClient(utils.ToPtr(utils.Date(1980, time.February, 29)), "")

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	birthdays := f.eventsOfType(models.EventTypeBirthday)
	require.Len(t, birthdays, 1)
	assert.Equal(t, utils.Date(2026, time.February, 28), birthdays[0].EventDate)
}

func TestMaterializeStoredHolidayFanout(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	today := utils.Date(2026, time.June, 10)
	f.addClient(nil, "")
	f.addClient(nil, "")
	f.holidays.add(&models.Holiday{
		Date:               utils.Date(2026, time.June, 12),
		Title:              "Company Day",
		Tags:               models.JSONMap{models.HolidayTagType: models.HolidayTypeGeneral},
		IsBusinessRelevant: true,
	})
	f.holidays.add(&models.Holiday{
		Date:               utils.Date(2026, time.June, 13),
		Title:              "Internal Only",
		IsBusinessRelevant: false,
	})

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	holidays := f.eventsOfType(models.EventTypeHoliday)
	require.Len(t, holidays, 2)
	for _, ev := range holidays {
		assert.Equal(t, "Company Day", ev.Title)
	}
}

func TestMaterializeHolidayFanoutCap(t *testing.T) {
	f := newMaterializeFixture(7, 1)
	today := utils.Date(2026, time.June, 10)
	f.addClient(nil, "")
	f.addClient(nil, "")
	f.addClient(nil, "")
	f.holidays.add(&models.Holiday{
		Date:               utils.Date(2026, time.June, 12),
		Title:              "Company Day",
		IsBusinessRelevant: true,
	})

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestMaterializeBuiltinHolidayAcrossYearBoundary(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	today := utils.Date(2026, time.December, 29)
	f.addClient(nil, "")

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)

	// New Year's Eve (Dec 31 2026) and New Year's Day (Jan 1 2027)
	// both fall inside the window.
	assert.Equal(t, 2, created)

	var titles []string
	for _, ev := range f.eventsOfType(models.EventTypeHoliday) {
		titles = append(titles, ev.Title)
	}
	assert.ElementsMatch(t, []string{"New Year's Eve", "New Year's Day"}, titles)
}

func TestMaterializeProfessionalHoliday(t *testing.T) {
	f := newMaterializeFixture(7, 100)
	// Day 256 of 2026 is September 13.
	today := utils.Date(2026, time.September, 10)
	programmer := f.addClient(nil, "it")
	f.addClient(nil, "accounting")

	created, err := f.flow.EnsureUpcomingEvents(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	holidays := f.eventsOfType(models.EventTypeHoliday)
	require.Len(t, holidays, 1)
	ev := holidays[0]
	require.NotNil(t, ev.ClientID)
	assert.Equal(t, programmer.ID, *ev.ClientID)
	assert.Equal(t, "Programmer's Day", ev.Title)
	assert.Equal(t, utils.Date(2026, time.September, 13), ev.EventDate)
	assert.True(t, ev.IsProfessionalHoliday())
}
