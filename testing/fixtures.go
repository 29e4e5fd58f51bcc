// Package testing provides test utilities and database setup for integration tests.
package testing

import (
	"fmt"
	"math/rand"
	"time"

	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestClient creates a test client in the given segment
func (tf *TestFixtures) CreateTestClient(segment models.ClientSegment) (*models.Client, error) {
	suffix := fmt.Sprintf("%07d", rand.Intn(10000000))

	client := &models.Client{
		FirstName:        "Test",
		LastName:         fmt.Sprintf("Client%s", suffix),
		CompanyName:      utils.ToPtr("Test Company Ltd"),
		Position:         utils.ToPtr("Manager"),
		Profession:       utils.ToPtr("logistics"),
		Segment:          segment,
		Email:            utils.ToPtr(fmt.Sprintf("test.client.%s@example.com", suffix)),
		PreferredChannel: models.PreferredChannelEmail,
		BirthDate:        utils.ToPtr(utils.Date(1985, time.March, 14)),
		IsDemo:           true,
	}

	if err := tf.DB.DB.Create(client).Error; err != nil {
		return nil, fmt.Errorf("failed to create test client: %w", err)
	}

	return client, nil
}

// CreateTestHoliday creates a holiday on the given date
func (tf *TestFixtures) CreateTestHoliday(date time.Time, title string, tags models.JSONMap) (*models.Holiday, error) {
	holiday := &models.Holiday{
		Date:               utils.DateOnly(date),
		Title:              title,
		Tags:               tags,
		IsBusinessRelevant: true,
	}

	if err := tf.DB.DB.Create(holiday).Error; err != nil {
		return nil, fmt.Errorf("failed to create test holiday: %w", err)
	}

	return holiday, nil
}

// CreateTestEvent creates an event of the given type for a client
func (tf *TestFixtures) CreateTestEvent(clientID *uint, eventType models.EventType, date time.Time, title string) (*models.Event, error) {
	event := &models.Event{
		ClientID:  clientID,
		EventType: eventType,
		EventDate: utils.DateOnly(date),
		Title:     title,
		Details:   models.JSONMap{"source": "test"},
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test event: %w", err)
	}

	return event, nil
}

// CreateTestGreeting creates a greeting for an event in the given status
func (tf *TestFixtures) CreateTestGreeting(event *models.Event, status models.GreetingStatus) (*models.Greeting, error) {
	greeting := &models.Greeting{
		EventID:  event.ID,
		ClientID: event.ClientID,
		Tone:     models.ToneWarm,
		Subject:  fmt.Sprintf("Warm wishes: %s", event.Title),
		Body:     "Wishing you all the best on this special day.",
		Status:   status,
	}

	if err := tf.DB.DB.Create(greeting).Error; err != nil {
		return nil, fmt.Errorf("failed to create test greeting: %w", err)
	}

	return greeting, nil
}

// CreateTestDelivery creates a sent delivery row for a greeting
func (tf *TestFixtures) CreateTestDelivery(greeting *models.Greeting, channel models.DeliveryChannel, recipient string) (*models.Delivery, error) {
	delivery := &models.Delivery{
		GreetingID:     greeting.ID,
		Channel:        channel,
		Recipient:      recipient,
		Status:         models.DeliveryStatusSent,
		SentAt:         utils.UTCNowPtr(),
		IdempotencyKey: businessflow.IdempotencyKey(greeting.ID, channel, recipient),
	}

	if err := tf.DB.DB.Create(delivery).Error; err != nil {
		return nil, fmt.Errorf("failed to create test delivery: %w", err)
	}

	return delivery, nil
}

// CreateClientWithBirthday creates a client whose birthday falls on the given month and day
func (tf *TestFixtures) CreateClientWithBirthday(segment models.ClientSegment, month time.Month, day int) (*models.Client, error) {
	client, err := tf.CreateTestClient(segment)
	if err != nil {
		return nil, err
	}

	client.BirthDate = utils.ToPtr(utils.Date(1980, month, day))
	if err := tf.DB.DB.Save(client).Error; err != nil {
		return nil, fmt.Errorf("failed to update test client birthday: %w", err)
	}

	return client, nil
}

// CreateMultipleTestClients creates one client per segment
func (tf *TestFixtures) CreateMultipleTestClients() ([]*models.Client, error) {
	segments := []models.ClientSegment{
		models.ClientSegmentStandard,
		models.ClientSegmentNew,
		models.ClientSegmentLoyal,
		models.ClientSegmentVIP,
	}

	var clients []*models.Client
	for i, segment := range segments {
		client, err := tf.CreateTestClient(segment)
		if err != nil {
			return nil, fmt.Errorf("failed to create client %d: %w", i, err)
		}
		clients = append(clients, client)
	}

	return clients, nil
}
