package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
)

func TestSenderRegistry(t *testing.T) {
	reg := NewSenderRegistry(NewFileSender(t.TempDir()), NewNoopSender())

	s, ok := reg.Get(models.DeliveryChannelFile)
	require.True(t, ok)
	assert.Equal(t, models.DeliveryChannelFile, s.Channel())

	_, ok = reg.Get(models.DeliveryChannelEmail)
	assert.False(t, ok)
}

func TestFileSenderWritesOutboxRecord(t *testing.T) {
	dir := t.TempDir()
	sender := NewFileSender(dir)

	msg := Message{
		GreetingID:     17,
		IdempotencyKey: "abcdef0123456789abcdef0123456789abcdef01",
		Recipient:      "anna@corp.biz",
		Subject:        "Happy Logistics Day",
		Body:           "Dear Anna,\n\nCongratulations!",
		ImagePath:      "/data/cards/card_2026-06-15_123.png",
	}

	providerMessage, err := sender.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "written:delivery_17_abcdef0123456789abcdef0123456789abcdef01.txt", providerMessage)

	content, err := os.ReadFile(filepath.Join(dir, "delivery_17_abcdef0123456789abcdef0123456789abcdef01.txt"))
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "TO: anna@corp.biz")
	assert.Contains(t, text, "SUBJECT: Happy Logistics Day")
	assert.Contains(t, text, "Dear Anna,\n\nCongratulations!")
	assert.Contains(t, text, "IMAGE: /data/cards/card_2026-06-15_123.png")
}

func TestFileSenderCreatesOutboxDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "outbox")
	sender := NewFileSender(dir)

	_, err := sender.Send(context.Background(), Message{
		GreetingID:     1,
		IdempotencyKey: "k",
		Recipient:      "r@corp.biz",
		Subject:        "s",
		Body:           "b",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSMTPSenderRefusesUnconfigured(t *testing.T) {
	sender := NewSMTPSender(config.SMTP{})

	_, err := sender.Send(context.Background(), Message{Recipient: "anna@corp.biz"})
	assert.Error(t, err)
}

func TestNoopSender(t *testing.T) {
	sender := NewNoopSender()
	assert.Equal(t, models.DeliveryChannelNoop, sender.Channel())

	msg, err := sender.Send(context.Background(), Message{GreetingID: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
}
