package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hermes-crm/hermes/app/services"
	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// GateAction is the outcome class of the channel safety gate.
type GateAction string

const (
	GateProceed  GateAction = "proceed"
	GateRedirect GateAction = "redirect"
	GateSkip     GateAction = "skip"
	GateError    GateAction = "error"
)

// GateDecision is the resolved verdict of the channel safety gate. The
// Channel field carries the effective channel, which differs from the
// requested one on redirect.
type GateDecision struct {
	Action  GateAction
	Channel models.DeliveryChannel
	Reason  string
}

// testDomainSuffixes are placeholder domains that must never receive
// real email.
var testDomainSuffixes = []string{
	".example.com",
	".invalid",
	".example",
	".test",
}

// DecideChannel runs the ordered safety rules for a planned delivery.
// File and noop channels always proceed; email goes through demo
// redirection, recipient syntax, placeholder domain, allowlist and
// SMTP configuration checks, in that order.
func DecideChannel(client *models.Client, channel models.DeliveryChannel, recipient string, policy config.DeliveryPolicy, smtp config.SMTP) GateDecision {
	if channel != models.DeliveryChannelEmail {
		return GateDecision{Action: GateProceed, Channel: channel}
	}

	if client != nil && client.IsDemo {
		return GateDecision{Action: GateRedirect, Channel: models.DeliveryChannelFile, Reason: "demo-redirect"}
	}

	at := strings.LastIndex(recipient, "@")
	if at <= 0 || at == len(recipient)-1 {
		return GateDecision{Action: GateError, Channel: channel, Reason: "invalid-email-recipient"}
	}

	domain := strings.ToLower(recipient[at+1:])
	if isTestDomain(domain) {
		return GateDecision{Action: GateSkip, Channel: channel, Reason: "test-recipient"}
	}

	if !policy.AllowAllDomains {
		if len(policy.AllowedDomains) == 0 {
			return GateDecision{Action: GateSkip, Channel: channel, Reason: "allowlist-empty"}
		}
		if !domainAllowed(domain, policy.AllowedDomains) {
			return GateDecision{Action: GateSkip, Channel: channel, Reason: "domain-not-allowlisted:" + domain}
		}
	}

	if !smtp.Configured() {
		return GateDecision{Action: GateError, Channel: channel, Reason: "not-configured"}
	}

	return GateDecision{Action: GateProceed, Channel: channel}
}

func isTestDomain(domain string) bool {
	if domain == "" || domain == "example.com" {
		return true
	}
	for _, suffix := range testDomainSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}

func domainAllowed(domain string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), domain) {
			return true
		}
	}
	return false
}

// IdempotencyKey derives the delivery ledger key for one logical send:
// the first 40 hex characters of sha256 over greeting, channel and
// recipient. Same inputs always map to the same key.
func IdempotencyKey(greetingID uint, channel models.DeliveryChannel, recipient string) string {
	raw := fmt.Sprintf("%d:%s:%s", greetingID, channel, recipient)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:40]
}

// DeliveryAttempt performs the actual channel transmission for a
// delivery that passed the ledger. It reports the resolved status and
// a short provider message.
type DeliveryAttempt func(ctx context.Context) (models.DeliveryStatus, string)

// DeliveryFlow owns the idempotency ledger and channel dispatch
type DeliveryFlow interface {
	// SendGreeting runs the full pipeline for one greeting: gate
	// decision, ledger check, channel attempt, delivery record.
	SendGreeting(ctx context.Context, greeting *models.Greeting, client *models.Client) (*models.Delivery, error)
	// RecordDelivery consults the ledger and invokes attempt only when
	// no delivery row exists for the key yet.
	RecordDelivery(ctx context.Context, greetingID uint, channel models.DeliveryChannel, recipient string, attempt DeliveryAttempt) (*models.Delivery, error)
	ListDeliveries(ctx context.Context, filter models.DeliveryFilter, limit, offset int) ([]*models.Delivery, error)
}

// DeliveryFlowImpl implements the delivery pipeline
type DeliveryFlowImpl struct {
	deliveryRepo repository.DeliveryRepository
	senders      *services.SenderRegistry
	policy       config.DeliveryPolicy
	smtpConfig   config.SMTP
	cache        *redis.Client
	cachePrefix  string
	logger       *log.Logger
}

// NewDeliveryFlow creates a new delivery flow instance. The cache
// client may be nil; the deliveries unique index stays the hard
// at-most-once guarantee either way.
func NewDeliveryFlow(
	deliveryRepo repository.DeliveryRepository,
	senders *services.SenderRegistry,
	policy config.DeliveryPolicy,
	smtpConfig config.SMTP,
	cache *redis.Client,
	cachePrefix string,
	logger *log.Logger,
) DeliveryFlow {
	return &DeliveryFlowImpl{
		deliveryRepo: deliveryRepo,
		senders:      senders,
		policy:       policy,
		smtpConfig:   smtpConfig,
		cache:        cache,
		cachePrefix:  cachePrefix,
		logger:       logger,
	}
}

// SendGreeting gates, dispatches and records one greeting delivery
func (s *DeliveryFlowImpl) SendGreeting(ctx context.Context, greeting *models.Greeting, client *models.Client) (*models.Delivery, error) {
	if client == nil {
		return nil, ErrClientNotFound
	}
	recipient := client.Recipient()
	if recipient == "" {
		return nil, ErrRecipientMissing
	}

	channel := models.DeliveryChannel(s.policy.DefaultChannel)
	decision := DecideChannel(client, channel, recipient, s.policy, s.smtpConfig)

	switch decision.Action {
	case GateSkip:
		return s.RecordDelivery(ctx, greeting.ID, decision.Channel, recipient, func(ctx context.Context) (models.DeliveryStatus, string) {
			return models.DeliveryStatusSkipped, decision.Reason
		})
	case GateError:
		return s.RecordDelivery(ctx, greeting.ID, decision.Channel, recipient, func(ctx context.Context) (models.DeliveryStatus, string) {
			return models.DeliveryStatusError, decision.Reason
		})
	}

	sender, ok := s.senders.Get(decision.Channel)
	if !ok {
		return nil, NewBusinessErrorf("DELIVERY_CHANNEL_UNKNOWN", "no sender for channel %s", ErrChannelUnknown, decision.Channel)
	}

	imagePath := ""
	if greeting.ImagePath != nil {
		imagePath = *greeting.ImagePath
	}

	return s.RecordDelivery(ctx, greeting.ID, decision.Channel, recipient, func(ctx context.Context) (models.DeliveryStatus, string) {
		msg := services.Message{
			GreetingID:     greeting.ID,
			IdempotencyKey: IdempotencyKey(greeting.ID, decision.Channel, recipient),
			Recipient:      recipient,
			Subject:        greeting.Subject,
			Body:           greeting.Body,
			ImagePath:      imagePath,
		}
		providerMessage, err := sender.Send(ctx, msg)
		if err != nil {
			return models.DeliveryStatusError, err.Error()
		}
		return models.DeliveryStatusSent, providerMessage
	})
}

// RecordDelivery is the idempotency ledger. An existing row for the key
// is returned unchanged without invoking attempt; otherwise attempt
// runs exactly once and its outcome is persisted under the key.
func (s *DeliveryFlowImpl) RecordDelivery(ctx context.Context, greetingID uint, channel models.DeliveryChannel, recipient string, attempt DeliveryAttempt) (*models.Delivery, error) {
	key := IdempotencyKey(greetingID, channel, recipient)

	existing, err := s.deliveryRepo.ByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, NewBusinessError("DELIVERY_LEDGER_LOOKUP_FAILED", "Failed to look up delivery ledger", err)
	}
	if existing != nil {
		return existing, nil
	}

	unlock, err := s.acquireSendLock(ctx, key)
	if err != nil {
		// Lost the race: another process is attempting this key right
		// now. Re-check the ledger before giving up.
		existing, lookupErr := s.deliveryRepo.ByIdempotencyKey(ctx, key)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	defer unlock()

	status, providerMessage := attempt(ctx)

	delivery := &models.Delivery{
		GreetingID:      greetingID,
		Channel:         channel,
		Recipient:       recipient,
		Status:          status,
		ProviderMessage: utils.ToPtr(providerMessage),
		IdempotencyKey:  key,
	}
	if status == models.DeliveryStatusSent {
		delivery.SentAt = utils.UTCNowPtr()
	}

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		// The unique index is the backstop: a concurrent writer may
		// have won, in which case its row is the authoritative one.
		existing, lookupErr := s.deliveryRepo.ByIdempotencyKey(ctx, key)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, NewBusinessError("DELIVERY_SAVE_FAILED", "Failed to save delivery", err)
	}

	return delivery, nil
}

// acquireSendLock takes a short-lived SETNX lock for the key. Without a
// cache client it degrades to a no-op; the DB constraint still holds.
func (s *DeliveryFlowImpl) acquireSendLock(ctx context.Context, key string) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}

	lockKey := s.cachePrefix + "send-lock:" + key
	ttl := s.policy.SendLockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	ok, err := s.cache.SetNX(ctx, lockKey, "1", ttl).Result()
	if err != nil {
		// A broken cache must not block deliveries.
		s.logger.Printf("delivery: send lock unavailable for key=%s: %v", key, err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrSendLockHeld
	}

	return func() {
		if err := s.cache.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
			s.logger.Printf("delivery: send lock release failed for key=%s: %v", key, err)
		}
	}, nil
}

// ListDeliveries returns delivery rows for the API
func (s *DeliveryFlowImpl) ListDeliveries(ctx context.Context, filter models.DeliveryFilter, limit, offset int) ([]*models.Delivery, error) {
	rows, err := s.deliveryRepo.ByFilter(ctx, filter, "id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("DELIVERY_LIST_FAILED", "Failed to list deliveries", err)
	}
	return rows, nil
}
