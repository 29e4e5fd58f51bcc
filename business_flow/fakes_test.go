package businessflow

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// memGreetingRepo is an in-memory GreetingRepository for flow tests.
// When events and clients are set, ListDueOn hydrates the relations the
// way the real query preloads them.
type memGreetingRepo struct {
	mu        sync.Mutex
	rows      map[uint]*models.Greeting
	nextID    uint
	updateErr map[uint]error
	events    *memEventRepo
	clients   *memClientRepo
}

func newMemGreetingRepo() *memGreetingRepo {
	return &memGreetingRepo{
		rows:      make(map[uint]*models.Greeting),
		updateErr: make(map[uint]error),
	}
}

func (r *memGreetingRepo) add(g *models.Greeting) *models.Greeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.ID == 0 {
		r.nextID++
		g.ID = r.nextID
	} else if g.ID > r.nextID {
		r.nextID = g.ID
	}
	r.rows[g.ID] = g
	return g
}

func (r *memGreetingRepo) sorted() []*models.Greeting {
	out := make([]*models.Greeting, 0, len(r.rows))
	for _, g := range r.rows {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memGreetingRepo) ByID(ctx context.Context, id uint) (*models.Greeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memGreetingRepo) ByFilter(ctx context.Context, filter models.GreetingFilter, orderBy string, limit, offset int) ([]*models.Greeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Greeting
	for _, g := range r.sorted() {
		if filter.Status != nil && g.Status != *filter.Status {
			continue
		}
		if filter.EventID != nil && g.EventID != *filter.EventID {
			continue
		}
		if filter.ClientID != nil && (g.ClientID == nil || *g.ClientID != *filter.ClientID) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *memGreetingRepo) Save(ctx context.Context, g *models.Greeting) error {
	r.add(g)
	return nil
}

func (r *memGreetingRepo) SaveBatch(ctx context.Context, gs []*models.Greeting) error {
	for _, g := range gs {
		r.add(g)
	}
	return nil
}

func (r *memGreetingRepo) Update(ctx context.Context, g *models.Greeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[g.ID] = g
	return nil
}

func (r *memGreetingRepo) Count(ctx context.Context, filter models.GreetingFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *memGreetingRepo) Exists(ctx context.Context, filter models.GreetingFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *memGreetingRepo) ExistsForEvent(ctx context.Context, eventID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.rows {
		if g.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGreetingRepo) ListDueOn(ctx context.Context, day time.Time, statuses []models.GreetingStatus) ([]*models.Greeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[models.GreetingStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	var out []*models.Greeting
	for _, g := range r.sorted() {
		if g.Event == nil && r.events != nil {
			g.Event = r.events.rows[g.EventID]
		}
		if g.Client == nil && r.clients != nil && g.ClientID != nil {
			g.Client = r.clients.rows[*g.ClientID]
		}
		if g.Event == nil || !utils.SameDate(g.Event.EventDate, day) {
			continue
		}
		if _, ok := wanted[g.Status]; !ok {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *memGreetingRepo) UpdateStatus(ctx context.Context, id uint, status models.GreetingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[id]; err != nil {
		return err
	}
	g, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("greeting %d not found", id)
	}
	g.Status = status
	return nil
}

// memDeliveryRepo is an in-memory DeliveryRepository with the same
// unique idempotency key constraint the real table enforces.
type memDeliveryRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.Delivery
	byKey  map[string]*models.Delivery
	nextID uint
}

func newMemDeliveryRepo() *memDeliveryRepo {
	return &memDeliveryRepo{
		rows:  make(map[uint]*models.Delivery),
		byKey: make(map[string]*models.Delivery),
	}
}

func (r *memDeliveryRepo) ByID(ctx context.Context, id uint) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memDeliveryRepo) ByFilter(ctx context.Context, filter models.DeliveryFilter, orderBy string, limit, offset int) ([]*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Delivery
	for _, d := range r.rows {
		if filter.GreetingID != nil && d.GreetingID != *filter.GreetingID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDeliveryRepo) Save(ctx context.Context, d *models.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byKey[d.IdempotencyKey]; dup {
		return fmt.Errorf("duplicate key value violates unique constraint %q", "uk_deliveries_idempotency_key")
	}
	if d.ID == 0 {
		r.nextID++
		d.ID = r.nextID
	}
	r.rows[d.ID] = d
	r.byKey[d.IdempotencyKey] = d
	return nil
}

func (r *memDeliveryRepo) SaveBatch(ctx context.Context, ds []*models.Delivery) error {
	for _, d := range ds {
		if err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *memDeliveryRepo) Update(ctx context.Context, d *models.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[d.ID] = d
	return nil
}

func (r *memDeliveryRepo) Count(ctx context.Context, filter models.DeliveryFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *memDeliveryRepo) Exists(ctx context.Context, filter models.DeliveryFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *memDeliveryRepo) ByIdempotencyKey(ctx context.Context, key string) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[key], nil
}

// memEventRepo is an in-memory EventRepository honoring the composite
// uniqueness of (client, type, date, title).
type memEventRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.Event
	nextID uint
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{rows: make(map[uint]*models.Event)}
}

func (r *memEventRepo) add(ev *models.Event) *models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.ID == 0 {
		r.nextID++
		ev.ID = r.nextID
	} else if ev.ID > r.nextID {
		r.nextID = ev.ID
	}
	r.rows[ev.ID] = ev
	return ev
}

func eventKey(ev *models.Event) string {
	clientID := uint(0)
	if ev.ClientID != nil {
		clientID = *ev.ClientID
	}
	return fmt.Sprintf("%d|%s|%s|%s", clientID, ev.EventType, utils.DateOnly(ev.EventDate).Format("2006-01-02"), ev.Title)
}

func (r *memEventRepo) ByID(ctx context.Context, id uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memEventRepo) ByFilter(ctx context.Context, filter models.EventFilter, orderBy string, limit, offset int) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for _, ev := range r.rows {
		if filter.EventType != nil && ev.EventType != *filter.EventType {
			continue
		}
		if filter.ClientID != nil && (ev.ClientID == nil || *ev.ClientID != *filter.ClientID) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memEventRepo) Save(ctx context.Context, ev *models.Event) error {
	r.add(ev)
	return nil
}

func (r *memEventRepo) SaveBatch(ctx context.Context, evs []*models.Event) error {
	for _, ev := range evs {
		r.add(ev)
	}
	return nil
}

func (r *memEventRepo) Update(ctx context.Context, ev *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[ev.ID] = ev
	return nil
}

func (r *memEventRepo) Count(ctx context.Context, filter models.EventFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *memEventRepo) Exists(ctx context.Context, filter models.EventFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *memEventRepo) SaveIgnoreDuplicate(ctx context.Context, ev *models.Event) (bool, error) {
	r.mu.Lock()
	key := eventKey(ev)
	for _, existing := range r.rows {
		if eventKey(existing) == key {
			ev.ID = existing.ID
			r.mu.Unlock()
			return false, nil
		}
	}
	r.mu.Unlock()
	r.add(ev)
	return true, nil
}

func (r *memEventRepo) ListInWindow(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for _, ev := range r.rows {
		d := utils.DateOnly(ev.EventDate)
		if d.Before(utils.DateOnly(from)) || d.After(utils.DateOnly(to)) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memClientRepo is an in-memory ClientRepository.
type memClientRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.Client
	nextID uint
}

func newMemClientRepo() *memClientRepo {
	return &memClientRepo{rows: make(map[uint]*models.Client)}
}

func (r *memClientRepo) add(c *models.Client) *models.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
	} else if c.ID > r.nextID {
		r.nextID = c.ID
	}
	r.rows[c.ID] = c
	return c
}

func (r *memClientRepo) ByID(ctx context.Context, id uint) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memClientRepo) ByFilter(ctx context.Context, filter models.ClientFilter, orderBy string, limit, offset int) ([]*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Client
	for _, c := range r.rows {
		if filter.Segment != nil && c.Segment != *filter.Segment {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memClientRepo) Save(ctx context.Context, c *models.Client) error {
	r.add(c)
	return nil
}

func (r *memClientRepo) SaveBatch(ctx context.Context, cs []*models.Client) error {
	for _, c := range cs {
		r.add(c)
	}
	return nil
}

func (r *memClientRepo) Update(ctx context.Context, c *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = c
	return nil
}

func (r *memClientRepo) Count(ctx context.Context, filter models.ClientFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *memClientRepo) Exists(ctx context.Context, filter models.ClientFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *memClientRepo) ByEmail(ctx context.Context, email string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Email != nil && *c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (r *memClientRepo) ListAll(ctx context.Context) ([]*models.Client, error) {
	return r.ByFilter(ctx, models.ClientFilter{}, "", 0, 0)
}

// memHolidayRepo is an in-memory HolidayRepository.
type memHolidayRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.Holiday
	nextID uint
}

func newMemHolidayRepo() *memHolidayRepo {
	return &memHolidayRepo{rows: make(map[uint]*models.Holiday)}
}

func (r *memHolidayRepo) add(h *models.Holiday) *models.Holiday {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.ID == 0 {
		r.nextID++
		h.ID = r.nextID
	}
	r.rows[h.ID] = h
	return h
}

func (r *memHolidayRepo) ByID(ctx context.Context, id uint) (*models.Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memHolidayRepo) ByFilter(ctx context.Context, filter models.HolidayFilter, orderBy string, limit, offset int) ([]*models.Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Holiday
	for _, h := range r.rows {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memHolidayRepo) Save(ctx context.Context, h *models.Holiday) error {
	r.add(h)
	return nil
}

func (r *memHolidayRepo) SaveBatch(ctx context.Context, hs []*models.Holiday) error {
	for _, h := range hs {
		r.add(h)
	}
	return nil
}

func (r *memHolidayRepo) Update(ctx context.Context, h *models.Holiday) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[h.ID] = h
	return nil
}

func (r *memHolidayRepo) Count(ctx context.Context, filter models.HolidayFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *memHolidayRepo) Exists(ctx context.Context, filter models.HolidayFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *memHolidayRepo) ListInWindow(ctx context.Context, from, to time.Time) ([]*models.Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Holiday
	for _, h := range r.rows {
		d := utils.DateOnly(h.Date)
		if d.Before(utils.DateOnly(from)) || d.After(utils.DateOnly(to)) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memAgentRunRepo is an in-memory AgentRunRepository.
type memAgentRunRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.AgentRun
	nextID uint
}

func newMemAgentRunRepo() *memAgentRunRepo {
	return &memAgentRunRepo{rows: make(map[uint]*models.AgentRun)}
}

func (r *memAgentRunRepo) ByID(ctx context.Context, id uint) (*models.AgentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memAgentRunRepo) ByFilter(ctx context.Context, filter models.AgentRunFilter, orderBy string, limit, offset int) ([]*models.AgentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AgentRun
	for _, run := range r.rows {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.TriggeredBy != nil && run.TriggeredBy != *filter.TriggeredBy {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAgentRunRepo) Save(ctx context.Context, run *models.AgentRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == 0 {
		r.nextID++
		run.ID = r.nextID
	}
	r.rows[run.ID] = run
	return nil
}

func (r *memAgentRunRepo) SaveBatch(ctx context.Context, runs []*models.AgentRun) error {
	for _, run := range runs {
		if err := r.Save(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func (r *memAgentRunRepo) Update(ctx context.Context, run *models.AgentRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[run.ID] = run
	return nil
}

func (r *memAgentRunRepo) Count(ctx context.Context, filter models.AgentRunFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *memAgentRunRepo) Exists(ctx context.Context, filter models.AgentRunFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

// stubDeliveryFlow returns canned delivery outcomes per greeting ID and
// records every send it was asked for.
type stubDeliveryFlow struct {
	mu       sync.Mutex
	statuses map[uint]models.DeliveryStatus
	errs     map[uint]error
	sent     []uint
}

func newStubDeliveryFlow() *stubDeliveryFlow {
	return &stubDeliveryFlow{
		statuses: make(map[uint]models.DeliveryStatus),
		errs:     make(map[uint]error),
	}
}

func (f *stubDeliveryFlow) SendGreeting(ctx context.Context, greeting *models.Greeting, client *models.Client) (*models.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, greeting.ID)
	if err := f.errs[greeting.ID]; err != nil {
		return nil, err
	}
	status, ok := f.statuses[greeting.ID]
	if !ok {
		status = models.DeliveryStatusSent
	}
	return &models.Delivery{
		ID:             uint(len(f.sent)),
		GreetingID:     greeting.ID,
		Channel:        models.DeliveryChannelFile,
		Recipient:      client.Recipient(),
		Status:         status,
		IdempotencyKey: IdempotencyKey(greeting.ID, models.DeliveryChannelFile, client.Recipient()),
	}, nil
}

func (f *stubDeliveryFlow) RecordDelivery(ctx context.Context, greetingID uint, channel models.DeliveryChannel, recipient string, attempt DeliveryAttempt) (*models.Delivery, error) {
	status, msg := attempt(ctx)
	return &models.Delivery{
		GreetingID:      greetingID,
		Channel:         channel,
		Recipient:       recipient,
		Status:          status,
		ProviderMessage: utils.ToPtr(msg),
		IdempotencyKey:  IdempotencyKey(greetingID, channel, recipient),
	}, nil
}

func (f *stubDeliveryFlow) ListDeliveries(ctx context.Context, filter models.DeliveryFilter, limit, offset int) ([]*models.Delivery, error) {
	return nil, nil
}

// memFeedbackRepo is an in-memory FeedbackRepository.
type memFeedbackRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.Feedback
	nextID uint
}

func newMemFeedbackRepo() *memFeedbackRepo {
	return &memFeedbackRepo{rows: make(map[uint]*models.Feedback)}
}

func (r *memFeedbackRepo) ByID(ctx context.Context, id uint) (*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *memFeedbackRepo) matches(fb *models.Feedback, filter models.FeedbackFilter) bool {
	if filter.ID != nil && fb.ID != *filter.ID {
		return false
	}
	if filter.GreetingID != nil && fb.GreetingID != *filter.GreetingID {
		return false
	}
	if filter.Outcome != nil && fb.Outcome != *filter.Outcome {
		return false
	}
	return true
}

func (r *memFeedbackRepo) ByFilter(ctx context.Context, filter models.FeedbackFilter, orderBy string, limit, offset int) ([]*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Feedback
	for _, fb := range r.rows {
		if r.matches(fb, filter) {
			out = append(out, fb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memFeedbackRepo) Save(ctx context.Context, fb *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fb.ID == 0 {
		r.nextID++
		fb.ID = r.nextID
	}
	r.rows[fb.ID] = fb
	return nil
}

func (r *memFeedbackRepo) SaveBatch(ctx context.Context, fbs []*models.Feedback) error {
	for _, fb := range fbs {
		if err := r.Save(ctx, fb); err != nil {
			return err
		}
	}
	return nil
}

func (r *memFeedbackRepo) Update(ctx context.Context, fb *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[fb.ID] = fb
	return nil
}

func (r *memFeedbackRepo) Count(ctx context.Context, filter models.FeedbackFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memFeedbackRepo) Exists(ctx context.Context, filter models.FeedbackFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}
