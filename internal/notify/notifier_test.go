package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeMessenger struct {
	mu       sync.Mutex
	to       string
	template string
	payload  map[string]string
	err      error
}

func (m *fakeMessenger) Send(_ context.Context, to, template string, payload map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.template = template
	m.payload = payload
	return nil
}

type fakeScheduler struct {
	mu       sync.Mutex
	orderIDs []string
	delay    time.Duration
	err      error
}

func (s *fakeScheduler) Schedule(_ context.Context, orderID, _ string, _ []orders.ReviewProduct, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.orderIDs = append(s.orderIDs, orderID)
	s.delay = delay
	return nil
}

func paidOrder() *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:         "aaaa-bbbb",
		OwnerEmail: "buyer@example.com",
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Collar para perro", Quantity: 2, UnitPrice: 45_000},
			{ProductID: 7, Quantity: 1, UnitPrice: 12_000},
		},
		Subtotal:     102_000,
		TaxAmount:    19_380,
		ShippingCost: 15_000,
		Total:        136_380,
		Currency:     "COP",
		Status:       domain.OrderStatusApproved,
		ShippingDetails: &domain.ShippingDetails{
			FullName: "Ana Vargas",
			Phone:    "3001234567",
			Address:  "Calle 10 # 5-51",
			City:     "Medellín",
		},
		PaidAt: &now,
	}
}

func TestNotifyOrderPaid_AllChannels(t *testing.T) {
	mailer := &fakeMailer{}
	messenger := &fakeMessenger{}
	scheduler := &fakeScheduler{}
	n := NewNotifier(mailer, messenger, scheduler, "+573009999999", "ventas@example.com")

	result := n.NotifyOrderPaid(context.Background(), paidOrder())

	assert.Equal(t, ChannelSent, result.Email)
	assert.Equal(t, ChannelSent, result.MerchantAlert)
	assert.Equal(t, ChannelSent, result.ReviewRequest)

	require.Len(t, mailer.sent, 2, "customer email plus internal copy")
	assert.Equal(t, "buyer@example.com", mailer.sent[0].to)
	assert.Equal(t, "ventas@example.com", mailer.sent[1].to)
	assert.Contains(t, mailer.sent[0].subject, "aaaa-bbbb")
	assert.Contains(t, mailer.sent[0].body, "Collar para perro x2")
	assert.Contains(t, mailer.sent[0].body, "Total: 136380 COP")

	assert.Equal(t, "+573009999999", messenger.to)
	assert.Equal(t, "new_order_alert", messenger.template)
	assert.Equal(t, "Ana Vargas", messenger.payload["customer"])
	assert.Equal(t, "Calle 10 # 5-51, Medellín", messenger.payload["address"])

	assert.Equal(t, []string{"aaaa-bbbb"}, scheduler.orderIDs)
	assert.Equal(t, 7*24*time.Hour, scheduler.delay)
}

func TestNotifyOrderPaid_ChannelsFailIndependently(t *testing.T) {
	cases := []struct {
		name string
		want func(Result) (got, rest ChannelStatus, others []ChannelStatus)
		prep func(*fakeMailer, *fakeMessenger, *fakeScheduler)
	}{
		{
			name: "email fails",
			prep: func(m *fakeMailer, _ *fakeMessenger, _ *fakeScheduler) { m.err = errors.New("smtp down") },
			want: func(r Result) (ChannelStatus, ChannelStatus, []ChannelStatus) {
				return r.Email, ChannelFailed, []ChannelStatus{r.MerchantAlert, r.ReviewRequest}
			},
		},
		{
			name: "merchant alert fails",
			prep: func(_ *fakeMailer, m *fakeMessenger, _ *fakeScheduler) { m.err = errors.New("api 500") },
			want: func(r Result) (ChannelStatus, ChannelStatus, []ChannelStatus) {
				return r.MerchantAlert, ChannelFailed, []ChannelStatus{r.Email, r.ReviewRequest}
			},
		},
		{
			name: "review scheduling fails",
			prep: func(_ *fakeMailer, _ *fakeMessenger, s *fakeScheduler) { s.err = errors.New("db down") },
			want: func(r Result) (ChannelStatus, ChannelStatus, []ChannelStatus) {
				return r.ReviewRequest, ChannelFailed, []ChannelStatus{r.Email, r.MerchantAlert}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			messenger := &fakeMessenger{}
			scheduler := &fakeScheduler{}
			tc.prep(mailer, messenger, scheduler)
			n := NewNotifier(mailer, messenger, scheduler, "+573009999999", "")

			result := n.NotifyOrderPaid(context.Background(), paidOrder())

			got, wantFailed, others := tc.want(result)
			assert.Equal(t, wantFailed, got)
			for _, status := range others {
				assert.Equal(t, ChannelSent, status)
			}
		})
	}
}

func TestOutboxScheduler_WritesDueRow(t *testing.T) {
	repo := orders.NewMemoryRepository()
	s := NewOutboxScheduler(repo)

	products := []orders.ReviewProduct{{ProductID: 1, ProductName: "Collar"}}
	err := s.Schedule(context.Background(), "order-1", "buyer@example.com", products, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	due, err := repo.DueReviewRequests(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "order-1", due[0].OrderID)
	assert.NotEmpty(t, due[0].ID)
	assert.Equal(t, products, due[0].Products)
}

type fakeKafkaWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestReviewPoller_PublishesDueAndMarks(t *testing.T) {
	repo := orders.NewMemoryRepository()
	writer := &fakeKafkaWriter{}
	poller := &ReviewPoller{tick: time.Hour, repo: repo, writer: writer}
	ctx := context.Background()

	require.NoError(t, repo.EnqueueReviewRequest(ctx, &orders.ReviewRequest{
		ID:      "req-1",
		OrderID: "order-1",
		Email:   "buyer@example.com",
		DueAt:   time.Now().Add(-time.Minute),
	}))
	require.NoError(t, repo.EnqueueReviewRequest(ctx, &orders.ReviewRequest{
		ID:      "req-2",
		OrderID: "order-2",
		Email:   "other@example.com",
		DueAt:   time.Now().Add(time.Hour), // not yet due
	}))

	poller.publishDueRequests(ctx)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "order-1", string(msg.Key))
	assert.Contains(t, string(msg.Value), `"request_id":"req-1"`)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "review_request_due", string(msg.Headers[0].Value))

	// The published row is gone from the due set; the future one is not
	// due yet.
	due, err := repo.DueReviewRequests(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// A second sweep publishes nothing new.
	poller.publishDueRequests(ctx)
	assert.Len(t, writer.messages, 1)
}

func TestReviewPoller_WriteFailureKeepsRowDue(t *testing.T) {
	repo := orders.NewMemoryRepository()
	writer := &fakeKafkaWriter{err: errors.New("broker unreachable")}
	poller := &ReviewPoller{tick: time.Hour, repo: repo, writer: writer}
	ctx := context.Background()

	require.NoError(t, repo.EnqueueReviewRequest(ctx, &orders.ReviewRequest{
		ID:      "req-1",
		OrderID: "order-1",
		Email:   "buyer@example.com",
		DueAt:   time.Now().Add(-time.Minute),
	}))

	poller.publishDueRequests(ctx)

	due, err := repo.DueReviewRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1, "unpublished row stays for the next sweep")

	writer.err = nil
	poller.publishDueRequests(ctx)
	require.Len(t, writer.messages, 1)

	due, err = repo.DueReviewRequests(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestConfirmationBody_FreeShipping(t *testing.T) {
	order := paidOrder()
	order.ShippingCost = 0
	body := confirmationBody(order)
	assert.True(t, strings.Contains(body, "Envío: gratis"))
	assert.Contains(t, body, "Producto 7 x1", "nameless snapshot falls back to the id")
}
