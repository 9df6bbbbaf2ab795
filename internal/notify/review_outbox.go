package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// OutboxScheduler implements ReviewScheduler by writing an outbox row.
// The delay becomes the row's due time; the poller picks it up later, so
// scheduling survives restarts.
type OutboxScheduler struct {
	repo orders.OrderRepository
}

func NewOutboxScheduler(repo orders.OrderRepository) *OutboxScheduler {
	return &OutboxScheduler{repo: repo}
}

func (s *OutboxScheduler) Schedule(ctx context.Context, orderID, email string, products []orders.ReviewProduct, delay time.Duration) error {
	return s.repo.EnqueueReviewRequest(ctx, &orders.ReviewRequest{
		ID:       uuid.New().String(),
		OrderID:  orderID,
		Email:    email,
		Products: products,
		DueAt:    time.Now().Add(delay),
	})
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ReviewPoller publishes due review requests to the review-requests
// topic. Rows are marked published only after a successful write, so
// delivery is at-least-once and the downstream consumer deduplicates by
// request id.
type ReviewPoller struct {
	tick   time.Duration
	repo   orders.OrderRepository
	writer messageWriter
}

func NewReviewPoller(repo orders.OrderRepository, brokers ...string) *ReviewPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "review-requests",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &ReviewPoller{tick: 30 * time.Second, repo: repo, writer: w}
}

func (p *ReviewPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishDueRequests(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *ReviewPoller) publishDueRequests(ctx context.Context) {
	requests, err := p.repo.DueReviewRequests(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch due review requests: %v", err)
		return
	}

	for _, req := range requests {
		if errPublish := p.publish(ctx, req); errPublish != nil {
			log.Printf("failed to publish review request id = %v with error %v", req.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkReviewRequestPublished(ctx, req.ID); errMark != nil {
			log.Printf("failed to mark review request as published id = %v with error %v", req.ID, errMark)
			continue
		}
	}
}

func (p *ReviewPoller) publish(ctx context.Context, req *orders.ReviewRequest) error {
	payload, err := json.Marshal(map[string]interface{}{
		"request_id": req.ID,
		"order_id":   req.OrderID,
		"email":      req.Email,
		"products":   req.Products,
	})
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(req.OrderID), // order id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("review_request_due")},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
