package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
)

// TurnHandler processes one event. A returned error schedules a retry.
type TurnHandler func(ctx context.Context, ev chat.TurnEvent) error

// Consumer runs a fixed pool of workers over the turn queue. Failed events
// go through the retry queue up to MaxRetries times, then to the DLQ.
type Consumer struct {
	ch          *amqp.Channel
	queue       string
	concurrency int
	MaxRetries  int
	RetryDelay  time.Duration

	pubMu  sync.Mutex
	logger *log.Logger
}

func NewConsumer(ch *amqp.Channel, queue string, concurrency int) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{
		ch:          ch,
		queue:       queue,
		concurrency: concurrency,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		logger:      log.Default().WithPrefix("consumer"),
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDeadLetter
	outcomeRequeue
)

// settle decides what happens to a delivery after handling. A failure while
// shutting down is not the event's fault, so it goes back on the queue.
func settle(decoded bool, handleErr error, shuttingDown bool, attempt, maxRetries int) outcome {
	switch {
	case !decoded:
		return outcomeDeadLetter
	case handleErr == nil:
		return outcomeAck
	case shuttingDown:
		return outcomeRequeue
	case attempt >= maxRetries:
		return outcomeDeadLetter
	default:
		return outcomeRetry
	}
}

// Run consumes until ctx is done or the delivery channel closes. In-flight
// events finish before it returns.
func (c *Consumer) Run(ctx context.Context, handle TurnHandler) error {
	//  strict concurrency control
	if err := c.ch.Qos(c.concurrency, 0, false); err != nil {
		return err
	}
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.logger.Info("consumer started", "queue", c.queue, "concurrency", c.concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, c.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.process(ctx, workerID, d, handle)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer shutting down")
			close(jobs)
			wg.Wait()
			return nil

		case d, ok := <-msgs:
			if !ok {
				close(jobs)
				wg.Wait()
				return errors.New("delivery channel closed")
			}
			jobs <- d
		}
	}
}

func (c *Consumer) process(ctx context.Context, workerID int, d amqp.Delivery, handle TurnHandler) {
	start := time.Now()
	ev, decoded := DecodeTurn(d.Body)
	var err error
	if decoded {
		err = handle(ctx, ev)
	}
	attempt := RetryCount(d.Headers)

	switch settle(decoded, err, ctx.Err() != nil, attempt, c.MaxRetries) {
	case outcomeAck:
		if err := d.Ack(false); err != nil {
			c.logger.Error("ack failed", "worker", workerID, "conversation_id", ev.ConversationID, "err", err)
		}
		if cost := time.Since(start); cost > 2*time.Second {
			c.logger.Warn("slow turn event", "worker", workerID, "conversation_id", ev.ConversationID, "cost", cost)
		}
	case outcomeRetry:
		c.logger.Warn("turn event failed, retrying", "worker", workerID, "conversation_id", ev.ConversationID, "attempt", attempt, "err", err)
		c.pubMu.Lock()
		rerr := Retry(context.WithoutCancel(ctx), c.ch, c.queue, d, c.RetryDelay)
		c.pubMu.Unlock()
		if rerr != nil {
			c.logger.Error("retry publish failed", "worker", workerID, "err", rerr)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	case outcomeRequeue:
		c.logger.Info("requeueing turn event on shutdown", "worker", workerID, "conversation_id", ev.ConversationID)
		_ = d.Nack(false, true)
	case outcomeDeadLetter:
		c.logger.Error("turn event dead-lettered", "worker", workerID, "decoded", decoded, "attempt", attempt, "err", err)
		_ = d.Nack(false, false)
	}
}
