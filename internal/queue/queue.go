// Package queue moves persistence work off the game loop: room actors
// publish snapshot and event-batch tasks to RabbitMQ and a worker pool
// drains them into the store. A game never blocks on the database.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Task is one unit of async work.
type Task struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id"`
	Data      map[string]interface{} `json:"data"`
	Priority  int                    `json:"priority"`
	CreatedAt time.Time              `json:"created_at"`
	Retries   int                    `json:"retries"`
	MaxRetry  int                    `json:"max_retry"`
}

// TaskResult records one processed task.
type TaskResult struct {
	TaskID    string        `json:"task_id"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// TaskHandler processes one task type.
type TaskHandler func(ctx context.Context, task Task) error

// Queue is the RabbitMQ-backed task dispatcher.
type Queue struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	handlers  map[string]TaskHandler
	mu        sync.RWMutex
	logger    *slog.Logger
	queueName string
	resultCh  chan TaskResult
	cancel    context.CancelFunc
	done      context.Context
}

type Config struct {
	URL       string
	QueueName string
	Prefetch  int
	Logger    *slog.Logger
}

func New(cfg Config) (*Queue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set QoS: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, amqp.Table{"x-max-priority": 10}); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName+"_dlq", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare DLQ: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	done, cancel := context.WithCancel(context.Background())
	return &Queue{
		conn:      conn,
		channel:   ch,
		handlers:  make(map[string]TaskHandler),
		logger:    logger,
		queueName: cfg.QueueName,
		resultCh:  make(chan TaskResult, 100),
		cancel:    cancel,
		done:      done,
	}, nil
}

func (q *Queue) RegisterHandler(taskType string, handler TaskHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = handler
}

func (q *Queue) Publish(ctx context.Context, task Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.MaxRetry == 0 {
		task.MaxRetry = 3
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.channel.PublishWithContext(ctx, "", q.queueName, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Priority:     uint8(task.Priority),
		MessageId:    task.ID,
		Timestamp:    task.CreatedAt,
	})
}

func (q *Queue) Start(ctx context.Context) error {
	msgs, err := q.channel.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	go q.processMessages(ctx, msgs)
	return nil
}

func (q *Queue) processMessages(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			q.processMessage(ctx, msg)
		}
	}
}

func (q *Queue) processMessage(ctx context.Context, msg amqp.Delivery) {
	var task Task
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		q.logger.Error("unmarshal task failed", "error", err)
		msg.Nack(false, false)
		return
	}

	q.mu.RLock()
	handler, ok := q.handlers[task.Type]
	q.mu.RUnlock()
	if !ok {
		q.logger.Error("no handler for task type", "type", task.Type)
		msg.Nack(false, false)
		return
	}

	start := time.Now()
	err := handler(ctx, task)
	result := TaskResult{TaskID: task.ID, Timestamp: time.Now(), Duration: time.Since(start)}

	if err != nil {
		result.Error = err.Error()
		if task.Retries < task.MaxRetry {
			task.Retries++
			if rerr := q.Publish(ctx, task); rerr != nil {
				q.logger.Error("requeue task failed", "error", rerr)
			}
		} else {
			q.channel.PublishWithContext(ctx, "", q.queueName+"_dlq", false, false, amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
			})
		}
		msg.Nack(false, false)
	} else {
		result.Success = true
		msg.Ack(false)
	}

	select {
	case q.resultCh <- result:
	default:
	}
}

// Results exposes processed-task outcomes for monitoring.
func (q *Queue) Results() <-chan TaskResult {
	return q.resultCh
}

func (q *Queue) Close() error {
	q.cancel()
	if err := q.channel.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}

func (q *Queue) HealthCheck() error {
	if q.conn.IsClosed() {
		return fmt.Errorf("connection closed")
	}
	return nil
}
