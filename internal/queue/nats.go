package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/good-yellow-bee/oncall/internal/metrics"
)

const taskStreamMaxAge = 24 * time.Hour

// Config holds the JetStream queue settings.
type Config struct {
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	Subject       string `yaml:"subject"`
	ConsumerName  string `yaml:"consumer_name"`
	DeliverGroup  string `yaml:"deliver_group"`
	MaxDeliver    int    `yaml:"max_deliver"`
	AckWaitSec    int    `yaml:"ack_wait_sec"`
	MaxAckPending int    `yaml:"max_ack_pending"`
}

// SetDefaults applies default values for missing queue configuration.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Stream == "" {
		c.Stream = "ONCALL_TASKS"
	}
	if c.Subject == "" {
		c.Subject = "oncall.tasks"
	}
	if c.ConsumerName == "" {
		c.ConsumerName = "oncall-worker"
	}
	if c.DeliverGroup == "" {
		c.DeliverGroup = "oncall-workers"
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = 5
	}
	if c.AckWaitSec == 0 {
		c.AckWaitSec = 30
	}
	if c.MaxAckPending == 0 {
		c.MaxAckPending = 256
	}
}

// NATSProducer publishes tasks into a JetStream stream. The task id doubles
// as the Nats-Msg-Id header, so re-publishing the same task within the
// dedup window is a no-op.
type NATSProducer struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewNATSProducer connects to NATS and ensures the task stream exists.
func NewNATSProducer(cfg Config) (*NATSProducer, error) {
	cfg.SetDefaults()
	nc, js, err := openJetStream(cfg)
	if err != nil {
		return nil, err
	}
	return &NATSProducer{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Publish enqueues one task.
func (p *NATSProducer) Publish(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = body
	if task.ID != "" {
		msg.Header.Set("Nats-Msg-Id", task.ID)
	}
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish task: %w", err)
	}
	metrics.TasksPublishedTotal.WithLabelValues(string(task.Kind)).Inc()
	return nil
}

// Close closes the producer connection.
func (p *NATSProducer) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	p.nc.Close()
	return nil
}

// NATSWorker consumes tasks via a durable queue-group consumer.
type NATSWorker struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

// NewNATSWorker starts consuming tasks and dispatching them to handler.
// Handler errors nak the message for redelivery; undecodable messages are
// acked and dropped.
func NewNATSWorker(cfg Config, handler Handler) (*NATSWorker, error) {
	cfg.SetDefaults()
	nc, js, err := openJetStream(cfg)
	if err != nil {
		return nil, err
	}

	subOpts := []nats.SubOpt{
		nats.BindStream(cfg.Stream),
		nats.Durable(cfg.ConsumerName),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(time.Duration(cfg.AckWaitSec) * time.Second),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.MaxAckPending(cfg.MaxAckPending),
		nats.DeliverAll(),
	}
	sub, err := js.QueueSubscribe(cfg.Subject, cfg.DeliverGroup, func(msg *nats.Msg) {
		var task Task
		if err := json.Unmarshal(msg.Data, &task); err != nil {
			log.Printf("task queue: dropping undecodable message on %s: %v", msg.Subject, err)
			_ = msg.Ack()
			return
		}
		if err := handler(context.Background(), task); err != nil {
			log.Printf("task queue: %s task %s failed: %v", task.Kind, task.ID, err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, subOpts...)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe %q/%q: %w", cfg.Subject, cfg.DeliverGroup, err)
	}

	return &NATSWorker{nc: nc, sub: sub}, nil
}

// Close drains the subscription and closes the connection.
func (w *NATSWorker) Close() error {
	if w == nil || w.nc == nil {
		return nil
	}
	if w.sub != nil {
		if err := w.sub.Drain(); err != nil {
			w.nc.Close()
			return err
		}
	}
	w.nc.Close()
	return nil
}

func openJetStream(cfg Config) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("oncall"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %q: %w", cfg.URL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

// ensureStream creates the task stream if it does not exist yet.
func ensureStream(js nats.JetStreamContext, streamName, subject string) error {
	if _, err := js.StreamInfo(streamName); err == nil {
		return nil
	} else if err != nats.ErrStreamNotFound && !strings.Contains(strings.ToLower(err.Error()), "stream not found") {
		return fmt.Errorf("stream info %q: %w", streamName, err)
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    taskStreamMaxAge,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("add stream %q: %w", streamName, err)
	}
	return nil
}
