// Package notify is the outbound notification channel. Callers enqueue and
// move on; delivery failures are logged and counted, never returned.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindAccountCreated       Kind = "account_created"
	KindRegistrationApproved Kind = "registration_approved"
	KindPasswordReset        Kind = "password_reset"
	KindWorkstationIssued    Kind = "workstation_issued"
	KindWorkstationReturned  Kind = "workstation_returned"
	KindEquipmentIssued      Kind = "equipment_issued"
	KindEquipmentReturned    Kind = "equipment_returned"
)

type Message struct {
	Kind      Kind              `json:"kind"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier is what the domain services depend on.
type Notifier interface {
	Notify(m Message)
}

// Sink delivers one message.
type Sink interface {
	Send(ctx context.Context, m Message) error
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	List     string `yaml:"list"`
}

type Config struct {
	Driver    string      `yaml:"driver"` // log | redis
	QueueSize int         `yaml:"queue_size"`
	Redis     RedisConfig `yaml:"redis"`
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(Message) {}

// Dispatcher is a bounded queue drained by one background goroutine.
type Dispatcher struct {
	sink    Sink
	ch      chan Message
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(sink Sink, size int) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		sink:    sink,
		ch:      make(chan Message, size),
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Close drains what is queued and waits for it.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for m := range d.ch {
			d.deliver(m)
		}
	}()
}

func (d *Dispatcher) deliver(m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logging.Log.WithField("kind", m.Kind).Errorf("notify: sink panic: %v", r)
			metrics.Notifications.WithLabelValues("failed").Inc()
		}
	}()
	if err := d.sink.Send(ctx, m); err != nil {
		logging.Log.WithFields(logrus.Fields{"kind": m.Kind, "to": m.To}).WithError(err).Error("notify: delivery failed")
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// Notify never blocks. A full queue drops the message with a warning.
func (d *Dispatcher) Notify(m Message) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	defer func() {
		// send on closed channel during shutdown
		if recover() != nil {
			metrics.Notifications.WithLabelValues("dropped").Inc()
		}
	}()
	select {
	case d.ch <- m:
	default:
		logging.Log.WithField("kind", m.Kind).Warn("notify: queue full, message dropped")
		metrics.Notifications.WithLabelValues("dropped").Inc()
	}
}

func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.ch) })
	<-d.done
}

// LogSink writes messages to the application log.
type LogSink struct{}

func (LogSink) Send(_ context.Context, m Message) error {
	logging.Log.WithFields(logrus.Fields{"kind": m.Kind, "to": m.To}).Infof("notify: %s", m.Subject)
	return nil
}

// RedisSink pushes JSON messages onto a list for an external mailer.
type RedisSink struct {
	rdb  *redis.Client
	list string
}

func NewRedisSink(rdb *redis.Client, list string) *RedisSink {
	if list == "" {
		list = "lims:notifications"
	}
	return &RedisSink{rdb: rdb, list: list}
}

func (s *RedisSink) Send(ctx context.Context, m Message) error {
	buf, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.LPush(ctx, s.list, buf).Err()
}

// NewSink builds the sink named by cfg.Driver.
func NewSink(cfg Config) (Sink, func() error, error) {
	switch cfg.Driver {
	case "", "log":
		return LogSink{}, func() error { return nil }, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisSink(rdb, cfg.Redis.List), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}
