package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/solarpower/internal/device"
	"github.com/nerrad567/solarpower/internal/infrastructure/mqtt"
)

const (
	defaultQueueSize      = 64
	defaultCommandTimeout = 10 * time.Second
)

var (
	// ErrWrongDevice is returned for commands addressed to another device index.
	ErrWrongDevice = errors.New("telemetry: command for another device")

	// ErrUnknownTopic is returned for messages outside the command namespace.
	ErrUnknownTopic = errors.New("telemetry: not a command topic")
)

// Publisher is the subset of *mqtt.Client used by the mirror.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
	QoS() byte
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Mirror.
type Options struct {
	// Commands enables the inbound command subscription.
	Commands bool

	// CommandTimeout bounds each Device.Set issued for a command.
	CommandTimeout time.Duration

	// QueueSize is the number of changes buffered for publishing.
	QueueSize int
}

// Mirror publishes device changes and optionally applies MQTT commands.
//
// Publishing happens on a single goroutine so a slow broker never blocks
// the HTTP handler that caused the change. When the queue is full the
// change is dropped and counted.
type Mirror struct {
	dev  *device.Device
	pub  Publisher
	opts Options

	queue   chan device.Change
	running atomic.Bool
	dropped atomic.Int64
	wg      sync.WaitGroup

	ctx    context.Context //nolint:containedctx // base context for command writes
	logger Logger
}

// New creates a mirror for dev. Nothing happens until Start.
func New(dev *device.Device, pub Publisher, opts Options) *Mirror {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Mirror{
		dev:    dev,
		pub:    pub,
		opts:   opts,
		queue:  make(chan device.Change, opts.QueueSize),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the mirror.
func (m *Mirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Start hooks into the device and begins publishing until ctx is cancelled.
func (m *Mirror) Start(ctx context.Context) error {
	m.ctx = ctx

	if m.opts.Commands {
		topic := m.pub.Topics().AllCommands(m.dev.Index())
		if err := m.pub.Subscribe(topic, m.pub.QoS(), m.handleCommand); err != nil {
			return fmt.Errorf("subscribing to commands: %w", err)
		}
		m.logger.Info("mqtt commands enabled", "topic", topic)
	}

	m.running.Store(true)
	m.dev.OnChange(m.enqueue)

	m.wg.Add(1)
	go m.run(ctx)
	return nil
}

// Wait blocks until the publishing goroutine has exited.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// Dropped returns the number of changes discarded because the queue was full.
func (m *Mirror) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Mirror) enqueue(c device.Change) {
	if !m.running.Load() {
		return
	}
	select {
	case m.queue <- c:
	default:
		m.dropped.Add(1)
		m.logger.Warn("state queue full, change dropped", "property", c.Code)
	}
}

func (m *Mirror) run(ctx context.Context) {
	defer m.wg.Done()
	defer m.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.queue:
			if err := m.publish(c); err != nil {
				m.logger.Warn("state publish failed", "property", c.Code, "error", err)
			}
		}
	}
}

func (m *Mirror) publish(c device.Change) error {
	payload, err := json.Marshal(c.Value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.Code, err)
	}
	topic := m.pub.Topics().State(m.dev.Index(), c.Code)
	if err := m.pub.PublishRetained(topic, payload); err != nil {
		return err
	}
	m.logger.Debug("state published", "topic", topic)
	return nil
}

// handleCommand applies one command message. Errors are logged by the
// MQTT client.
func (m *Mirror) handleCommand(topic string, payload []byte) error {
	index, code, ok := m.pub.Topics().ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if index != m.dev.Index() {
		return fmt.Errorf("%w: %d", ErrWrongDevice, index)
	}

	v, err := device.DecodeValue(payload)
	if err != nil {
		return fmt.Errorf("command %s: %w", code, err)
	}

	base := m.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, m.opts.CommandTimeout)
	defer cancel()

	if err := m.dev.Set(ctx, code, v); err != nil {
		return fmt.Errorf("command %s: %w", code, err)
	}
	m.logger.Info("command applied", "property", code, "value", device.FormatValue(v))
	return nil
}
