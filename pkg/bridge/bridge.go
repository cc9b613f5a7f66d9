// Package bridge exposes the console and auxiliary low-level I/O components
// on an external publish/subscribe namespace.
package bridge

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/arm"
	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultName      = "dVRKBridge"
	DefaultNamespace = "/dvrk/"
	DefaultPeriod    = 20 * time.Millisecond
)

var (
	ErrConsoleNotConnected = errors.New("console must be configured and connected before it is bridged")
	ErrNotRegistered       = errors.New("bridge must be registered before I/O configuration")
	ErrInvalidNamespace    = errors.New("namespace must start and end with \"/\"")
	ErrAlreadyConnected    = errors.New("bridge is already connected")
)

// ValidateNamespace checks the topic prefix shape.
func ValidateNamespace(namespace string) error {
	if !strings.HasPrefix(namespace, "/") || !strings.HasSuffix(namespace, "/") {
		return errors.Wrapf(ErrInvalidNamespace, "got %q", namespace)
	}
	return nil
}

// Message is the payload published on every topic.
type Message struct {
	Topic string     `json:"topic"`
	Stamp *time.Time `json:"stamp,omitempty"`
	Arm   *arm.State `json:"arm,omitempty"`
	IO    *IOSample  `json:"io,omitempty"`
}

type IOSample struct {
	Source string `json:"source"`
	Signal string `json:"signal"`
	Cycle  uint64 `json:"cycle"`
}

type ioTopic struct {
	topic  string
	source string
	signal string
}

type Bridge struct {
	component.Periodic
	logger *zap.Logger

	namespace   string
	timestamped bool
	console     *console.Console
	publisher   Publisher
	registry    *component.Registry

	ioSources []IOSource
	ioConfigs []string
	ioTopics  []ioTopic
	armTopics map[string]string
	connected bool

	failing   atomic.Bool
	published atomic.Uint64
	onPublish []func(topic string, err error)
}

// New wraps a connected console. The timestamp option is fixed for the
// lifetime of the bridge.
func New(
	name string,
	period time.Duration,
	namespace string,
	c *console.Console,
	timestamped bool,
	publisher Publisher,
	logger *zap.Logger,
) (*Bridge, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if period <= 0 {
		return nil, errors.Errorf("bridge period must be positive, got %s", period)
	}
	if c == nil || !c.Connected() {
		return nil, ErrConsoleNotConnected
	}
	b := &Bridge{
		logger:      logger,
		namespace:   namespace,
		timestamped: timestamped,
		console:     c,
		publisher:   publisher,
		armTopics:   map[string]string{},
	}
	b.Periodic = component.NewPeriodic(name, period, b.step)
	return b, nil
}

func (b *Bridge) Attached(registry *component.Registry) {
	b.registry = registry
}

func (b *Bridge) Namespace() string { return b.namespace }

func (b *Bridge) Timestamped() bool { return b.timestamped }

// OnPublish registers fn to be called after each publish attempt.
func (b *Bridge) OnPublish(fn func(topic string, err error)) {
	b.onPublish = append(b.onPublish, fn)
}

// Configure adds the low-level I/O components described in path. It can be
// called several times; sources are kept in the order they were applied.
func (b *Bridge) Configure(path string) error {
	if b.registry == nil {
		return ErrNotRegistered
	}
	if b.connected {
		return ErrAlreadyConnected
	}
	doc, err := loadIODocument(path)
	if err != nil {
		return err
	}
	b.ioSources = append(b.ioSources, doc.IO...)
	b.ioConfigs = append(b.ioConfigs, path)
	b.logger.Info("Bridge I/O configured", zap.String("path", path), zap.Int("sources", len(doc.IO)))
	return nil
}

// ConfiguredIO returns the applied I/O configuration paths in order.
func (b *Bridge) ConfiguredIO() []string {
	return append([]string(nil), b.ioConfigs...)
}

// Connect builds the topic table from the console arms and the I/O sources.
func (b *Bridge) Connect() error {
	if b.connected {
		return ErrAlreadyConnected
	}
	if !b.console.Connected() {
		return ErrConsoleNotConnected
	}
	for _, name := range b.console.Arms() {
		b.armTopics[name] = b.namespace + name + "/state"
	}
	for _, source := range b.ioSources {
		for _, signal := range source.Topics {
			b.ioTopics = append(b.ioTopics, ioTopic{
				topic:  b.namespace + "io/" + source.Name + "/" + signal,
				source: source.Name,
				signal: signal,
			})
		}
	}
	b.connected = true
	b.logger.Info("Bridge connected",
		zap.String("namespace", b.namespace),
		zap.Bool("timestamped", b.timestamped),
		zap.Int("topics", len(b.armTopics)+len(b.ioTopics)))
	return nil
}

// Topics lists every topic the bridge publishes on, arms first.
func (b *Bridge) Topics() []string {
	topics := make([]string, 0, len(b.armTopics)+len(b.ioTopics))
	for _, name := range b.console.Arms() {
		if topic, ok := b.armTopics[name]; ok {
			topics = append(topics, topic)
		}
	}
	for _, io := range b.ioTopics {
		topics = append(topics, io.topic)
	}
	return topics
}

func (b *Bridge) Published() uint64 { return b.published.Load() }

func (b *Bridge) step(now time.Time) {
	var stamp *time.Time
	if b.timestamped {
		stamp = &now
	}
	for _, state := range b.console.Snapshot() {
		topic, ok := b.armTopics[state.Name]
		if !ok {
			continue
		}
		state := state
		b.publish(Message{Topic: topic, Stamp: stamp, Arm: &state})
	}
	cycle := b.Task().Ticks()
	for _, io := range b.ioTopics {
		b.publish(Message{Topic: io.topic, Stamp: stamp, IO: &IOSample{Source: io.source, Signal: io.signal, Cycle: cycle}})
	}
}

func (b *Bridge) publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err == nil {
		err = b.publisher.Publish(msg.Topic, payload)
	}
	for _, fn := range b.onPublish {
		fn(msg.Topic, err)
	}
	if err != nil {
		if !b.failing.Swap(true) {
			b.logger.Warn("Bridge publish failed", zap.String("topic", msg.Topic), zap.Error(err))
		}
		return
	}
	if b.failing.Swap(false) {
		b.logger.Info("Bridge publish recovered", zap.String("topic", msg.Topic))
	}
	b.published.Add(1)
}
