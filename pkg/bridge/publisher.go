package bridge

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Publisher delivers encoded messages on the external bus.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close() error
}

// Subject maps a slash separated topic onto a NATS subject:
// "/dvrk/PSM1/state" becomes "dvrk.PSM1.state".
func Subject(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// FlushTimeout bounds how long Close waits for the server to acknowledge
// the messages already published.
const FlushTimeout = 2 * time.Second

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
	IsClosed() bool
}

type NATSPublisher struct {
	conn   natsConn
	logger *zap.Logger
}

func NewNATSPublisher(url, clientName string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to NATS at %s", url)
	}
	logger.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) Publish(topic string, payload []byte) error {
	return p.conn.Publish(Subject(topic), payload)
}

// Close flushes pending messages and closes the connection before
// returning, so nothing published during the last period is lost.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	err := p.conn.FlushTimeout(FlushTimeout)
	p.conn.Close()
	if err != nil {
		return errors.Wrap(err, "flushing NATS connection")
	}
	return nil
}

// LogPublisher stands in for a bus when none is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(topic string, payload []byte) error {
	p.logger.Debug("Publish", zap.String("topic", topic), zap.ByteString("payload", payload))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
