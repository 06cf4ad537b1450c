package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// DefaultSubject is the subject prefix when none is configured.
const DefaultSubject = "hostwatch.alerts"

// natsConnectTimeout bounds the initial dial.
const natsConnectTimeout = 10 * time.Second

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events as JSON to <subject>.<kind>.
type NATSSink struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

// NewNATSSink publishes through pub.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	subject = strings.TrimSuffix(subject, ".")
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

// DialNATS connects to url and returns a sink owning the connection.
// nats.go reconnects on its own; disconnects and reconnects are logged.
func DialNATS(url, subject string, l logger.Logger) (*NATSSink, error) {
	log := logger.With(l, "[nats]")
	conn, err := nats.Connect(url,
		nats.Name("hostwatch"),
		nats.Timeout(natsConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't connect to NATS at "+url,
			"Check nats.url in the config, or leave it empty to disable publishing")
	}
	s := NewNATSSink(conn, subject)
	s.conn = conn
	return s, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject an event of the given kind is published to.
func (s *NATSSink) Subject(kind string) string {
	return s.subject + "." + kind
}

// Send implements Sink.
func (s *NATSSink) Send(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrResponse, "Couldn't encode alert", "")
	}
	if err := s.pub.Publish(s.Subject(e.Kind), data); err != nil {
		return errors.WrapWithCode(err, errors.ErrConnect, "Couldn't publish alert to NATS", "")
	}
	return nil
}

// Close drains the owned connection, if any.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
