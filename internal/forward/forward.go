// Package forward publishes captured faults to NATS JetStream.
package forward

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/fault"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/retry"
)

// ErrPublishFailed is returned when a fault could not be forwarded.
var ErrPublishFailed = ferrors.TransportError("failed to publish fault").Build()

// StreamName is the JetStream stream created by Connect.
const StreamName = "FAULTLINE"

// Publisher is the part of jetstream.JetStream the forwarder uses.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Forwarder is the fault.captured subscriber publishing JSON fault records
// under <subject>.<group>.
type Forwarder struct {
	pub     Publisher
	subject string
	timeout time.Duration
	policy  retry.Policy
	conn    *nats.Conn
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithRetry retries failed publishes according to p.
func WithRetry(p retry.Policy) Option { return func(f *Forwarder) { f.policy = p } }

// WithTimeout bounds each publish attempt.
func WithTimeout(d time.Duration) Option { return func(f *Forwarder) { f.timeout = d } }

// New returns a forwarder on an existing publisher. Without WithRetry a
// publish is attempted once.
func New(pub Publisher, subject string, opts ...Option) *Forwarder {
	f := &Forwarder{pub: pub, subject: subject, timeout: 5 * time.Second, policy: retry.None()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials url and ensures a stream covering subject exists.
func Connect(ctx context.Context, url, subject string, opts ...Option) (*Forwarder, error) {
	conn, err := nats.Connect(url, nats.Name("faultline"))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTransport, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryTransport, "failed to create JetStream context").Build()
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Captured faults",
		Subjects:    []string{subject + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryTransport, "failed to create fault stream").Build()
	}
	slog.Info("NATS fault forwarding enabled", "url", url, "subject", subject)

	f := New(js, subject, opts...)
	f.conn = conn
	return f, nil
}

// Subject returns the subject a fault is published on.
func (f *Forwarder) Subject(c *fault.Context) string {
	return f.subject + "." + c.Group().Primary()
}

// Handle publishes c.
func (f *Forwarder) Handle(c *fault.Context) error {
	data, err := json.Marshal(c.Record())
	if err != nil {
		return ErrPublishFailed.Wrap(err)
	}
	subject := f.Subject(c)
	err = f.policy.Do(context.Background(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		_, err := f.pub.Publish(ctx, subject, data)
		return err
	})
	if err != nil {
		return ErrPublishFailed.WithContext("subject", subject).Wrap(err)
	}
	return nil
}

// Handler returns the forwarder as a bus handler.
func (f *Forwarder) Handler() callable.Callable[*fault.Context, error] {
	return callable.Method(f, "Handle", f.Handle)
}

// Close drains the connection opened by Connect.
func (f *Forwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Drain()
}
