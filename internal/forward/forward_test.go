package forward

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/retry"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

type published struct {
	subject string
	payload []byte
}

type fakePublisher struct {
	msgs     []published
	err      error
	failures int
	attempts int
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.attempts++
	if f.err != nil {
		return nil, f.err
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("timeout")
	}
	f.msgs = append(f.msgs, published{subject, payload})
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func sealed(code severity.Code, msg string) *fault.Context {
	c := fault.New(code, msg).At("/app/x.go", 9).With(fault.DataFingerprint, "abc").Build()
	c.Seal()
	return c
}

func TestForwarder_PublishesRecordByGroup(t *testing.T) {
	pub := &fakePublisher{}
	f := New(pub, "faultline.faults")

	require.NoError(t, f.Handle(sealed(severity.CodeCoreError, "boom")))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "faultline.faults.fatal", pub.msgs[0].subject)

	var rec fault.Record
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &rec))
	assert.Equal(t, "boom", rec.Message)
	assert.Equal(t, "CORE_ERROR", rec.Label)
	assert.Equal(t, "abc", rec.Fingerprint)
	assert.Equal(t, 9, rec.Line)
}

func TestForwarder_PublishError(t *testing.T) {
	f := New(&fakePublisher{err: errors.New("no responders")}, "faultline.faults")
	err := f.Handle(sealed(severity.CodeDeprecated, "old"))
	require.ErrorIs(t, err, ErrPublishFailed)
	assert.Equal(t, "faultline.faults.deprecated", f.Subject(sealed(severity.CodeDeprecated, "old")))
}

func TestForwarder_RetriesTransientFailures(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	f := New(pub, "faultline.faults", WithRetry(retry.NewPolicy("fixed", time.Millisecond, time.Millisecond, 2)))

	require.NoError(t, f.Handle(sealed(severity.CodeWarning, "flaky")))
	assert.Equal(t, 3, pub.attempts)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "faultline.faults.warning", pub.msgs[0].subject)
}

func TestForwarder_SingleAttemptByDefault(t *testing.T) {
	pub := &fakePublisher{failures: 1}
	f := New(pub, "faultline.faults", WithTimeout(time.Second))

	require.ErrorIs(t, f.Handle(sealed(severity.CodeWarning, "flaky")), ErrPublishFailed)
	assert.Equal(t, 1, pub.attempts)
}

func TestForwarder_Handler(t *testing.T) {
	f := New(&fakePublisher{}, "s")
	assert.Equal(t, "(*forward.Forwarder).Handle", f.Handler().Describe())
	assert.NoError(t, f.Close())
}
