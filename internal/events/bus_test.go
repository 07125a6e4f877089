package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

func sealedFault() *fault.Context {
	c := fault.New(severity.CodeWarning, "w").With("k", "v").Build()
	c.Seal()
	return c
}

type collector struct{ got []*fault.Context }

func (c *collector) Handle(f *fault.Context) error {
	c.got = append(c.got, f)
	return nil
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var order []string
	add := func(name string) {
		_, err := b.Subscribe(TopicFaultCaptured, callable.Func(name, func(*fault.Context) error {
			order = append(order, name)
			return nil
		}))
		require.NoError(t, err)
	}
	add("first")
	add("second")
	add("third")

	require.NoError(t, b.Publish(TopicFaultCaptured, sealedFault()))
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, []string{"first", "second", "third"}, b.Handlers(TopicFaultCaptured))
}

func TestBus_AllVariantsDispatch(t *testing.T) {
	b := NewBus()
	col := &collector{}
	calls := 0
	count := func(*fault.Context) error { calls++; return nil }

	for _, h := range []Handler{
		callable.Method(col, "Handle", col.Handle),
		callable.Func("count", count),
		callable.Static("Metrics", "Observe", count),
		callable.Anonymous(count),
	} {
		_, err := b.Subscribe(TopicFaultCaptured, h)
		require.NoError(t, err)
	}

	c := sealedFault()
	require.NoError(t, b.Publish(TopicFaultCaptured, c))
	assert.Equal(t, 3, calls)
	require.Len(t, col.got, 1)
	assert.Same(t, c, col.got[0], "subscribers share the context by reference")
}

func TestBus_ErrorPropagatesAndStopsDelivery(t *testing.T) {
	b := NewBus()
	boom := errors.New("sink down")
	reached := false
	_, _ = b.Subscribe(TopicFaultCaptured, callable.Func("failing", func(*fault.Context) error { return boom }))
	_, _ = b.Subscribe(TopicFaultCaptured, callable.Func("later", func(*fault.Context) error { reached = true; return nil }))

	err := b.Publish(TopicFaultCaptured, sealedFault())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerFailed)
	assert.ErrorIs(t, err, boom)
	assert.False(t, reached)
}

func TestBus_PanicsPropagate(t *testing.T) {
	b := NewBus()
	_, _ = b.Subscribe(TopicFaultCaptured, callable.Anonymous(func(*fault.Context) error { panic("observer bug") }))
	assert.PanicsWithValue(t, "observer bug", func() {
		_ = b.Publish(TopicFaultCaptured, sealedFault())
	})
}

func TestBus_SubscribersCannotMutate(t *testing.T) {
	b := NewBus()
	_, _ = b.Subscribe(TopicFaultCaptured, callable.Func("mutator", func(c *fault.Context) error {
		c.Set("k", "changed")
		return nil
	}))
	var seen string
	_, _ = b.Subscribe(TopicFaultCaptured, callable.Func("observer", func(c *fault.Context) error {
		seen = c.String("k")
		return nil
	}))

	c := sealedFault()
	assert.Panics(t, func() { _ = b.Publish(TopicFaultCaptured, c) })
	assert.Equal(t, "v", c.String("k"))
	assert.Empty(t, seen, "delivery stops at the panicking subscriber")
}

func TestBus_RejectsUnsealedAndNil(t *testing.T) {
	b := NewBus()
	assert.ErrorIs(t, b.Publish(TopicFaultCaptured, nil), ErrNilContext)
	assert.ErrorIs(t, b.Publish(TopicFaultCaptured, fault.New(severity.CodeNotice, "n").Build()), ErrUnsealed)

	_, err := b.Subscribe(TopicFaultCaptured, callable.Closure[*fault.Context, error]{})
	assert.ErrorIs(t, err, ErrInvalidHandler)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	unsubscribe, err := b.Subscribe(TopicFaultCaptured, callable.Anonymous(func(*fault.Context) error { return nil }))
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount(TopicFaultCaptured))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount(TopicFaultCaptured))
	require.NoError(t, b.Publish("other.topic", sealedFault()))
}
