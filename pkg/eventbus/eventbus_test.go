package eventbus

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type changed struct {
	value string
}

type other struct{}

func TestPublisher_DispatchesByArgumentType(t *testing.T) {
	bus := NewEventPublisher(logrus.New())
	var got []string
	bus.Subscribe(func(e *changed) { got = append(got, e.value) })
	bus.Subscribe(func(e *other) { t.Error("should not be called") })

	bus.Publish(&changed{value: "site"})

	require.Equal(t, []string{"site"}, got)
}

func TestPublisher_LogsWhenNoSubscriberMatches(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)

	bus := NewEventPublisher(log)
	bus.Subscribe(func(e *other) {})
	bus.Publish(&changed{value: "x"})

	require.True(t, strings.Contains(buf.String(), "eventbus.Publish: no matching subscribers"), buf.String())
}

func TestPublisher_RecoversHandlerPanic(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	bus := NewEventPublisher(log)
	calls := 0
	bus.Subscribe(func(e *changed) { panic("boom") })
	bus.Subscribe(func(e *changed) { calls++ })

	require.NotPanics(t, func() { bus.Publish(&changed{}) })
	require.Equal(t, 1, calls)
	require.Contains(t, buf.String(), "panicked")
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	bus := NewEventPublisher(nil)
	h := func(e *changed) {}
	bus.Subscribe(h)
	bus.Subscribe(func(e *other) {})
	require.Equal(t, 2, bus.SubscribersCount())

	bus.Unsubscribe(h)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	require.Equal(t, 0, bus.SubscribersCount())
}

func TestPublisher_SubscribeRejectsNonFunc(t *testing.T) {
	bus := NewEventPublisher(nil)
	require.Panics(t, func() { bus.Subscribe("nope") })
}

func TestMatchSignature(t *testing.T) {
	require.True(t, MatchSignature(func(e *changed) {}, []interface{}{&changed{}}))
	require.True(t, MatchSignature(func(e *changed) {}, []interface{}{nil}))
	require.False(t, MatchSignature(func(e changed) {}, []interface{}{nil}))
	require.False(t, MatchSignature(func(a, b *changed) {}, []interface{}{&changed{}}))
	require.False(t, MatchSignature(42, []interface{}{&changed{}}))
}
