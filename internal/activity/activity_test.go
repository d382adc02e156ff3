package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	mu   sync.Mutex
	recs []Record
	err  error
}

func (s *memorySink) Send(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func TestDispatcher_RecordDeliveredToAllSinks(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	d := NewDispatcher(zap.NewNop().Sugar(), 8, 2, a, b)

	d.Record("42", "User Registered", map[string]string{"email": "a@x.com"})
	d.Record("42", "User Login Attempt", nil)
	d.Close()

	require.Len(t, a.recs, 2)
	require.Len(t, b.recs, 2)
	assert.NotEmpty(t, a.recs[0].ID)
	assert.Equal(t, "42", a.recs[0].UserID)
	assert.NotNil(t, a.recs[1].ExtraData)
}

func TestDispatcher_SinkFailureSwallowed(t *testing.T) {
	bad := &memorySink{err: errors.New("sink down")}
	good := &memorySink{}
	d := NewDispatcher(zap.NewNop().Sugar(), 4, 1, bad, good)

	d.Record("1", "User Get All Events Attempt", nil)
	d.Close()

	assert.Len(t, good.recs, 1)
}

func TestDispatcher_GoRunsTasks(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 4, 1)
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		d.Go("count", func(context.Context) error {
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		})
	}
	d.Go("fails", func(context.Context) error { return errors.New("nope") })
	d.Close()
	assert.Equal(t, 3, ran)
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 1, 1)
	d.Close()
	d.Close()

	called := false
	d.Go("late", func(context.Context) error { called = true; return nil })
	assert.False(t, called)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	d.Go("blocker", func(context.Context) error { close(started); <-block; return nil })
	<-started

	d.Go("queued", func(context.Context) error { return nil })
	dropped := true
	d.Go("overflow", func(context.Context) error { dropped = false; return nil })

	close(block)
	d.Close()
	assert.True(t, dropped)
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func TestAMQPSink_Send(t *testing.T) {
	ch := &fakeChannel{}
	s := &AMQPSink{channel: ch}

	rec := Record{ID: "r1", UserID: "7", Activity: "User Buy Ticket Attempt", ExtraData: map[string]string{"event_id": "3"}}
	require.NoError(t, s.Send(context.Background(), rec))

	assert.Equal(t, ExchangeName, ch.exchange)
	assert.Equal(t, RoutingKey, ch.key)
	assert.Equal(t, "r1", ch.msg.MessageId)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)

	var got Record
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, "3", got.ExtraData["event_id"])
	assert.NoError(t, s.Close())
}
