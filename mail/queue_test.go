package mail

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	durable    bool
	published  []amqp.Publishing
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 10)}
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.declared = append(c.declared, name)
	c.durable = durable
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Qos(int, int, bool) error { return nil }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

// fakeAck records the outcome of each delivery.
type fakeAck struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  map[uint64]bool
	dropped []uint64
	done    chan struct{}
}

func newFakeAck() *fakeAck {
	return &fakeAck{nacked: map[uint64]bool{}, done: make(chan struct{}, 10)}
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	a.acked = append(a.acked, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	a.nacked[tag] = requeue
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAck) Reject(tag uint64, _ bool) error {
	a.mu.Lock()
	a.dropped = append(a.dropped, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAck) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}
}

func TestQueue_Send(t *testing.T) {
	ch := newFakeChannel()
	q, err := NewQueue(ch, "")
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultQueueName}, ch.declared)
	assert.True(t, ch.durable)

	require.NoError(t, q.Send(context.Background(), &Message{To: "a@b.co", Subject: "s", HTML: "<p>x</p>"}))
	require.Len(t, ch.published, 1)

	pub := ch.published[0]
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, "application/json", pub.ContentType)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.Body, &msg))
	assert.Equal(t, "a@b.co", msg.To)

	assert.ErrorIs(t, q.Send(context.Background(), &Message{}), ErrNoRecipient)

	require.NoError(t, q.Close())
	assert.True(t, ch.closed)
}

func TestQueue_Consume(t *testing.T) {
	ch := newFakeChannel()
	q, err := NewQueue(ch, "jobs")
	require.NoError(t, err)

	ack := newFakeAck()
	body, _ := json.Marshal(&Message{To: "ok@b.co"})
	failing, _ := json.Marshal(&Message{To: "fail@b.co"})

	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: failing}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: failing, Redelivered: true}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: []byte("{")}

	sender := SenderFunc(func(_ context.Context, msg *Message) error {
		if msg.To == "fail@b.co" {
			return errors.New("smtp: 451")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- q.Consume(ctx, sender, nil) }()

	ack.wait(t, 4)
	cancel()
	require.NoError(t, <-errc)

	ack.mu.Lock()
	defer ack.mu.Unlock()
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, map[uint64]bool{2: true, 3: false}, ack.nacked)
	assert.Equal(t, []uint64{4}, ack.dropped)
}

func TestQueue_ConsumeClosedChannel(t *testing.T) {
	ch := newFakeChannel()
	q, err := NewQueue(ch, "jobs")
	require.NoError(t, err)

	close(ch.deliveries)
	assert.Error(t, q.Consume(context.Background(), &LogSender{}, nil))
}
