package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/amqp"
)

type acker struct {
	mu                        sync.Mutex
	acked, requeued, rejected int
}

func (a *acker) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *acker) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued++
	} else {
		a.rejected++
	}
	return nil
}

func (a *acker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

type processorFunc func(ctx context.Context, msg *amqp.RenderJobMessage) error

func (f processorFunc) ProcessJob(ctx context.Context, msg *amqp.RenderJobMessage) error {
	return f(ctx, msg)
}

// sliceConsumer hands out fixed messages, then blocks until ctx ends.
type sliceConsumer struct {
	msgs  []*amqp.RenderJobMessage
	acker *acker
}

func (c *sliceConsumer) ConsumeRenderJobs(ctx context.Context, handler amqp.RenderHandler) error {
	for i, m := range c.msgs {
		handler(ctx, amqp.NewRenderDelivery(m, amqp091.Delivery{Acknowledger: c.acker, DeliveryTag: uint64(i + 1)}))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRenderWorker_Outcomes(t *testing.T) {
	proc := processorFunc(func(_ context.Context, msg *amqp.RenderJobMessage) error {
		switch msg.InvoiceID {
		case "missing":
			return amqp.Permanent(errors.New("invoice not found"))
		case "locked":
			return errors.New("database is locked")
		case "panic":
			panic("nil template")
		}
		return nil
	})
	ack := &acker{}
	consumer := &sliceConsumer{acker: ack, msgs: []*amqp.RenderJobMessage{
		amqp.NewRenderJobMessage("j1", "INV-1", "t"),
		amqp.NewRenderJobMessage("j2", "missing", "t"),
		amqp.NewRenderJobMessage("j3", "locked", "t"),
		amqp.NewRenderJobMessage("j4", "panic", "t"),
		amqp.NewRenderJobMessage("", "INV-1", "t"),
	}}

	w := NewRenderWorker(proc, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	require.Eventually(t, func() bool {
		st := w.Stats()
		return st.Succeeded+st.Failed+st.Requeued == 5
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, Stats{Succeeded: 1, Failed: 3, Requeued: 1}, w.Stats())
	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 3, ack.rejected)
	assert.Equal(t, 1, ack.requeued)
}

func TestRenderWorker_BoundedConcurrency(t *testing.T) {
	var running, peak int32
	release := make(chan struct{})
	proc := processorFunc(func(context.Context, *amqp.RenderJobMessage) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	})

	w := NewRenderWorker(proc, 2, nil)
	ack := &acker{}
	ctx := context.Background()

	dispatched := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			w.Dispatch(ctx, amqp.NewRenderDelivery(amqp.NewRenderJobMessage("j", "INV", "t"),
				amqp091.Delivery{Acknowledger: ack, DeliveryTag: uint64(i + 1)}))
		}
		close(dispatched)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 2 }, time.Second, 5*time.Millisecond)
	select {
	case <-dispatched:
		t.Fatal("dispatch should block while both slots are busy")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-dispatched
	w.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
	assert.Equal(t, int64(5), w.Stats().Succeeded)
}

func TestRenderWorker_DispatchCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	w := NewRenderWorker(processorFunc(func(context.Context, *amqp.RenderJobMessage) error {
		<-block
		return nil
	}), 1, nil)
	ack := &acker{}

	w.Dispatch(context.Background(), amqp.NewRenderDelivery(amqp.NewRenderJobMessage("j1", "INV", "t"), amqp091.Delivery{Acknowledger: ack}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Dispatch(ctx, amqp.NewRenderDelivery(amqp.NewRenderJobMessage("j2", "INV", "t"), amqp091.Delivery{Acknowledger: ack}))

	assert.Equal(t, int64(1), w.Stats().Requeued)
	ack.mu.Lock()
	assert.Equal(t, 1, ack.requeued)
	ack.mu.Unlock()
}
