// Package worker runs the asynchronous invoice render jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"bizledger/internal/amqp"
	"bizledger/internal/log"
)

// JobProcessor renders one job. *services.RenderService implements it.
type JobProcessor interface {
	ProcessJob(ctx context.Context, msg *amqp.RenderJobMessage) error
}

// Consumer delivers render jobs until ctx is cancelled. *amqp.Client
// implements it.
type Consumer interface {
	ConsumeRenderJobs(ctx context.Context, handler amqp.RenderHandler) error
}

// Stats counts processed deliveries.
type Stats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Requeued  int64 `json:"requeued"`
}

// RenderWorker processes render jobs with bounded concurrency.
type RenderWorker struct {
	processor JobProcessor
	sem       *semaphore.Weighted
	limit     int64
	logger    *log.Logger

	succeeded atomic.Int64
	failed    atomic.Int64
	requeued  atomic.Int64
}

func NewRenderWorker(processor JobProcessor, concurrency int, logger *log.Logger) *RenderWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RenderWorker{
		processor: processor,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		limit:     int64(concurrency),
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight jobs.
func (w *RenderWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Render worker started", "concurrency", w.limit)

	err := consumer.ConsumeRenderJobs(ctx, w.Dispatch)
	w.Wait()

	st := w.Stats()
	w.logger.Info("Render worker stopped",
		"succeeded", st.Succeeded,
		"failed", st.Failed,
		"requeued", st.Requeued)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Wait blocks until every dispatched job has finished.
func (w *RenderWorker) Wait() {
	_ = w.sem.Acquire(context.Background(), w.limit)
	w.sem.Release(w.limit)
}

// Dispatch blocks until a slot is free, then processes d in the background.
// Jobs keep running after ctx is cancelled so that shutdown does not leave
// half-finished renders.
func (w *RenderWorker) Dispatch(ctx context.Context, d *amqp.RenderDelivery) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		w.requeued.Add(1)
		_ = d.Done(err)
		return
	}
	jobCtx := context.WithoutCancel(ctx)
	go func() {
		defer w.sem.Release(1)
		w.handle(jobCtx, d)
	}()
}

func (w *RenderWorker) handle(ctx context.Context, d *amqp.RenderDelivery) {
	msg := d.Message
	logger := w.logger.With(
		log.FieldJobID, msg.JobID,
		log.FieldInvoiceID, msg.InvoiceID,
		log.FieldTemplateID, msg.TemplateID)

	start := time.Now()
	err := w.process(ctx, msg)
	dur := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		w.succeeded.Add(1)
		logger.InfoContext(ctx, "Render job processed", log.FieldDuration, dur)
	case amqp.IsPermanent(err):
		w.failed.Add(1)
		logger.WarnContext(ctx, "Render job failed permanently", log.FieldError, err, log.FieldDuration, dur)
	default:
		w.requeued.Add(1)
		logger.ErrorContext(ctx, "Render job failed, requeueing", log.FieldError, err, log.FieldDuration, dur)
	}

	if ackErr := d.Done(err); ackErr != nil {
		logger.ErrorContext(ctx, "Failed to acknowledge delivery", log.FieldError, ackErr)
	}
}

// process runs the job and turns a panic into a permanent failure so that a
// poison message cannot crash the worker or loop forever.
func (w *RenderWorker) process(ctx context.Context, msg *amqp.RenderJobMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = amqp.Permanent(fmt.Errorf("render job panicked: %v", r))
		}
	}()
	if msg.JobID == "" || msg.InvoiceID == "" {
		return amqp.Permanent(errors.New("render job without job or invoice id"))
	}
	return w.processor.ProcessJob(ctx, msg)
}

func (w *RenderWorker) Stats() Stats {
	return Stats{
		Succeeded: w.succeeded.Load(),
		Failed:    w.failed.Load(),
		Requeued:  w.requeued.Load(),
	}
}
