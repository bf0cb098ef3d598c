package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/health-correlation-server/internal/cache"
	"github.com/smukkama/health-correlation-server/internal/engine"
	"github.com/smukkama/health-correlation-server/internal/protocol"
)

// MessageSource is the broker surface the calculation consumer reads from.
// *Consumer implements it.
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// CalcConsumer consumes calculation messages and runs them through the
// engine pipeline on a bounded worker pool.
//
// Group offsets are per-partition watermarks, so a partition must never be
// committed past a request that has not reached a terminal state. Two rules
// enforce that: messages are sharded to workers by partition, so one
// partition is always processed serially and committed in offset order; and
// a store failure is retried in place, so the worker never moves past the
// failed offset. A request still in flight at shutdown stays uncommitted
// and the broker redelivers it.
type CalcConsumer struct {
	source   MessageSource
	pipeline *engine.Pipeline
	cache    *cache.CorrelationCache

	jobQueues    []chan kafka.Message
	retryBackoff time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCalcConsumer creates a calculation consumer. The cache may be nil when
// no read cache is deployed.
func NewCalcConsumer(source MessageSource, pipeline *engine.Pipeline, corrCache *cache.CorrelationCache, workerCount, jobQueueSize int) *CalcConsumer {
	if workerCount <= 0 {
		workerCount = 5
	}
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	queues := make([]chan kafka.Message, workerCount)
	for i := range queues {
		queues[i] = make(chan kafka.Message, jobQueueSize)
	}

	return &CalcConsumer{
		source:       source,
		pipeline:     pipeline,
		cache:        corrCache,
		jobQueues:    queues,
		retryBackoff: 5 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins consuming and dispatching to workers.
func (cc *CalcConsumer) Start(ctx context.Context) {
	for i, q := range cc.jobQueues {
		cc.wg.Add(1)
		go cc.worker(ctx, i, q)
	}

	cc.wg.Add(1)
	go cc.fetchLoop(ctx)

	fmt.Printf("Calculation consumer started with %d workers (queue size %d)\n",
		len(cc.jobQueues), cap(cc.jobQueues[0]))
}

// Stop stops the consumer. Jobs still queued or in flight are abandoned
// uncommitted; the broker redelivers them to the next session.
func (cc *CalcConsumer) Stop() {
	close(cc.stopCh)
	cc.wg.Wait()
}

func (cc *CalcConsumer) fetchLoop(ctx context.Context) {
	defer cc.wg.Done()
	defer func() {
		for _, q := range cc.jobQueues {
			close(q)
		}
	}()

	for {
		select {
		case <-cc.stopCh:
			return
		default:
		}

		msg, err := cc.source.Consume(ctx)
		if err != nil {
			select {
			case <-cc.stopCh:
				return
			case <-ctx.Done():
				return
			default:
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
		}

		// All messages from one partition go to one worker, keeping the
		// partition serial. Blocking send: a full queue applies
		// backpressure to the fetch loop instead of dropping requests.
		queue := cc.jobQueues[int(msg.Partition)%len(cc.jobQueues)]
		select {
		case queue <- msg:
		case <-cc.stopCh:
			return
		}
	}
}

func (cc *CalcConsumer) worker(ctx context.Context, id int, jobs <-chan kafka.Message) {
	defer cc.wg.Done()

	for msg := range jobs {
		if ctx.Err() != nil {
			// Shutting down: drain without processing; the uncommitted
			// offsets are redelivered.
			continue
		}
		cc.processMessage(ctx, id, msg)
	}
}

func (cc *CalcConsumer) processMessage(ctx context.Context, workerID int, msg kafka.Message) {
	calcMsg, err := protocol.DecodeCalculationMessage(msg.Value)
	if err != nil {
		// Malformed message: commit so it is not redelivered forever.
		fmt.Printf("Worker %d: failed to decode message (partition=%d offset=%d): %v\n",
			workerID, msg.Partition, msg.Offset, err)
		cc.commit(ctx, msg)
		return
	}

	payload := &calcMsg.Payload
	if err := payload.Validate(); err != nil {
		fmt.Printf("Worker %d: rejecting invalid payload (request=%s): %v\n",
			workerID, calcMsg.RequestID, err)
		cc.commit(ctx, msg)
		return
	}

	for {
		result, err := cc.pipeline.Run(ctx, payload)
		switch result.Outcome {
		case engine.OutcomePersisted:
			fmt.Printf("Worker %d: request %s persisted (user=%d r=%.4f p=%.4f days=%d)\n",
				workerID, calcMsg.RequestID, payload.UserID,
				result.Correlation.Coefficient, result.Correlation.PValue, result.Correlation.SampleDays)

			if cc.cache != nil {
				if err := cc.cache.Invalidate(ctx, payload.UserID,
					string(payload.Data.XDataType), string(payload.Data.YDataType)); err != nil {
					fmt.Printf("Worker %d: failed to invalidate cache for request %s: %v\n",
						workerID, calcMsg.RequestID, err)
				}
			}
			cc.commit(ctx, msg)
			return

		case engine.OutcomeSkipped:
			fmt.Printf("Worker %d: request %s skipped: %s\n", workerID, calcMsg.RequestID, result.Reason)
			cc.commit(ctx, msg)
			return

		case engine.OutcomeFailed:
			// Retry in place so the partition is never committed past this
			// offset; every pipeline stage is idempotent under repetition.
			if ctx.Err() != nil {
				fmt.Printf("Worker %d: request %s failed during shutdown, leaving for redelivery: %v\n",
					workerID, calcMsg.RequestID, err)
				return
			}
			fmt.Printf("Worker %d: request %s failed, retrying in %s: %v\n",
				workerID, calcMsg.RequestID, cc.retryBackoff, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(cc.retryBackoff):
			}
		}
	}
}

func (cc *CalcConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := cc.source.Commit(ctx, msg); err != nil {
		fmt.Printf("Failed to commit offset (partition=%d offset=%d): %v\n",
			msg.Partition, msg.Offset, err)
	}
}
