package sidechannel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"shopease/pkg/log"
	"shopease/pkg/queue"
)

// Consumer drains queued tasks with a fixed number of workers
type Consumer struct {
	runner  *Runner
	queue   queue.MessageQueue
	workers int
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewConsumer creates a task consumer
func NewConsumer(runner *Runner, q queue.MessageQueue, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		runner:  runner,
		queue:   q,
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start starts the workers
func (c *Consumer) Start(ctx context.Context) {
	log.WithFields(map[string]interface{}{
		"workers": c.workers,
		"topic":   Topic,
	}).Info("Starting side effect consumer")

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.loop(ctx)
	}
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
		data, err := c.queue.Consume(consumeCtx, Topic)
		cancel()

		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, queue.ErrQueueClosed), errors.Is(err, context.Canceled):
				return
			}
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Error("Failed to consume side effect")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		c.handle(ctx, data)
	}
}

func (c *Consumer) handle(ctx context.Context, data []byte) {
	if s, ok := c.queue.(interface{ Stats() queue.Stats }); ok {
		c.runner.metrics.UpdateQueueSize(Topic, s.Stats().Pending[Topic])
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Dropping malformed side effect")
		return
	}

	c.runner.finish(task.Name, c.runner.execute(context.WithoutCancel(ctx), task.Name, task.Payload))
}

// Stop signals the workers and waits for in-flight tasks
func (c *Consumer) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	log.Info("Side effect consumer stopped")
}
