// Package sidechannel runs the best-effort calls that follow a primary write.
// A task's failure is observable through its Outcome, the
// shopease_best_effort_total metric and the log, and never fails the caller.
package sidechannel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"shopease/internal/config"
	"shopease/internal/monitor"
	"shopease/pkg/log"
	"shopease/pkg/queue"
)

// Topic carries async tasks on the memory queue
const Topic = "side_effects"

// Task names
const (
	TaskOrderStatus  = "order_status"
	TaskNotification = "notification"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusQueued    = "queued"
)

// Outcome of one best-effort task as seen by the caller
type Outcome struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Succeeded reports whether the task ran and returned no error
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Task is the queued form of a run
type Task struct {
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

// Handler executes one task payload
type Handler func(ctx context.Context, payload json.RawMessage) error

// Runner dispatches named tasks inline or through the queue
type Runner struct {
	mode    string
	timeout time.Duration
	queue   queue.MessageQueue
	metrics *monitor.Metrics

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRunner q may be nil, in which case async mode degrades to sync
func NewRunner(cfg config.SideEffectConfig, q queue.MessageQueue, metrics *monitor.Metrics) *Runner {
	mode := cfg.Mode
	if mode != config.SideEffectAsync || q == nil {
		mode = config.SideEffectSync
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		mode:     mode,
		timeout:  timeout,
		queue:    q,
		metrics:  metrics,
		handlers: make(map[string]Handler),
	}
}

// Mode returns sync or async
func (r *Runner) Mode() string {
	return r.mode
}

// Register binds name to h, replacing any earlier handler
func (r *Runner) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Runner) handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Run executes or enqueues task name with payload. The caller's cancellation does
// not reach the task.
func (r *Runner) Run(ctx context.Context, name string, payload interface{}) Outcome {
	data, err := json.Marshal(payload)
	if err != nil {
		return r.finish(name, fmt.Errorf("encode payload: %w", err))
	}

	if r.mode == config.SideEffectAsync {
		return r.enqueue(ctx, Task{Name: name, Payload: data, QueuedAt: time.Now()})
	}
	return r.finish(name, r.execute(context.WithoutCancel(ctx), name, data))
}

func (r *Runner) enqueue(ctx context.Context, task Task) Outcome {
	data, err := json.Marshal(task)
	if err == nil {
		err = r.queue.Publish(context.WithoutCancel(ctx), Topic, data)
	}
	if err != nil {
		return r.finish(task.Name, fmt.Errorf("enqueue: %w", err))
	}

	r.metrics.RecordBestEffort(task.Name, StatusQueued)
	return Outcome{Name: task.Name, Status: StatusQueued}
}

func (r *Runner) execute(ctx context.Context, name string, payload json.RawMessage) error {
	h, ok := r.handler(name)
	if !ok {
		return fmt.Errorf("no handler registered for %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return h(ctx, payload)
}

func (r *Runner) finish(name string, err error) Outcome {
	if err != nil {
		r.metrics.RecordBestEffort(name, StatusFailed)
		log.WithFields(map[string]interface{}{
			"task":  name,
			"error": err.Error(),
		}).Warn("Best-effort task failed")
		return Outcome{Name: name, Status: StatusFailed, Error: err.Error()}
	}

	r.metrics.RecordBestEffort(name, StatusSucceeded)
	return Outcome{Name: name, Status: StatusSucceeded}
}
