// Package queue provides the in-process priority task queue used for
// background work: notification sends, workbook exports, average
// recomputations.
//
// Tasks are ordered by priority, then FIFO within the same priority, and
// executed by a bounded worker pool. A panicking or failing task never
// takes a worker down; the failure is logged and forwarded to the bug
// sink.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Priority orders task execution. Lower values run first.
type Priority int

const (
	Critical Priority = iota
	High
	Medium
	Low
	Background
)

// DefaultPriority is used when callers do not care.
const DefaultPriority = Medium

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 3

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("queue: stopped")

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	case Background:
		return "background"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p >= Critical && p <= Background
}

// Task is a unit of queued work. A non-nil error marks the task failed.
type Task func(ctx context.Context) error

// BugSink receives task failures for persistence. May be nil.
type BugSink func(ctx context.Context, component, message string)

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	Submitted    uint64
	Completed    uint64
	Failed       uint64
	Depth        int
	MeanDuration time.Duration
}

type item struct {
	id       string
	name     string
	priority Priority
	seq      uint64
	task     Task
}

// itemHeap orders by (priority, seq): strict priority, FIFO within a level.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(*item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Metrics holds the Prometheus collectors for one queue.
type Metrics struct {
	Depth    prometheus.Gauge
	Tasks    *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics builds and registers the queue collectors. reg may be nil to
// skip registration (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "task_queue_depth",
			Help: "Number of tasks waiting in the priority queue.",
		}),
		Tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "task_queue_tasks_total",
			Help: "Tasks processed by the queue, labeled by outcome.",
		}, []string{"outcome", "priority"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "task_queue_duration_seconds",
			Help:    "Task execution time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Depth, m.Tasks, m.Duration)
	}
	return m
}

// Queue is a priority task queue with a fixed worker pool. Construct with
// New and release with Stop.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	heap    itemHeap
	seq     uint64
	stopped bool

	submitted uint64
	completed uint64
	failed    uint64
	totalRun  time.Duration

	workers int
	wg      sync.WaitGroup
	bugs    BugSink
	metrics *Metrics
}

// New starts a queue with the given worker count (<=0 means
// DefaultWorkers). bugs and metrics may be nil.
func New(workers int, bugs BugSink, metrics *Metrics) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	q := &Queue{workers: workers, bugs: bugs, metrics: metrics}
	q.cond = sync.NewCond(&q.mu)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues a task and returns its id. An invalid priority falls
// back to DefaultPriority. name labels the task in logs and bug reports.
func (q *Queue) Submit(name string, p Priority, task Task) (string, error) {
	if !p.Valid() {
		p = DefaultPriority
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return "", ErrStopped
	}
	q.seq++
	it := &item{id: uuid.NewString(), name: name, priority: p, seq: q.seq, task: task}
	heap.Push(&q.heap, it)
	q.submitted++
	if q.metrics != nil {
		q.metrics.Depth.Set(float64(q.heap.Len()))
	}
	q.cond.Signal()
	return it.id, nil
}

// Stop stops intake and waits for the workers to drain the queue, or for
// ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of queue activity.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Stats{
		Submitted: q.submitted,
		Completed: q.completed,
		Failed:    q.failed,
		Depth:     q.heap.Len(),
	}
	if runs := q.completed + q.failed; runs > 0 {
		s.MeanDuration = q.totalRun / time.Duration(runs)
	}
	return s
}

// worker pops and runs tasks until the queue is stopped and drained.
func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for q.heap.Len() == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.heap.Len() == 0 && q.stopped {
			q.mu.Unlock()
			return
		}
		it := heap.Pop(&q.heap).(*item)
		if q.metrics != nil {
			q.metrics.Depth.Set(float64(q.heap.Len()))
		}
		q.mu.Unlock()

		q.run(it)
	}
}

// run executes one task with panic containment and records the outcome.
func (q *Queue) run(it *item) {
	start := time.Now()
	err := q.execute(it)
	elapsed := time.Since(start)

	q.mu.Lock()
	q.totalRun += elapsed
	if err != nil {
		q.failed++
	} else {
		q.completed++
	}
	q.mu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "failed"
		log.Error().
			Err(err).
			Str("task_id", it.id).
			Str("task", it.name).
			Str("priority", it.priority.String()).
			Msg("queued task failed")
		if q.bugs != nil {
			q.bugs(context.Background(), "queue", fmt.Sprintf("task %s (%s): %v", it.name, it.id, err))
		}
	}
	if q.metrics != nil {
		q.metrics.Tasks.WithLabelValues(outcome, it.priority.String()).Inc()
		q.metrics.Duration.Observe(elapsed.Seconds())
	}
}

// execute runs the task, converting panics into errors.
func (q *Queue) execute(it *item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return it.task(context.Background())
}
