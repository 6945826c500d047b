package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Task is one pending marketplace scrape. Priority orders tasks; higher
// values are popped first.
type Task struct {
	ID          string
	URL         string
	Platform    string
	ScraperType string
	MaxProducts int
	Priority    int
	Retries     int
	CreatedAt   time.Time
}

type Queue interface {
	Push(task *Task) error
	Pop(ctx context.Context) (*Task, error)
	Size() int
	Close() error
}

type InMemoryQueue struct {
	tasks  []*Task
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

func NewInMemoryQueue() *InMemoryQueue {
	q := &InMemoryQueue{
		tasks: make([]*Task, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *InMemoryQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.tasks = append(q.tasks, task)
	q.sortByPriority()
	q.cond.Signal()

	return nil
}

// Pop blocks until a task is available, the queue is closed, or ctx is done.
func (q *InMemoryQueue) Pop(ctx context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Broadcast rather than Signal on cancellation: several Pops can be
	// parked on the same cond, and each must wake to recheck its own ctx.
	stop := context.AfterFunc(ctx, func() {
		q.cond.Broadcast()
	})
	defer stop()

	for len(q.tasks) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.closed && len(q.tasks) == 0 {
		return nil, ErrQueueClosed
	}

	if len(q.tasks) == 0 {
		return nil, ErrQueueEmpty
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]

	return task, nil
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()

	return nil
}

func (q *InMemoryQueue) sortByPriority() {
	for i := 0; i < len(q.tasks)-1; i++ {
		for j := 0; j < len(q.tasks)-i-1; j++ {
			if q.tasks[j].Priority < q.tasks[j+1].Priority {
				q.tasks[j], q.tasks[j+1] = q.tasks[j+1], q.tasks[j]
			}
		}
	}
}
