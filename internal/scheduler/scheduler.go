package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func() error
}

// Scheduler is a bounded single-worker task queue. The journal uses it for
// write-behind recording, so installing a document version never waits on
// sqlite.
type Scheduler struct {
	queue   chan Task
	stop    chan struct{}
	wg      sync.WaitGroup // pending and in-flight tasks
	tickers sync.WaitGroup // Every goroutines
	once    sync.Once
	log     commonlog.Logger
}

// New creates a scheduler with the given queue capacity.
func New(queueSize int) *Scheduler {
	return &Scheduler{
		queue: make(chan Task, queueSize),
		stop:  make(chan struct{}),
		log:   commonlog.GetLogger("scheduler"),
	}
}

// Start launches the worker loop.
func (s *Scheduler) Start() {
	go func() {
		for {
			select {
			case task, ok := <-s.queue:
				if !ok {
					return
				}
				s.run(task)
			case <-s.stop:
				for task := range s.queue {
					s.run(task)
				}
				return
			}
		}
	}()
}

func (s *Scheduler) run(task Task) {
	defer s.wg.Done()
	if err := task.Run(); err != nil {
		s.log.Errorf("task %s failed: %s", task.Name, err.Error())
	}
}

// Enqueue submits a task without blocking. When the queue is full the task
// is dropped and the drop is logged; callers that cannot tolerate drops
// must size the queue accordingly.
func (s *Scheduler) Enqueue(task Task) bool {
	s.wg.Add(1)
	select {
	case s.queue <- task:
		return true
	default:
		s.wg.Done()
		s.log.Warningf("queue full, dropped task %s", task.Name)
		return false
	}
}

// Every enqueues a task on a fixed interval until the scheduler stops.
func (s *Scheduler) Every(interval time.Duration, task Task) {
	s.tickers.Add(1)
	go func() {
		defer s.tickers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Enqueue(task)
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop drains the queue, waits for in-flight tasks and shuts the worker
// down. The queue is only closed once every Every goroutine has exited, so
// a periodic task racing the shutdown cannot send on a closed channel.
// Direct Enqueue calls must not happen after Stop.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.tickers.Wait()
		close(s.queue)
	})
	s.wg.Wait()
}
