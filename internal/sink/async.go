package sink

import (
	"sync"

	"github.com/nao1215/fipecrawler/internal/model"
)

type event func(Sink)

// Async queues events and delivers them to the wrapped sink on its own
// goroutine, in the order they were received. The queue is unbounded so
// producers never block.
type Async struct {
	next Sink

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []event
	closed bool

	done chan struct{}
	once sync.Once
	err  error
}

var _ Sink = (*Async)(nil)

// NewAsync starts the dispatcher for next.
func NewAsync(next Sink) *Async {
	a := &Async{
		next: next,
		done: make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.dispatch()
	return a
}

func (a *Async) dispatch() {
	defer close(a.done)
	for {
		a.mu.Lock()
		for len(a.queue) == 0 && !a.closed {
			a.cond.Wait()
		}
		if len(a.queue) == 0 {
			a.mu.Unlock()
			return
		}
		batch := a.queue
		a.queue = nil
		a.mu.Unlock()

		for _, e := range batch {
			e(a.next)
		}
	}
}

func (a *Async) push(e event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.queue = append(a.queue, e)
	a.cond.Signal()
}

// OnRecord implements Sink.
func (a *Async) OnRecord(record model.VehicleRecord) {
	a.push(func(s Sink) { s.OnRecord(record) })
}

// OnProgress implements Sink.
func (a *Async) OnProgress(stage model.Stage, current, total int) {
	a.push(func(s Sink) { s.OnProgress(stage, current, total) })
}

// OnCurrentVehicle implements Sink.
func (a *Async) OnCurrentVehicle(brand, modelName, year string) {
	a.push(func(s Sink) { s.OnCurrentVehicle(brand, modelName, year) })
}

// OnLog implements Sink.
func (a *Async) OnLog(message string, level model.LogLevel) {
	a.push(func(s Sink) { s.OnLog(message, level) })
}

// Close delivers every queued event, stops the dispatcher and closes the
// wrapped sink. Events sent after Close are dropped.
func (a *Async) Close() error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.cond.Signal()
		a.mu.Unlock()

		<-a.done
		a.err = Close(a.next)
	})
	return a.err
}
