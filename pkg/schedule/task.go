// Package schedule runs cancellable repeating tasks.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Func is one tick of a task. Errors are logged and the task keeps running.
type Func func(ctx context.Context) error

// Task is a repeating job on its own goroutine. Ticks of one task never overlap;
// a slow tick delays the next one.
type Task struct {
	name     string
	interval time.Duration
	fn       Func
	cancel   context.CancelFunc
	done     chan struct{}
	kick     chan struct{}
	stopOnce sync.Once
}

// Every starts fn immediately and then once per interval until ctx ends or Stop is called.
func Every(ctx context.Context, name string, interval time.Duration, fn Func) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		cancel:   cancel,
		done:     make(chan struct{}),
		kick:     make(chan struct{}, 1),
	}
	go t.loop(ctx)
	return t
}

func (t *Task) loop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		t.run(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-t.kick:
			ticker.Reset(t.interval)
		}
	}
}

func (t *Task) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := t.fn(ctx); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("task", t.name).Msg("scheduled task failed")
	}
}

// Trigger runs the task as soon as the current tick (if any) finishes.
func (t *Task) Trigger() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Stop cancels the task and waits for the running tick to return.
func (t *Task) Stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}

// Done is closed once the task has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Name() string { return t.name }

// Group owns a set of named tasks. Once StopAll has run, Start is a no-op.
type Group struct {
	startMu sync.Mutex
	mu      sync.Mutex
	tasks   map[string]*Task
	stopped bool
}

func NewGroup() *Group {
	return &Group{tasks: make(map[string]*Task)}
}

// Start runs a task under name, stopping any previous task with that name first.
// It returns nil when the group has been stopped.
func (g *Group) Start(ctx context.Context, name string, interval time.Duration, fn Func) *Task {
	g.startMu.Lock()
	defer g.startMu.Unlock()
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return nil
	}
	old := g.tasks[name]
	delete(g.tasks, name)
	g.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	t := Every(ctx, name, interval, fn)
	g.mu.Lock()
	g.tasks[name] = t
	g.mu.Unlock()
	return t
}

// Trigger asks the named task for an immediate run.
func (g *Group) Trigger(name string) bool {
	g.mu.Lock()
	t := g.tasks[name]
	g.mu.Unlock()
	if t == nil {
		return false
	}
	t.Trigger()
	return true
}

// StopAll stops every task and waits for them.
func (g *Group) StopAll() {
	g.startMu.Lock()
	g.mu.Lock()
	g.stopped = true
	tasks := g.tasks
	g.tasks = make(map[string]*Task)
	g.mu.Unlock()
	g.startMu.Unlock()
	for _, t := range tasks {
		t.Stop()
	}
}
