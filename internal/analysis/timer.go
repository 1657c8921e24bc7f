package analysis

import (
	"sync"
	"time"
)

// Timer counts whole seconds while an analysis is running so a caller can show
// progress. It does not cancel anything. Start and Stop both reset the count.
type Timer struct {
	mu      sync.Mutex
	seconds int
	tick    time.Duration
	stop    chan struct{}
	done    chan struct{}
}

func NewTimer() *Timer {
	return &Timer{tick: time.Second}
}

func (t *Timer) Start() {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.seconds = 0
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.tick, t.stop, t.done)
}

func (t *Timer) run(tick time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tk := time.NewTicker(tick)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			t.mu.Lock()
			t.seconds++
			t.mu.Unlock()
		}
	}
}

func (t *Timer) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	t.mu.Lock()
	t.seconds = 0
	t.mu.Unlock()
}

func (t *Timer) Seconds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seconds
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}
