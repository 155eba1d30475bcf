package typing

import (
	"sync"
	"time"
)

// DefaultIdle is how long after the last keystroke the stop signal fires.
const DefaultIdle = 1000 * time.Millisecond

// Coordinator debounces the outbound typing signal. Each keystroke restarts
// the single idle timer; the start signal is emitted only on the idle-to-typing
// transition, so a burst of keystrokes produces one start and, once the burst
// ends, one stop. This deliberately coalesces per-keystroke emission: receivers
// track a boolean indicator, and repeated start frames within a burst carry no
// information they do not already have.
type Coordinator struct {
	mu     sync.Mutex
	emit   func(isTyping bool)
	idle   time.Duration
	timer  *time.Timer
	active bool
}

// New returns a coordinator emitting through emit after idle of inactivity.
// A zero idle selects DefaultIdle.
func New(idle time.Duration, emit func(isTyping bool)) *Coordinator {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Coordinator{emit: emit, idle: idle}
}

// Keystroke records local input activity, emitting the start signal when a
// burst begins and rearming the idle timer.
func (c *Coordinator) Keystroke() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		c.active = true
		c.emit(true)
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.idle, c.expire)
}

// Stop cancels any pending timer and emits the stop signal. The send pipeline
// calls this when a message goes out, whether or not a burst was live.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.active = false
	c.emit(false)
}

func (c *Coordinator) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.active = false
	c.timer = nil
	c.emit(false)
}
