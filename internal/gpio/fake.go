package gpio

import (
	"fmt"
	"sync"
)

// FakeChip is a test double that hands out scriptable lines.
type FakeChip struct {
	mu    sync.Mutex
	lines map[int]*FakeLine

	// Requested records line offsets in request order.
	Requested []int

	// RequestErrors maps offsets to errors RequestLine should return,
	// for exercising setup rollback.
	RequestErrors map[int]error

	// HardwareDebounce makes requested lines report hardware debouncing
	// when a debounce period was asked for.
	HardwareDebounce bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeChip creates an empty FakeChip.
func NewFakeChip() *FakeChip {
	return &FakeChip{
		lines:         make(map[int]*FakeLine),
		RequestErrors: make(map[int]error),
	}
}

// RequestLine hands out a FakeLine for the offset.
func (c *FakeChip) RequestLine(offset int, cfg LineConfig, handler func()) (Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.RequestErrors[offset]; err != nil {
		return nil, err
	}
	if l, ok := c.lines[offset]; ok && !l.Closed() {
		return nil, fmt.Errorf("line %d already requested", offset)
	}

	l := &FakeLine{
		Offset:    offset,
		Config:    cfg,
		handler:   handler,
		debounced: c.HardwareDebounce && cfg.Debounce > 0,
	}
	c.lines[offset] = l
	c.Requested = append(c.Requested, offset)
	return l, nil
}

// Line returns the FakeLine requested at offset, or nil.
func (c *FakeChip) Line(offset int) *FakeLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines[offset]
}

// Close marks the chip as closed.
func (c *FakeChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// FakeLine is a scriptable input line. Tests drive it with SetLevel, Fire,
// and Edge.
type FakeLine struct {
	Offset int
	Config LineConfig

	mu        sync.Mutex
	level     int
	handler   func()
	debounced bool
	closed    bool

	// ValueError, if set, is returned by Value.
	ValueError error
}

// Value returns the scripted level.
func (l *FakeLine) Value() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ValueError != nil {
		return 0, l.ValueError
	}
	return l.level, nil
}

// Debounced reports the hardware-debounce setting scripted at request time.
func (l *FakeLine) Debounced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debounced
}

// Close drops the handler; Fire becomes a no-op.
func (l *FakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.handler = nil
	return nil
}

// Closed reports whether Close was called.
func (l *FakeLine) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// SetLevel sets the level without delivering an edge.
func (l *FakeLine) SetLevel(v int) {
	l.mu.Lock()
	l.level = v
	l.mu.Unlock()
}

// Fire delivers one edge event to the handler on the caller's goroutine.
func (l *FakeLine) Fire() {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h()
	}
}

// Edge sets the level and delivers an edge event.
func (l *FakeLine) Edge(v int) {
	l.SetLevel(v)
	l.Fire()
}
