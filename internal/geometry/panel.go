// ABOUTME: Panel width drag state: right-edge-relative sizing, clamped, frame-batched.
// ABOUTME: Teardown detaches the frame callback so nothing mutates state afterwards.

package geometry

import (
	"sync"
	"time"

	"github.com/2389/studio/internal/debounce"
)

// Default width bounds in pixels.
const (
	DefaultMinWidth = 300
	DefaultMaxWidth = 800
)

// framePeriod approximates one animation frame.
const framePeriod = 16 * time.Millisecond

const frameKey = "panel-frame"

// Panel holds the ephemeral geometry of a resizable side panel. Width updates
// arriving faster than one frame are coalesced: at most one applied update per
// frame period, the latest pointer position winning.
type Panel struct {
	mu       sync.Mutex
	sched    *debounce.Scheduler
	min, max int
	width    int
	resizing bool
	tornDown bool

	// onApply observes each applied width, for rendering. Optional.
	onApply func(width int)
}

// NewPanel builds a panel with the given bounds; zero bounds select the
// defaults. The initial width is clamped into range.
func NewPanel(min, max, initial int, onApply func(width int)) *Panel {
	if min <= 0 {
		min = DefaultMinWidth
	}
	if max <= 0 {
		max = DefaultMaxWidth
	}
	p := &Panel{
		sched:   debounce.NewScheduler(),
		min:     min,
		max:     max,
		onApply: onApply,
	}
	p.width = p.clamp(initial)
	return p
}

// Width returns the current applied width.
func (p *Panel) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

// Resizing reports whether a drag is in progress.
func (p *Panel) Resizing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resizing
}

// BeginDrag marks the start of a pointer drag.
func (p *Panel) BeginDrag() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tornDown {
		return
	}
	p.resizing = true
}

// Drag records a pointer position. The width is the distance from the pointer
// to the container's right edge, clamped into range, and applied on the next
// frame; positions arriving within one frame supersede each other.
func (p *Panel) Drag(pointerX, containerRight int) {
	p.mu.Lock()
	if p.tornDown || !p.resizing {
		p.mu.Unlock()
		return
	}
	target := p.clamp(containerRight - pointerX)
	p.mu.Unlock()

	p.sched.Schedule(frameKey, framePeriod, func() {
		p.apply(target)
	})
}

// EndDrag finishes the drag, applying the final position immediately rather
// than waiting out a queued frame.
func (p *Panel) EndDrag(pointerX, containerRight int) {
	p.sched.Cancel(frameKey)

	p.mu.Lock()
	if p.tornDown || !p.resizing {
		p.mu.Unlock()
		return
	}
	p.resizing = false
	p.width = p.clamp(containerRight - pointerX)
	width := p.width
	onApply := p.onApply
	p.mu.Unlock()

	if onApply != nil {
		onApply(width)
	}
}

// Teardown cancels any queued frame callback and detaches the panel. However
// the drag ended, no callback may mutate state after this returns.
func (p *Panel) Teardown() {
	p.sched.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tornDown = true
	p.resizing = false
}

func (p *Panel) apply(width int) {
	p.mu.Lock()
	if p.tornDown || !p.resizing {
		p.mu.Unlock()
		return
	}
	p.width = width
	onApply := p.onApply
	p.mu.Unlock()

	if onApply != nil {
		onApply(width)
	}
}

func (p *Panel) clamp(w int) int {
	if w < p.min {
		return p.min
	}
	if w > p.max {
		return p.max
	}
	return w
}
