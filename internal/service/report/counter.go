package report

import (
	"sync"

	"detectlab/internal/dto"
)

// Counter is a running per-class tally that remembers the order in which
// labels were first seen. It is safe for concurrent use; increments are
// serialized by a single mutex. The zero value is ready to use.
type Counter struct {
	mu     sync.Mutex
	order  []string
	counts map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add increments the count for label by one.
func (c *Counter) Add(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(label)
}

// AddFrame increments the count once per detection in the frame.
func (c *Counter) AddFrame(frame dto.FrameResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, det := range frame.Detections {
		c.add(det.Label)
	}
}

func (c *Counter) add(label string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, seen := c.counts[label]; !seen {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

// Snapshot returns the counts in first-seen order.
func (c *Counter) Snapshot() []dto.ClassCount {
	c.mu.Lock()
	defer c.mu.Unlock()

	classes := make([]dto.ClassCount, 0, len(c.order))
	for _, label := range c.order {
		classes = append(classes, dto.ClassCount{Label: label, Count: c.counts[label]})
	}
	return classes
}

// Total returns the sum of all counts.
func (c *Counter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}
