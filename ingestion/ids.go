package ingestion

import "github.com/poiesic/docembed/core"

// IDAllocator hands out consecutive point IDs for a single run.
// Continuation runs seed it with the collection's point count, which assumes
// existing IDs fill 0..count-1. Collections with gaps can collide.
type IDAllocator struct {
	start core.PointID
	next  core.PointID
}

// NewIDAllocator creates an allocator whose first ID is start.
func NewIDAllocator(start core.PointID) *IDAllocator {
	return &IDAllocator{start: start, next: start}
}

// Next returns the next ID and advances by one.
func (a *IDAllocator) Next() core.PointID {
	id := a.next
	a.next++
	return id
}

// Peek returns the ID the next call to Next will return.
func (a *IDAllocator) Peek() core.PointID {
	return a.next
}

// Allocated returns how many IDs have been handed out.
func (a *IDAllocator) Allocated() int {
	return int(a.next - a.start)
}
