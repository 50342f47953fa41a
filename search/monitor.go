package search

import "github.com/poiesic/docembed/core"

// SearchMonitor provides hooks to observe the search process.
type SearchMonitor interface {
	Start(collection, query string)
	AfterSemanticSearch(candidates []*core.ScoredPoint)
	VerbatimHit(point *core.Point)
	Finish(results []*core.ScoredPoint)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                        {}
func (n *noopMonitor) AfterSemanticSearch(_ []*core.ScoredPoint) {}
func (n *noopMonitor) VerbatimHit(_ *core.Point)                {}
func (n *noopMonitor) Finish(_ []*core.ScoredPoint)             {}
