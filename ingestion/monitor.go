package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/docembed/core"
)

// Monitor provides hooks to observe a pipeline run.
type Monitor interface {
	Start(collection string, startID core.PointID)
	SectionEmbedded(index int, vectors int)
	SectionFailed(index int, err error)
	Finish(report *Report, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.PointID) {}
func (n *noopMonitor) SectionEmbedded(_ int, _ int)   {}
func (n *noopMonitor) SectionFailed(_ int, _ error)   {}
func (n *noopMonitor) Finish(_ *Report, _ error)      {}

// ProgressMonitor writes a running tally of a run to a writer.
// The number of sections is not known up front, so no percentage is shown.
type ProgressMonitor struct {
	writer    io.Writer
	sections  int
	failed    int
	vectors   int
	startTime time.Time
	mu        sync.Mutex
}

var _ Monitor = (*ProgressMonitor)(nil)

// NewProgressMonitor creates a monitor writing to w (typically os.Stderr).
func NewProgressMonitor(w io.Writer) *ProgressMonitor {
	return &ProgressMonitor{writer: w}
}

func (p *ProgressMonitor) Start(collection string, startID core.PointID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.sections, p.failed, p.vectors = 0, 0, 0
	fmt.Fprintf(p.writer, "Ingesting into %q starting at ID %d\n", collection, startID)
}

func (p *ProgressMonitor) SectionEmbedded(_ int, vectors int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sections++
	p.vectors += vectors
	p.report()
}

func (p *ProgressMonitor) SectionFailed(_ int, _ error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sections++
	p.failed++
	p.report()
}

func (p *ProgressMonitor) Finish(report *Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sections > 0 {
		fmt.Fprintln(p.writer) // end the progress line
	}
	fmt.Fprintln(p.writer, Message(report, err))
}

// report prints the current tally. Must be called with lock held.
func (p *ProgressMonitor) report() {
	rate := float64(p.sections) / time.Since(p.startTime).Seconds()
	fmt.Fprintf(p.writer, "\rSections: %d (%d failed) - %d vectors - %.1f sections/s",
		p.sections, p.failed, p.vectors, rate)
}
