package ingestion

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := NewProgressMonitor(&buf)

	m.Start("docs", 7)
	m.SectionEmbedded(0, 2)
	m.SectionFailed(1, errors.New("boom"))
	m.Finish(&Report{Inserted: 2, Total: 9}, nil)

	out := buf.String()
	assert.Contains(t, out, `Ingesting into "docs" starting at ID 7`)
	assert.Contains(t, out, "\rSections: 2 (1 failed) - 2 vectors")
	assert.Contains(t, out, "Successfully inserted 2 records. The collection now has 9 records in total.\n")
}

func TestProgressMonitor_Aborted(t *testing.T) {
	var buf bytes.Buffer
	m := NewProgressMonitor(&buf)

	m.Finish(&Report{}, ErrQueryCollection)
	assert.Equal(t, "Cannot query database!\n", buf.String())
}
