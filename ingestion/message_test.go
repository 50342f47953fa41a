package ingestion

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		report   *Report
		err      error
		expected string
	}{
		{"success", &Report{Inserted: 3, Total: 10}, nil,
			"Successfully inserted 3 records. The collection now has 10 records in total."},
		{"create", &Report{}, fmt.Errorf("%w: boom", ErrCreateCollection), "Cannot create collection"},
		{"query", &Report{}, fmt.Errorf("%w: boom", ErrQueryCollection), "Cannot query database!"},
		{"upsert", &Report{}, fmt.Errorf("%w: boom", ErrUpsert), "Cannot upsert into database!"},
		{"other", &Report{}, errors.New("context canceled"), "context canceled"},
		{"nil report", nil, nil, "Cannot upsert into database!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Message(tt.report, tt.err))
		})
	}
}
