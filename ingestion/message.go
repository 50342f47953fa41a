package ingestion

import (
	"errors"
	"fmt"
)

// Fixed texts returned to callers.
const (
	MessageCreateFailed = "Cannot create collection"
	MessageQueryFailed  = "Cannot query database!"
	MessageUpsertFailed = "Cannot upsert into database!"
)

// Message renders the outcome of a run as the text returned to callers.
func Message(report *Report, err error) string {
	switch {
	case errors.Is(err, ErrCreateCollection):
		return MessageCreateFailed
	case errors.Is(err, ErrQueryCollection):
		return MessageQueryFailed
	case errors.Is(err, ErrUpsert):
		return MessageUpsertFailed
	case err != nil:
		return err.Error()
	case report == nil:
		return MessageUpsertFailed
	}
	return fmt.Sprintf("Successfully inserted %d records. The collection now has %d records in total.",
		report.Inserted, report.Total)
}
