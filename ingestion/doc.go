// Package ingestion provides pipeline orchestration for turning documents into stored vectors.
//
// A Pipeline run goes through four stages:
//   - Init: recreate the collection (reset) or read its point count (continue)
//   - Sectioning & embedding: split the body into sections and embed each one
//   - Upsert: write every resulting point in a single batch
//   - Report: re-read the point count and summarize the run
//
// Embedding failures skip the affected section. Failures in the other stages
// abort the run; Message renders either outcome as the fixed text shown to callers.
package ingestion
