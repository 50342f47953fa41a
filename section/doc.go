// Package section splits raw documents into sections for embedding.
//
// A section closes on a blank line once it is longer than the soft minimum,
// unless the blank line sits inside a fenced code block. Lines arriving after
// a section has reached the soft limit are dropped from that section.
// Text left over at end of input is only emitted when WithFlushRemainder is set.
//
// Lengths are measured in bytes of the accumulated text.
package section
