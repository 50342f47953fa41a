// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package section

import (
	"bufio"
	"io"
	"iter"
	"log/slog"
	"strings"
)

const (
	// DefaultSoftLimit is the accumulator length at which further lines are skipped.
	DefaultSoftLimit = 20000

	// DefaultSoftMinimum is the length a section must exceed before a blank line closes it.
	DefaultSoftMinimum = 100

	codeFence = "```"

	// maxLoggedLine bounds how much of a skipped line is written to the log.
	maxLoggedLine = 80
)

// Sectionizer splits text into sections on blank lines.
// A Sectionizer holds only configuration and is safe for concurrent use.
type Sectionizer struct {
	softLimit      int
	softMinimum    int
	flushRemainder bool
	logger         *slog.Logger
}

// Option configures a Sectionizer.
type Option func(*Sectionizer)

// WithSoftLimit sets the soft upper bound on section length in bytes.
// Values <= 0 keep the default.
func WithSoftLimit(limit int) Option {
	return func(s *Sectionizer) {
		if limit > 0 {
			s.softLimit = limit
		}
	}
}

// WithSoftMinimum sets the length a section must exceed before a blank line
// outside a code fence closes it. Negative values are treated as 0.
func WithSoftMinimum(minimum int) Option {
	return func(s *Sectionizer) {
		if minimum < 0 {
			minimum = 0
		}
		s.softMinimum = minimum
	}
}

// WithFlushRemainder controls whether text left in the accumulator at end of
// input is emitted as a final section. Default is false.
func WithFlushRemainder(flush bool) Option {
	return func(s *Sectionizer) {
		s.flushRemainder = flush
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sectionizer) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New creates a Sectionizer with default limits and applies opts.
func New(opts ...Option) *Sectionizer {
	s := &Sectionizer{
		softLimit:   DefaultSoftLimit,
		softMinimum: DefaultSoftMinimum,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sectionizer")
	return s
}

// SoftLimit returns the configured soft limit.
func (s *Sectionizer) SoftLimit() int {
	return s.softLimit
}

// SoftMinimum returns the configured soft minimum.
func (s *Sectionizer) SoftMinimum() int {
	return s.softMinimum
}

// Sections returns the sections of text in document order.
// The sequence is lazy and may be ranged over more than once.
func (s *Sectionizer) Sections(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for sec, err := range s.Scan(strings.NewReader(text)) {
			// strings.Reader never fails
			if err != nil || !yield(sec) {
				return
			}
		}
	}
}

// Scan reads lines from r and yields sections as they close.
// A read error is yielded once with an empty section and ends the sequence.
func (s *Sectionizer) Scan(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		acc := s.newAccumulator()
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				if sec, ok := acc.feed(trimLineEnding(line)); ok {
					if !yield(sec, nil) {
						return
					}
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				yield("", err)
				return
			}
		}
		if sec, ok := acc.finish(); ok {
			yield(sec, nil)
		}
	}
}

// trimLineEnding removes a trailing "\n" or "\r\n".
func trimLineEnding(line string) string {
	if strings.HasSuffix(line, "\n") {
		line = line[:len(line)-1]
		line = strings.TrimSuffix(line, "\r")
	}
	return line
}

// accumulator is the per-run state of a Sectionizer.
type accumulator struct {
	s       *Sectionizer
	buf     strings.Builder
	inFence bool
}

func (s *Sectionizer) newAccumulator() *accumulator {
	return &accumulator{s: s}
}

// feed processes a single line without its line ending. It returns a closed
// section when the line completes one.
func (a *accumulator) feed(line string) (string, bool) {
	if a.buf.Len() < a.s.softLimit {
		a.buf.WriteString(line)
		a.buf.WriteByte('\n')
	} else {
		a.s.logger.Warn("section exceeded soft limit, skipping line",
			"chars", a.buf.Len(), "limit", a.s.softLimit, "line", preview(line))
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, codeFence) {
		a.inFence = !a.inFence
	}

	if trimmed != "" || a.inFence || a.buf.Len() <= a.s.softMinimum {
		return "", false
	}

	sec := a.buf.String()
	a.buf.Reset()
	if strings.TrimSpace(sec) == "" {
		return "", false
	}
	return sec, true
}

// finish handles the text left over at end of input.
func (a *accumulator) finish() (string, bool) {
	rest := a.buf.String()
	a.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	if !a.s.flushRemainder {
		a.s.logger.Debug("dropping unterminated trailing section", "chars", len(rest))
		return "", false
	}
	return rest, true
}

func preview(line string) string {
	if len(line) <= maxLoggedLine {
		return line
	}
	return line[:maxLoggedLine] + "..."
}
