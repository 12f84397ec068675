// Package progress reports periodic status lines during a training run,
// in the plain log.New-plus-Printf style the teacher pack uses for its own
// command-line tools rather than a structured logging library.
package progress

import (
	"log"
	"time"

	"github.com/bpetrain/internal/token"
)

// Reporter prints one status line every N merges (and, if Every is 0, never).
type Reporter struct {
	logger *log.Logger
	every  int
	start  time.Time

	lastReportAt time.Time
	mergesAtLast int
}

// New returns a Reporter writing to logger, reporting once per every merges.
// An every of 0 disables periodic reporting; Final still prints.
func New(logger *log.Logger, every int) *Reporter {
	now := time.Now()
	return &Reporter{logger: logger, every: every, start: now, lastReportAt: now}
}

// Report is called after every applied merge with the running merge count
// and the pair/id it just emitted. It prints a status line only every
// r.every calls.
func (r *Reporter) Report(mergeCount int, pair token.Pair, id token.TokenId, liveCount int) {
	if r.every <= 0 || mergeCount%r.every != 0 {
		return
	}

	now := time.Now()
	elapsed := now.Sub(r.lastReportAt)
	rate := float64(mergeCount-r.mergesAtLast) / elapsed.Seconds()
	if elapsed <= 0 {
		rate = 0
	}

	r.logger.Printf("merge %d: (%d,%d)->%d live=%d rate=%.0f merges/s",
		mergeCount, pair.First, pair.Second, id, liveCount, rate)

	r.lastReportAt = now
	r.mergesAtLast = mergeCount
}

// Final prints a one-line summary once training stops.
func (r *Reporter) Final(mergesEmitted, finalVocabSize int) {
	r.logger.Printf("done: %d merges emitted, final vocab size %d, took %s",
		mergesEmitted, finalVocabSize, time.Since(r.start).Round(time.Millisecond))
}
