package progress

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/bpetrain/internal/token"
)

func newTestReporter(buf *bytes.Buffer, every int) *Reporter {
	return New(log.New(buf, "", 0), every)
}

func TestReportOnlyFiresOnMultiplesOfEvery(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, 2)

	r.Report(1, token.Pair{First: 1, Second: 2}, 256, 10)
	if buf.Len() != 0 {
		t.Fatalf("expected no output on merge 1, got %q", buf.String())
	}

	r.Report(2, token.Pair{First: 1, Second: 2}, 256, 10)
	if buf.Len() == 0 {
		t.Fatalf("expected output on merge 2")
	}
	if !strings.Contains(buf.String(), "merge 2") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestReportDisabledWhenEveryIsZero(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, 0)

	for i := 1; i <= 10; i++ {
		r.Report(i, token.Pair{First: 1, Second: 2}, 256, 10)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output with every=0, got %q", buf.String())
	}
}

func TestFinalPrintsSummary(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, 0)

	r.Final(42, 1298)

	out := buf.String()
	if !strings.Contains(out, "42 merges emitted") || !strings.Contains(out, "1298") {
		t.Fatalf("unexpected final summary: %q", out)
	}
}
