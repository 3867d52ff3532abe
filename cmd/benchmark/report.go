package main

import (
	"fmt"
	"io"
	"os"
	"time"

	qt "github.com/valyala/quicktemplate"
)

// StreamReport renders results as a markdown document, one table per suite.
func StreamReport(qw *qt.Writer, title string, started time.Time, results []result) {
	w := qw.N()
	w.S("# ")
	w.S(title)
	w.S("\n\nRun at ")
	w.S(started.Format(time.RFC3339))
	w.S(", ")
	w.D(len(results))
	w.S(" benchmarks.\n")

	suite := ""
	for _, r := range results {
		if r.Suite != suite {
			suite = r.Suite
			w.S("\n## ")
			w.S(suite)
			w.S("\n\n| benchmark | avg | min | p75 | p99 | max |\n|---|---:|---:|---:|---:|---:|\n")
		}
		w.S("| ")
		w.S(r.Name)
		for _, d := range []time.Duration{r.Avg, r.Min, r.P75, r.P99, r.Max} {
			w.S(" | ")
			w.S(d.String())
		}
		w.S(" |\n")
	}
}

func WriteReport(w io.Writer, title string, started time.Time, results []result) {
	qw := qt.AcquireWriter(w)
	StreamReport(qw, title, started, results)
	qt.ReleaseWriter(qw)
}

// saveReport writes the report to path, reporting write and close failures.
func saveReport(path, title string, started time.Time, results []result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cErr)
		}
	}()

	if _, err := io.WriteString(f, Report(title, started, results)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func Report(title string, started time.Time, results []result) string {
	bb := qt.AcquireByteBuffer()
	WriteReport(bb, title, started, results)
	s := string(bb.B)
	qt.ReleaseByteBuffer(bb)
	return s
}
