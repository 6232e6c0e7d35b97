// Package tracing provides the reference tracers of the kernel: a buffered
// CSV transition tracer and a SQLite-backed data recorder. Both observe the
// simulation through the hooking surface only and never mutate
// simulator-owned state.
package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/romain1189/quartz/hooking"
)

// A TransitionRecord is one traced model transition.
type TransitionRecord struct {
	Model      string
	Transition string
	Time       float64
}

// CSVTracer writes transition records to a CSV file. Records are buffered
// and flushed in batches, with a final flush registered at exit.
type CSVTracer struct {
	path string
	file *os.File

	records    []TransitionRecord
	bufferSize int
}

// NewCSVTracer creates a tracer writing to path. An empty path picks a
// unique file name.
func NewCSVTracer(path string) *CSVTracer {
	return &CSVTracer{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the tracing CSV file. A pre-existing file is refused rather
// than overwritten.
func (t *CSVTracer) Init() {
	if t.path == "" {
		t.path = "quartz_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "Model, Transition, Time\n")

	logrus.WithField("file", filename).Info("transition trace created")

	atexit.Register(func() {
		t.Flush()

		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Func records a transition hook context. Attach the tracer to atomic
// models via AcceptHook.
func (t *CSVTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != hooking.HookPosTransition {
		return
	}

	info, ok := ctx.Detail.(hooking.TransitionInfo)
	if !ok {
		return
	}

	model, ok := ctx.Item.(interface{ Name() string })
	if !ok {
		return
	}

	t.Write(TransitionRecord{
		Model:      model.Name(),
		Transition: info.Transition.String(),
		Time:       info.Time.Seconds(),
	})
}

// Write appends a record to the trace.
func (t *CSVTracer) Write(rec TransitionRecord) {
	t.records = append(t.records, rec)
	if len(t.records) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered records to the CSV file.
func (t *CSVTracer) Flush() {
	for _, rec := range t.records {
		fmt.Fprintf(t.file, "%s, %s, %.10f\n",
			rec.Model,
			rec.Transition,
			rec.Time,
		)
	}

	t.records = nil
}
