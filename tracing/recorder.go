package tracing

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/romain1189/quartz/hooking"
	"github.com/romain1189/quartz/stateful"
	"github.com/romain1189/quartz/timing"
)

const transitionTable = "transitions"

// A Recorder persists the history of a simulation into a SQLite database:
// one row per model transition, and one state snapshot per transition for
// models carrying declarative state. State tables are shaped by the model's
// stateful type, one column per declared field, so the recorded schema
// mirrors the state declaration rather than an arbitrary struct.
//
// The recorder implements hooking.Hook; attach it to atomic models via
// AcceptHook. Rows are buffered and written in batched transactions, with a
// final flush registered at exit.
type Recorder struct {
	db     *sql.DB
	dbName string

	batchSize  int
	entryCount int

	transitions []transitionRow
	states      map[string]*stateTable
}

type transitionRow struct {
	model      string
	transition string
	time       float64
}

// stateTable buffers the snapshot rows of one state type.
type stateTable struct {
	name   string
	fields []string
	rows   [][]interface{}
}

// NewRecorder creates a Recorder backed by a SQLite file at path. An empty
// path picks a unique file name.
func NewRecorder(path string) *Recorder {
	r := &Recorder{
		dbName:    path,
		batchSize: 100000,
		states:    make(map[string]*stateTable),
	}

	r.openFile()
	r.createTransitionTable()

	atexit.Register(func() { r.Flush() })

	return r
}

// NewRecorderWithDB creates a Recorder on an existing database.
func NewRecorderWithDB(db *sql.DB) *Recorder {
	r := &Recorder{
		db:        db,
		batchSize: 100000,
		states:    make(map[string]*stateTable),
	}

	r.createTransitionTable()

	atexit.Register(func() { r.Flush() })

	return r
}

func (r *Recorder) openFile() {
	if r.dbName == "" {
		r.dbName = "quartz_recording_" + xid.New().String()
	}

	filename := r.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	logrus.WithField("file", filename).Info("recording database created")

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r.db = db
}

func (r *Recorder) createTransitionTable() {
	r.mustExecute(`CREATE TABLE ` + transitionTable +
		` (Model, Transition, Time);`)
}

// Func records a transition hook context: the transition row itself, plus a
// state snapshot when the transitioned model carries declarative state.
func (r *Recorder) Func(ctx hooking.HookCtx) {
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

	r.RecordTransition(model.Name(), info)

	if holder, ok := ctx.Item.(interface{ State() *stateful.State }); ok {
		if s := holder.State(); s != nil {
			r.RecordState(model.Name(), info.Time, s)
		}
	}
}

// RecordTransition buffers one transition row.
func (r *Recorder) RecordTransition(
	model string,
	info hooking.TransitionInfo,
) {
	r.transitions = append(r.transitions, transitionRow{
		model:      model,
		transition: info.Transition.String(),
		time:       info.Time.Seconds(),
	})

	r.recorded()
}

// RecordState buffers a snapshot of a declarative state. The first snapshot
// of a state type creates its table, one column per declared field.
func (r *Recorder) RecordState(
	model string,
	t timing.TimePoint,
	s *stateful.State,
) {
	table := r.stateTableFor(s.Type())

	row := make([]interface{}, 0, len(table.fields)+2)
	row = append(row, model, t.Seconds())

	for _, field := range table.fields {
		row = append(row, storable(s.Get(field)))
	}

	table.rows = append(table.rows, row)
	r.recorded()
}

func (r *Recorder) stateTableFor(t *stateful.Type) *stateTable {
	if table, ok := r.states[t.ID()]; ok {
		return table
	}

	mustBeIdentifier(t.ID())

	fields := t.FieldNames()
	for _, field := range fields {
		mustBeIdentifier(field)
	}

	table := &stateTable{
		name:   "state_" + t.ID(),
		fields: fields,
	}

	columns := append([]string{"Model", "Time"}, fields...)
	r.mustExecute(`CREATE TABLE ` + table.name +
		` (` + strings.Join(columns, ", ") + `);`)

	r.states[t.ID()] = table

	return table
}

// StateTables returns the names of the state tables created so far.
func (r *Recorder) StateTables() []string {
	names := make([]string, 0, len(r.states))
	for _, table := range r.states {
		names = append(names, table.name)
	}

	return names
}

func (r *Recorder) recorded() {
	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.Flush()
	}
}

// storable maps a state field value onto a SQLite-storable value. Scalars
// pass through, durations keep their {multiplier, precision} encoding, and
// anything else falls back to its printed form.
func storable(v interface{}) interface{} {
	switch value := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return value

	case timing.Duration:
		data, err := json.Marshal(value)
		if err != nil {
			panic(err)
		}

		return string(data)

	default:
		return fmt.Sprintf("%v", value)
	}
}

// Flush writes all buffered rows into the database in one transaction.
func (r *Recorder) Flush() {
	if r.entryCount == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	r.flushTransitions()

	for _, table := range r.states {
		r.flushStateTable(table)
	}

	r.entryCount = 0
}

func (r *Recorder) flushTransitions() {
	if len(r.transitions) == 0 {
		return
	}

	stmt := r.mustPrepare(transitionTable, 3)
	defer stmt.Close()

	for _, row := range r.transitions {
		_, err := stmt.Exec(row.model, row.transition, row.time)
		if err != nil {
			panic(err)
		}
	}

	r.transitions = nil
}

func (r *Recorder) flushStateTable(table *stateTable) {
	if len(table.rows) == 0 {
		return
	}

	stmt := r.mustPrepare(table.name, len(table.fields)+2)
	defer stmt.Close()

	for _, row := range table.rows {
		_, err := stmt.Exec(row...)
		if err != nil {
			panic(err)
		}
	}

	table.rows = nil
}

func (r *Recorder) mustPrepare(table string, columns int) *sql.Stmt {
	marks := make([]string, columns)
	for i := range marks {
		marks[i] = "?"
	}

	stmt, err := r.db.Prepare("INSERT INTO " + table +
		" VALUES (" + strings.Join(marks, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}

func (r *Recorder) mustExecute(query string) sql.Result {
	res, err := r.db.Exec(query)
	if err != nil {
		logrus.WithField("query", query).Error("failed to execute")
		panic(err)
	}

	return res
}

// mustBeIdentifier guards table and column names derived from state types
// against anything that cannot be a bare SQL identifier.
func mustBeIdentifier(name string) {
	if name == "" {
		panic("state identifiers must not be empty")
	}

	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				panic(fmt.Sprintf("invalid state identifier %q", name))
			}
		default:
			panic(fmt.Sprintf("invalid state identifier %q", name))
		}
	}
}
