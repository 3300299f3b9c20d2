package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// Phase is one stage of a dataset load.
type Phase string

const (
	PhaseDropStaging    Phase = "DROP_STAGING"
	PhaseDiscoverSchema Phase = "DISCOVER_SCHEMA"
	PhaseFetchData      Phase = "FETCH_DATA"
	PhaseParseAndLoad   Phase = "PARSE_AND_LOAD"
	PhaseBuildIndexes   Phase = "BUILD_INDEXES"
	PhaseSwap           Phase = "SWAP"
	PhaseCleanup        Phase = "CLEANUP"
)

// Document fields added by the loader.
const (
	FieldCreated       = "CREATED"
	FieldDataSetName   = "DATA_SET_NAME"
	FieldParseError    = "PARSE_ERROR"
	FieldLine          = "LINE"
	unknownHeaderField = "UNKNOWN_HEADER_%d"
)

const (
	durationMetric  = "load_phase"
	skipReasonParse = "row_parse"
	moduleName      = "loader"
)

// Result summarises one dataset load.
type Result struct {
	Dataset         string
	Inserted        int
	Quarantined     int
	Chunks          int
	CreationDetails int
}

// Loader runs the load pipeline for one dataset at a time.
type Loader struct {
	source   source.DataSource
	sink     Sink
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	cfg      config.LoaderConfig
	now      func() time.Time
}

// NewLoader creates a Loader. A nil recorder or tracer is replaced by a no-op.
func NewLoader(src source.DataSource, sink Sink, recorder metrics.MetricRecorder, tracer metrics.Tracer, cfg config.LoaderConfig) *Loader {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 50000
	}
	if cfg.ErrorCollection == "" {
		cfg.ErrorCollection = "csvErrors"
	}
	return &Loader{
		source:   src,
		sink:     sink,
		recorder: recorder,
		tracer:   tracer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// FilePath returns the local CSV path of d.
func (l *Loader) FilePath(d Descriptor) string {
	return filepath.Join(l.cfg.CSVDirectory, d.Name+".csv")
}

// Load runs every phase for d in order. On failure the staging collection and the local file
// are left in place and the production collection is untouched.
func (l *Loader) Load(ctx context.Context, d Descriptor) (Result, error) {
	res := Result{Dataset: d.Name}
	tl := newTimeLog(d.Name)
	staging := d.StagingCollection()
	path := l.FilePath(d)
	var headers []string

	phases := []struct {
		phase Phase
		run   func(ctx context.Context) error
	}{
		{PhaseDropStaging, func(ctx context.Context) error {
			return l.sink.DropCollection(ctx, staging)
		}},
		{PhaseDiscoverSchema, func(ctx context.Context) error {
			logger.Debugf("Requesting data set columns [%s].", d.Name)
			raw, err := l.source.FetchSchema(ctx, d.Dataset)
			if err != nil {
				return err
			}
			headers, err = source.ParseColumns(raw)
			if err != nil {
				return err
			}
			logger.Debugf("[%s] has %d columns as follows %v.", d.Name, len(headers), headers)
			return nil
		}},
		{PhaseFetchData, func(ctx context.Context) error {
			logger.Debugf("Requesting for data set [%s].", d.Name)
			return l.source.FetchData(ctx, d.Dataset, path)
		}},
		{PhaseParseAndLoad, func(ctx context.Context) error {
			return l.parseAndLoad(ctx, d, headers, path, &res)
		}},
		{PhaseBuildIndexes, func(ctx context.Context) error {
			return l.sink.CreateIndexes(ctx, staging, d.Indexes)
		}},
		{PhaseSwap, func(ctx context.Context) error {
			return l.sink.Rename(ctx, staging, d.Collection)
		}},
		{PhaseCleanup, func(ctx context.Context) error {
			logger.Debugf("Deleting file [%s]", path)
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return exception.NewBatchError(moduleName, fmt.Sprintf("failed to delete file [%s]", path), err, false, false)
			}
			return nil
		}},
	}

	for _, p := range phases {
		if err := l.runPhase(ctx, tl, d, p.phase, p.run); err != nil {
			logger.Errorf("Load of [%s] failed in phase %s: %v", d.Name, p.phase, err)
			return res, err
		}
	}
	tl.done()
	return res, nil
}

func (l *Loader) runPhase(ctx context.Context, tl *timeLog, d Descriptor, phase Phase, run func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, end := l.tracer.StartSpan(ctx, "load "+string(phase), map[string]interface{}{
		"dataset": d.Name,
		"phase":   string(phase),
	})
	defer end()

	started := time.Now()
	err := run(ctx)
	elapsed := time.Since(started)
	tl.record(phase, elapsed)
	l.recorder.RecordDuration(ctx, durationMetric, elapsed, map[string]string{"dataset": d.Name, "phase": string(phase)})
	if err != nil {
		l.tracer.RecordError(ctx, moduleName, err)
	}
	return err
}

// parseAndLoad streams the CSV file into the staging collection in chunks. Rows whose field
// count differs from the header count are quarantined.
func (l *Loader) parseAndLoad(ctx context.Context, d Descriptor, headers []string, path string, res *Result) error {
	const op = "Loader.parseAndLoad"

	f, err := os.Open(path)
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to open [%s]", path), err, false, false)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	keyIndex := -1
	for i, h := range headers {
		if h == d.BusinessKey {
			keyIndex = i
			break
		}
	}
	if keyIndex < 0 {
		logger.Warnf("Business key [%s] is not a column of [%s]; no creation details will be recorded.", d.BusinessKey, d.Name)
	}

	staging := d.StagingCollection()
	chunk := make([]bson.D, 0, l.cfg.ChunkSize)
	var quarantined []bson.D
	details := make(map[string]model.CreationDetail)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		res.Chunks++
		logger.Debugf("Saving chunk number %d.", res.Chunks)
		l.recorder.RecordItemRead(ctx, d.Name, len(chunk))
		inserted, err := l.sink.InsertMany(ctx, staging, chunk)
		res.Inserted += inserted
		l.recorder.RecordItemWrite(ctx, d.Name, inserted)
		if err != nil {
			return err
		}
		l.recorder.RecordChunkCommit(ctx, d.Name, len(chunk))
		chunk = make([]bson.D, 0, l.cfg.ChunkSize)

		if len(details) > 0 {
			logger.Debugf("Upserting %d creation details for [%s]", len(details), d.Collection)
			batch := make([]model.CreationDetail, 0, len(details))
			for _, cd := range details {
				batch = append(batch, cd)
			}
			if err := l.sink.UpsertCreationDetails(ctx, batch); err != nil {
				return err
			}
			res.CreationDetails += len(batch)
			clear(details)
		}
		return nil
	}

	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return exception.NewBatchError(op, fmt.Sprintf("failed to read [%s]", path), err, false, false)
			}
			logger.Errorf("Malformed CSV in [%s] at line %d: %v", d.Name, pe.StartLine, pe.Err)
			quarantined = append(quarantined, l.parseErrorDocument(d, pe))
			l.recorder.RecordItemSkip(ctx, d.Name, skipReasonParse, 1)
			continue
		}
		if first {
			first = false
			if l.cfg.SkipHeaderRow {
				continue
			}
		}

		if len(record) != len(headers) {
			rowErr := exception.NewRowParseError(op, "Wrong column mapping.")
			logger.Errorf("Wrong column mapping. There are [values, headers] == <%d, %d>. Row with error parsing [%s]. %v",
				len(record), len(headers), strings.Join(record, "~"), rowErr)
			quarantined = append(quarantined, l.quarantineDocument(d, headers, record))
			l.recorder.RecordItemSkip(ctx, d.Name, skipReasonParse, 1)
			continue
		}

		created := l.now()
		doc := make(bson.D, 0, len(headers)+1)
		for i, h := range headers {
			doc = append(doc, bson.E{Key: h, Value: record[i]})
		}
		doc = append(doc, bson.E{Key: FieldCreated, Value: created})
		chunk = append(chunk, doc)

		if keyIndex >= 0 {
			value := record[keyIndex]
			cd, ok := details[value]
			if !ok {
				cd = model.CreationDetail{Name: d.BusinessKey, Value: value, Created: created}
			}
			cd.LastUpdate = created
			details[value] = cd
		}

		if len(chunk) >= l.cfg.ChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if len(quarantined) > 0 {
		l.recorder.RecordItemRead(ctx, d.Name, len(quarantined))
		if _, err := l.sink.InsertMany(ctx, l.cfg.ErrorCollection, quarantined); err != nil {
			return err
		}
		res.Quarantined = len(quarantined)
	}
	logger.Debugf("%d documents saved. %d error documents saved.", res.Inserted, res.Quarantined)
	return nil
}

// quarantineDocument maps record positionally onto headers; overflow fields get UNKNOWN_HEADER_<i> keys.
func (l *Loader) quarantineDocument(d Descriptor, headers, record []string) bson.D {
	doc := make(bson.D, 0, len(record)+2)
	for i, v := range record {
		key := fmt.Sprintf(unknownHeaderField, i)
		if i < len(headers) {
			key = headers[i]
		}
		doc = append(doc, bson.E{Key: key, Value: v})
	}
	return append(doc,
		bson.E{Key: FieldDataSetName, Value: d.Name},
		bson.E{Key: FieldCreated, Value: l.now()},
	)
}

func (l *Loader) parseErrorDocument(d Descriptor, pe *csv.ParseError) bson.D {
	return bson.D{
		{Key: FieldParseError, Value: pe.Err.Error()},
		{Key: FieldLine, Value: pe.StartLine},
		{Key: FieldDataSetName, Value: d.Name},
		{Key: FieldCreated, Value: l.now()},
	}
}

// timeLog logs how long each phase of one load took.
type timeLog struct {
	name    string
	started time.Time
	entries []string
}

func newTimeLog(name string) *timeLog {
	return &timeLog{name: name, started: time.Now()}
}

func (t *timeLog) record(phase Phase, elapsed time.Duration) {
	t.entries = append(t.entries, fmt.Sprintf("%s=%s", phase, elapsed.Round(time.Millisecond)))
	logger.Debugf("[%s] %s took %s.", t.name, phase, elapsed)
}

func (t *timeLog) done() {
	logger.Infof("[%s] loaded in %s (%s).", t.name, time.Since(t.started).Round(time.Millisecond), strings.Join(t.entries, ", "))
}
