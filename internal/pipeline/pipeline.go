package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/echoloom-cli/internal/analysis"
	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
	"github.com/KaramelBytes/echoloom-cli/internal/export"
	"github.com/KaramelBytes/echoloom-cli/internal/parser"
	"github.com/KaramelBytes/echoloom-cli/internal/reshape"
	"github.com/KaramelBytes/echoloom-cli/internal/settings"
)

// Input names the files of one run.
type Input struct {
	Reports  []string
	Settings *settings.Settings
	// Output is the workbook path. Empty skips writing.
	Output string
}

// Options tunes a run.
type Options struct {
	Logger         *slog.Logger
	SubjectColumn  string
	ErrorSentinel  string
	FlatDateLayout string
	// FlatCSV writes the flat export even when KOMP_STYLE is off.
	FlatCSV bool
	// Summary writes a YAML run summary next to the workbook.
	Summary bool
}

// Output carries every table produced by a run.
type Output struct {
	RunID      string
	Reports    []*parser.Report
	Long       *dataset.Table
	Horizontal *dataset.Table
	Split      *dataset.Table
	Stats      *analysis.Result
	Warnings   []string
	Skipped    []string

	WorkbookPath string
	FlatPath     string
	SummaryPath  string
}

type runner struct {
	in  Input
	opt Options
	log *slog.Logger
	out *Output
}

func (r *runner) warn(msg string, args ...any) {
	r.out.Warnings = append(r.out.Warnings, msg)
	r.log.Warn(msg, args...)
}

func (r *runner) skip(msg string) {
	r.out.Skipped = append(r.out.Skipped, msg)
	r.log.Info("skipped", slog.String("reason", msg))
}

// Run executes the pipeline. Missing configuration and per-outcome failures
// degrade the output; only a failed workbook write (export.Error) or a
// cancelled context return an error.
func Run(ctx context.Context, in Input, opt Options) (*Output, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
		opt.Logger = log
	}
	if opt.SubjectColumn == "" {
		opt.SubjectColumn = dataset.DefaultSubjectColumn
	}
	if opt.ErrorSentinel == "" {
		opt.ErrorSentinel = parser.DefaultErrorSentinel
	}
	start := time.Now()
	r := &runner{in: in, opt: opt, log: log.With(slog.String("component", "pipeline")), out: &Output{RunID: uuid.NewString()}}
	st := in.Settings
	if st == nil {
		st = &settings.Settings{}
	}
	for _, e := range st.Missing {
		r.warn(e.Error())
	}

	reports, err := r.parseAll(ctx)
	if err != nil {
		return r.out, err
	}
	stacked := dataset.NewTable()
	for _, rep := range reports {
		r.out.Warnings = append(r.out.Warnings, rep.Warnings()...)
		r.out.Reports = append(r.out.Reports, rep)
		stacked = dataset.Stack(stacked, rep.Table())
	}

	columns := st.Columns
	if !st.HasColumns() {
		columns = settings.IdentityColumns(parser.ScanColumns(r.out.Reports))
		r.warn("no column names table; using every report key as its own output name", slog.Int("columns", len(columns)))
	}
	mi := dataset.MergeInput{Columns: columns, Timepoints: st.Timepoints, Subjects: st.Subjects, SubjectColumn: opt.SubjectColumn}
	long, warnings := dataset.Merge(stacked, mi)
	r.warnAll(warnings)

	if st.HasDerived() {
		long, warnings = dataset.Derive(long, st.Derived)
		r.warnAll(warnings)
	}
	if st.HasModel() {
		long = long.SortBy(append(append([]string(nil), st.Factors...), opt.SubjectColumn)...)
	}
	r.out.Long = long

	if err := ctx.Err(); err != nil {
		return r.out, err
	}
	if st.Complete() {
		r.wide(long, st, mi.Outputs())
	} else {
		r.skip("horizontal, split and statistics need subject, timepoint, derived and model tables")
	}

	if in.Output == "" {
		return r.out, nil
	}
	if err := r.write(st, start); err != nil {
		return r.out, err
	}
	return r.out, nil
}

// parseAll parses and aggregates the report files one at a time, in input
// order. Unreadable files are dropped with a warning.
func (r *runner) parseAll(ctx context.Context) ([]*parser.Report, error) {
	var out []*parser.Report
	for _, path := range r.in.Reports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := parser.ParseFile(path, parser.Options{Logger: r.opt.Logger})
		if err != nil {
			r.warn(fmt.Sprintf("report %s skipped: %v", path, err))
			continue
		}
		parser.Aggregate(rep, r.opt.ErrorSentinel, r.opt.Logger)
		out = append(out, rep)
	}
	return out, nil
}

func (r *runner) warnAll(ws []string) {
	for _, w := range ws {
		r.warn(w)
	}
}

func (r *runner) wide(long *dataset.Table, st *settings.Settings, outcomes []string) {
	layout := reshape.Layout{SubjectColumn: r.opt.SubjectColumn, SubjectColumns: st.SubjectColumns(), Outcomes: outcomes}
	h, err := reshape.Horizontal(long, st.Factors, layout)
	if err != nil {
		r.warn(fmt.Sprintf("horizontal view skipped: %v", err))
	} else {
		r.out.Horizontal = h
		s, err := reshape.Split(h, st.Factors)
		if err != nil {
			r.warn(fmt.Sprintf("split view skipped: %v", err))
		} else {
			r.out.Split = s
		}
	}

	for _, f := range st.Factors {
		if !long.Has(f) {
			r.warn(fmt.Sprintf("statistics skipped: factor %q is not a column", f))
			return
		}
	}
	res := analysis.Run(long, st.Factors, outcomes, analysis.Options{Logger: r.log})
	r.out.Stats = res
	r.out.Warnings = append(r.out.Warnings, res.Warnings...)
}

func (r *runner) write(st *settings.Settings, start time.Time) error {
	b := export.Bundle{Vertical: r.out.Long, Horizontal: r.out.Horizontal, Split: r.out.Split}
	if r.out.Stats != nil {
		b.Graphs = r.out.Stats.SummaryTable()
		b.Stats = r.out.Stats.StatsTable()
		b.Pairwise = r.out.Stats.PairwiseTable()
	}
	if err := export.WriteWorkbook(r.in.Output, b); err != nil {
		r.log.Error("workbook not written", slog.String("path", r.in.Output), slog.String("error", err.Error()))
		return err
	}
	r.out.WorkbookPath = r.in.Output

	if r.opt.FlatCSV || dataset.Included(st.Derived, dataset.KompStyle) {
		p := r.in.Output + ".csv"
		if err := export.WriteFlatCSV(p, r.out.Long, export.FlatOptions{SubjectColumn: r.opt.SubjectColumn, DateLayout: r.opt.FlatDateLayout}); err != nil {
			r.warn(fmt.Sprintf("flat export not written: %v", err))
		} else {
			r.out.FlatPath = p
		}
	}

	if r.opt.Summary {
		p := strings.TrimSuffix(r.in.Output, filepath.Ext(r.in.Output)) + ".run.yaml"
		if err := export.WriteRunSummary(p, r.summary(st, start)); err != nil {
			r.warn(fmt.Sprintf("run summary not written: %v", err))
		} else {
			r.out.SummaryPath = p
		}
	}
	return nil
}

func (r *runner) summary(st *settings.Settings, start time.Time) export.RunSummary {
	rows := map[string]int{export.SheetVertical: r.out.Long.Len()}
	if r.out.Horizontal != nil {
		rows[export.SheetHorizontal] = r.out.Horizontal.Len()
	}
	if r.out.Split != nil {
		rows[export.SheetSplit] = r.out.Split.Len()
	}
	if r.out.Stats != nil {
		rows[export.SheetStats] = len(r.out.Stats.Stats)
		rows[export.SheetPairwise] = len(r.out.Stats.Pairwise)
	}
	return export.RunSummary{
		RunID:     r.out.RunID,
		StartedAt: start.UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
		Reports:   r.in.Reports,
		Settings:  st.Source,
		Output:    r.out.WorkbookPath,
		FlatCSV:   r.out.FlatPath,
		Rows:      rows,
		Skipped:   r.out.Skipped,
		Warnings:  r.out.Warnings,
	}
}
