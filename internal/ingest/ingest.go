// internal/ingest/ingest.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"flowsync-core/bcl"
	"flowsync-core/flowcell"
	"flowsync-core/histogram"
	"flowsync-core/pool"
	"flowsync-core/rundir"

	"flowsync/internal/report"
)

// Options steer one ingest invocation.
type Options struct {
	Flags      flowcell.Flags
	DryRun     bool
	SkipPost   bool // compute histograms but never submit them
	Threads    int
	Sampling   histogram.Config
	OpenDecode func(root string) (bcl.Decoder, error) // defaults to bcl.Open
}

// App reconciles run directories against the tracking service.
type App struct {
	svc flowcell.Service
	log *slog.Logger
	opt Options
}

// New returns an App. log must not be nil.
func New(svc flowcell.Service, log *slog.Logger, opt Options) *App {
	if opt.OpenDecode == nil {
		opt.OpenDecode = bcl.Open
	}
	return &App{svc: svc, log: log, opt: opt}
}

// Process handles each run directory independently and returns one outcome
// per directory, in input order. A directory failure never aborts its
// siblings.
func (a *App) Process(ctx context.Context, dirs []string) []report.Outcome {
	outcomes := make([]report.Outcome, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, report.Outcome{Path: dir, MetaAction: "skip", AdapterAction: "skip", Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, a.processDir(ctx, dir))
	}
	return outcomes
}

// processDir runs the full decision flow for one directory.
func (a *App) processDir(ctx context.Context, dir string) report.Outcome {
	out := report.Outcome{Path: dir, MetaAction: "skip", AdapterAction: "skip", DryRun: a.opt.DryRun}

	desc, err := rundir.Read(dir)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Instrument = desc.Instrument
	out.RunNumber = desc.RunNumber
	out.Flowcell = desc.Flowcell

	key := flowcell.KeyOf(desc)
	log := a.log.With("flowcell", key.String())
	log.Info("read run directory", "layout", string(desc.Layout),
		"planned", rundir.SegmentString(desc.PlannedReads),
		"current", rundir.SegmentString(desc.CurrentReads),
		"rta_complete", desc.RTAComplete)

	st, err := a.svc.Find(ctx, key)
	switch {
	case errors.Is(err, flowcell.ErrNotFound):
		st = nil
	case err != nil:
		out.Error = err.Error()
		return out
	}

	remote := flowcell.StatusInitial
	if st != nil {
		remote = st.Status
	}
	status := flowcell.DeriveStatus(desc, remote)
	out.Status = string(status)

	meta := flowcell.DecideMetadata(st, a.opt.Flags)
	out.MetaAction = meta.Action.String()
	out.MetaReason = meta.Reason
	log.Info("metadata decision", "action", out.MetaAction, "reason", meta.Reason)

	if !a.opt.DryRun {
		switch meta.Action {
		case flowcell.MetaRegister:
			st, err = a.svc.Create(ctx, desc, status)
		case flowcell.MetaUpdate:
			st, err = a.svc.Update(ctx, st.UUID, desc, status)
		}
		if err != nil {
			out.Error = err.Error()
			return out
		}
	}

	expected := flowcell.ExpectedHistograms(desc.LaneCount, desc.IndexSegments())
	adapters := flowcell.DecideAdapters(st, expected, a.opt.Flags)
	if a.opt.DryRun && st == nil && a.opt.Flags.AnalyzeAdapters && meta.Action == flowcell.MetaRegister && expected > 0 {
		// Registration was only simulated; report what a real run would do.
		adapters = flowcell.AdapterDecision{Action: flowcell.AdapterAnalyze, Reason: "would analyze after registration"}
	}
	out.AdapterAction = adapters.Action.String()
	out.AdapterReason = adapters.Reason
	log.Info("adapter decision", "action", out.AdapterAction, "reason", adapters.Reason, "expected", expected)

	if adapters.Action != flowcell.AdapterAnalyze {
		return out
	}

	hs, failed, err := a.analyze(ctx, desc, log)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.FailedLanes = failed

	if a.opt.DryRun {
		out.HistogramsSubmitted = 0
		log.Info("dry run, histograms not submitted", "histograms", len(hs))
		return out
	}
	if a.opt.SkipPost {
		out.HistogramsSubmitted = 0
		log.Info("posting disabled, histograms not submitted", "histograms", len(hs))
		return out
	}
	if len(hs) > 0 {
		if err := a.svc.SubmitHistograms(ctx, st.UUID, hs); err != nil {
			out.Error = err.Error()
			return out
		}
		out.HistogramsSubmitted = len(hs)
	}
	return out
}

// analyze samples every lane concurrently and merges the per-lane results.
// Failed lanes are reported but do not void the successful ones.
func (a *App) analyze(ctx context.Context, desc *rundir.Descriptor, log *slog.Logger) ([]histogram.Histogram, []int, error) {
	dec, err := a.opt.OpenDecode(desc.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open base calls: %w", err)
	}
	eng := histogram.NewEngine(a.opt.Sampling, dec, log)

	tasks := make([]pool.LaneTask, 0, desc.LaneCount)
	for lane := 1; lane <= desc.LaneCount; lane++ {
		lane := lane
		tasks = append(tasks, pool.LaneTask{
			Lane: lane,
			Run:  func() ([]histogram.Histogram, error) { return eng.SampleLane(desc, lane) },
		})
	}

	var hs []histogram.Histogram
	var failed []int
	for _, r := range pool.Run(ctx, a.opt.Threads, tasks) {
		if r.Err != nil {
			log.Warn("lane analysis failed", "lane", r.Lane, "err", r.Err)
			failed = append(failed, r.Lane)
			continue
		}
		hs = append(hs, r.Histograms...)
	}
	return hs, failed, nil
}
