// internal/ingest/ingest_test.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"flowsync-core/bcl"
	"flowsync-core/flowcell"
	"flowsync-core/histogram"
	"flowsync-core/rundir"
)

// fakeService records every mutation so tests can assert on idempotence.
type fakeService struct {
	states    map[flowcell.Key]*flowcell.State
	created   int
	updated   int
	submitted []histogram.Histogram
	findErr   error
}

func newFakeService() *fakeService {
	return &fakeService{states: map[flowcell.Key]*flowcell.State{}}
}

func (s *fakeService) Find(ctx context.Context, key flowcell.Key) (*flowcell.State, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	st, ok := s.states[key]
	if !ok {
		return nil, flowcell.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *fakeService) Create(ctx context.Context, d *rundir.Descriptor, status flowcell.Status) (*flowcell.State, error) {
	s.created++
	st := &flowcell.State{UUID: "uuid-1", Status: status, NumLanes: d.LaneCount}
	s.states[flowcell.KeyOf(d)] = st
	cp := *st
	return &cp, nil
}

func (s *fakeService) Update(ctx context.Context, uuid string, d *rundir.Descriptor, status flowcell.Status) (*flowcell.State, error) {
	s.updated++
	st := s.states[flowcell.KeyOf(d)]
	st.Status = status
	cp := *st
	return &cp, nil
}

func (s *fakeService) SubmitHistograms(ctx context.Context, uuid string, hs []histogram.Histogram) error {
	s.submitted = append(s.submitted, hs...)
	for _, st := range s.states {
		if st.UUID == uuid {
			st.HistogramCount = len(s.submitted)
		}
	}
	return nil
}

// fakeDecoder serves two index cycles of 'A' per lane tile.
type fakeDecoder struct {
	failLane int
}

func (d *fakeDecoder) Tiles(lane int) ([]bcl.TileUnit, error) {
	if lane == d.failLane {
		return nil, errors.New("tile inventory unreadable")
	}
	return []bcl.TileUnit{{Lane: lane, Tile: 1101, Cycles: 4}}, nil
}

func (d *fakeDecoder) Decode(t bcl.TileUnit, cycle, limit int) ([]bcl.Call, error) {
	calls := make([]bcl.Call, 2)
	for i := range calls {
		calls[i] = bcl.Call{Base: 'A', Qual: 30, PassedFilter: true}
	}
	return calls, nil
}

func runInfoXML(laneCount int) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<RunInfo Version="4">
  <Run Id="200115_NS500001_0017_AHFCXX" Number="17">
    <Flowcell>HFCXX</Flowcell>
    <Instrument>NS500001</Instrument>
    <Date>200115</Date>
    <Reads>
      <Read Number="1" NumCycles="2" IsIndexedRead="N" />
      <Read Number="2" NumCycles="2" IsIndexedRead="Y" />
    </Reads>
    <FlowcellLayout LaneCount="%d" />
  </Run>
</RunInfo>`, laneCount)
}

const runParamsXML = `<?xml version="1.0"?>
<RunParameters>
  <RunNumber>17</RunNumber>
  <RTAVersion>2.11.3</RTAVersion>
  <PlannedRead1Cycles>2</PlannedRead1Cycles>
  <PlannedIndex1ReadCycles>2</PlannedIndex1ReadCycles>
</RunParameters>`

// fixtureRun lays out a complete two-read run directory on disk.
func fixtureRun(t *testing.T, laneCount int) string {
	t.Helper()
	root := t.TempDir()
	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(root, "RunInfo.xml"), runInfoXML(laneCount))
	write(filepath.Join(root, "RunParameters.xml"), runParamsXML)
	write(filepath.Join(root, "RTAComplete.txt"), "")
	for lane := 1; lane <= laneCount; lane++ {
		dir := filepath.Join(root, "Data", "Intensities", "BaseCalls", fmt.Sprintf("L%03d", lane))
		for c := 1; c <= 4; c++ {
			write(filepath.Join(dir, fmt.Sprintf("%04d.bcl.bgzf", c)), "x")
		}
	}
	return root
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newApp(svc flowcell.Service, failLane int, opt Options) *App {
	opt.OpenDecode = func(root string) (bcl.Decoder, error) {
		return &fakeDecoder{failLane: failLane}, nil
	}
	return New(svc, testLogger(), opt)
}

func TestRegisterAndAnalyze(t *testing.T) {
	root := fixtureRun(t, 1)
	svc := newFakeService()
	app := newApp(svc, 0, Options{
		Flags: flowcell.Flags{Register: true, Update: true, AnalyzeAdapters: true},
	})

	outcomes := app.Process(context.Background(), []string{root})
	if len(outcomes) != 1 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	o := outcomes[0]
	if o.Error != "" {
		t.Fatalf("outcome error: %s", o.Error)
	}
	if o.MetaAction != "register" || o.AdapterAction != "analyze" {
		t.Errorf("actions = %s/%s", o.MetaAction, o.AdapterAction)
	}
	if o.Status != "complete" {
		t.Errorf("status = %q, want complete", o.Status)
	}
	if svc.created != 1 || svc.updated != 0 {
		t.Errorf("created/updated = %d/%d", svc.created, svc.updated)
	}
	if len(svc.submitted) != 1 {
		t.Fatalf("submitted %d histograms, want 1", len(svc.submitted))
	}
	h := svc.submitted[0]
	if h.Lane != 1 || h.IndexRead != 1 || h.Counts["AA"] != 2 {
		t.Errorf("histogram = %+v", h)
	}
	if o.HistogramsSubmitted != 1 {
		t.Errorf("HistogramsSubmitted = %d", o.HistogramsSubmitted)
	}
}

func TestSecondRunIsIdempotent(t *testing.T) {
	root := fixtureRun(t, 1)
	svc := newFakeService()
	flags := flowcell.Flags{Register: true, Update: true, AnalyzeAdapters: true}

	app := newApp(svc, 0, Options{Flags: flags})
	app.Process(context.Background(), []string{root})

	created, updated, submitted := svc.created, svc.updated, len(svc.submitted)
	outcomes := newApp(svc, 0, Options{Flags: flags}).Process(context.Background(), []string{root})

	o := outcomes[0]
	// The first run reached the final status and full histogram count, so
	// the second run must be a no-op.
	if o.MetaAction != "skip" || o.AdapterAction != "skip" {
		t.Errorf("second run actions = %s/%s", o.MetaAction, o.AdapterAction)
	}
	if svc.created != created || svc.updated != updated || len(svc.submitted) != submitted {
		t.Errorf("second run mutated: created %d->%d updated %d->%d submitted %d->%d",
			created, svc.created, updated, svc.updated, submitted, len(svc.submitted))
	}
}

func TestForceReanalyze(t *testing.T) {
	root := fixtureRun(t, 1)
	svc := newFakeService()
	flags := flowcell.Flags{Register: true, Update: true, AnalyzeAdapters: true}
	newApp(svc, 0, Options{Flags: flags}).Process(context.Background(), []string{root})

	flags.ForceAnalyze = true
	flags.UpdateIfFinal = true
	outcomes := newApp(svc, 0, Options{Flags: flags}).Process(context.Background(), []string{root})
	o := outcomes[0]
	if o.MetaAction != "update" || o.AdapterAction != "analyze" {
		t.Errorf("forced run actions = %s/%s", o.MetaAction, o.AdapterAction)
	}
	if len(svc.submitted) != 2 {
		t.Errorf("submitted = %d, want 2", len(svc.submitted))
	}
}

func TestDryRunMutatesNothing(t *testing.T) {
	root := fixtureRun(t, 1)
	svc := newFakeService()
	app := newApp(svc, 0, Options{
		Flags:  flowcell.Flags{Register: true, Update: true, AnalyzeAdapters: true},
		DryRun: true,
	})
	outcomes := app.Process(context.Background(), []string{root})
	o := outcomes[0]
	if !o.DryRun {
		t.Error("DryRun flag not carried into the outcome")
	}
	if o.MetaAction != "register" {
		t.Errorf("MetaAction = %s", o.MetaAction)
	}
	if svc.created != 0 || svc.updated != 0 || len(svc.submitted) != 0 {
		t.Errorf("dry run mutated: %d/%d/%d", svc.created, svc.updated, len(svc.submitted))
	}
	if o.HistogramsSubmitted != 0 {
		t.Errorf("HistogramsSubmitted = %d", o.HistogramsSubmitted)
	}
}

func TestSkipPostComputesButDoesNotSubmit(t *testing.T) {
	root := fixtureRun(t, 1)
	svc := newFakeService()
	app := newApp(svc, 0, Options{
		Flags:    flowcell.Flags{Register: true, Update: true, AnalyzeAdapters: true},
		SkipPost: true,
	})
	outcomes := app.Process(context.Background(), []string{root})
	o := outcomes[0]
	if o.Error != "" {
		t.Fatalf("outcome error: %s", o.Error)
	}
	// Registration still happens, only the histogram upload is suppressed.
	if svc.created != 1 {
		t.Errorf("created = %d, want 1", svc.created)
	}
	if o.AdapterAction != "analyze" {
		t.Errorf("AdapterAction = %s", o.AdapterAction)
	}
	if len(svc.submitted) != 0 || o.HistogramsSubmitted != 0 {
		t.Errorf("histograms submitted despite SkipPost: %d/%d", len(svc.submitted), o.HistogramsSubmitted)
	}
}

func TestPartialLaneFailure(t *testing.T) {
	root := fixtureRun(t, 2)
	svc := newFakeService()
	app := newApp(svc, 2, Options{
		Flags: flowcell.Flags{Register: true, AnalyzeAdapters: true},
	})
	outcomes := app.Process(context.Background(), []string{root})
	o := outcomes[0]
	if len(o.FailedLanes) != 1 || o.FailedLanes[0] != 2 {
		t.Errorf("FailedLanes = %v", o.FailedLanes)
	}
	// Lane 1 results are kept despite the sibling failure.
	if len(svc.submitted) != 1 || svc.submitted[0].Lane != 1 {
		t.Errorf("submitted = %+v", svc.submitted)
	}
	if !o.Failed() {
		t.Error("outcome with failed lanes not marked failed")
	}
}

func TestServiceUnavailable(t *testing.T) {
	root := fixtureRun(t, 1)
	svc := newFakeService()
	svc.findErr = &flowcell.UnavailableError{Err: errors.New("connection refused")}
	app := newApp(svc, 0, Options{Flags: flowcell.Flags{Register: true}})
	outcomes := app.Process(context.Background(), []string{root})
	if outcomes[0].Error == "" {
		t.Error("unavailable service produced a clean outcome")
	}
	if svc.created != 0 {
		t.Error("mutation attempted against unavailable service")
	}
}

func TestUnreadableDirectoryIsIsolated(t *testing.T) {
	good := fixtureRun(t, 1)
	bad := t.TempDir()
	svc := newFakeService()
	app := newApp(svc, 0, Options{Flags: flowcell.Flags{Register: true}})
	outcomes := app.Process(context.Background(), []string{bad, good})
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	if outcomes[0].Error == "" {
		t.Error("broken directory produced no error")
	}
	if outcomes[1].Error != "" {
		t.Errorf("sibling failure leaked: %s", outcomes[1].Error)
	}
	if svc.created != 1 {
		t.Errorf("created = %d, want 1", svc.created)
	}
}
