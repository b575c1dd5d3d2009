// core/pool/pool_test.go
package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"flowsync-core/histogram"
)

func task(lane int, hs []histogram.Histogram, err error) LaneTask {
	return LaneTask{Lane: lane, Run: func() ([]histogram.Histogram, error) { return hs, err }}
}

func TestRunOrdersResultsByLane(t *testing.T) {
	var tasks []LaneTask
	for lane := 8; lane >= 1; lane-- {
		lane := lane
		tasks = append(tasks, task(lane, []histogram.Histogram{{Lane: lane}}, nil))
	}
	results := Run(context.Background(), 3, tasks)
	if len(results) != 8 {
		t.Fatalf("len = %d, want 8", len(results))
	}
	for i, r := range results {
		if r.Lane != i+1 {
			t.Errorf("results[%d].Lane = %d, want %d", i, r.Lane, i+1)
		}
		if r.Err != nil || len(r.Histograms) != 1 {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
}

func TestRunPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	tasks := []LaneTask{
		task(1, []histogram.Histogram{{Lane: 1}}, nil),
		task(2, nil, boom),
		task(3, []histogram.Histogram{{Lane: 3}}, nil),
	}
	results := Run(context.Background(), 2, tasks)
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("sibling failure leaked into healthy lanes")
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("results[1].Err = %v, want boom", results[1].Err)
	}
	if results[1].Histograms != nil {
		t.Error("failed lane carries histograms")
	}
}

func TestRunDefaultsThreadCount(t *testing.T) {
	results := Run(context.Background(), 0, []LaneTask{task(1, nil, nil)})
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak int32
	var tasks []LaneTask
	for lane := 1; lane <= 16; lane++ {
		lane := lane
		tasks = append(tasks, LaneTask{Lane: lane, Run: func() ([]histogram.Histogram, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			atomic.AddInt32(&running, -1)
			return nil, nil
		}})
	}
	Run(context.Background(), 2, tasks)
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("observed %d concurrent tasks, want <= 2", p)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Run(ctx, 2, []LaneTask{
		task(1, []histogram.Histogram{{Lane: 1}}, nil),
		task(2, []histogram.Histogram{{Lane: 2}}, nil),
	})
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("lane %d err = %v, want context.Canceled", r.Lane, r.Err)
		}
	}
}
