// core/rundir/descriptor_test.go
package rundir

import "testing"

func TestSegmentString(t *testing.T) {
	tests := []struct {
		name string
		segs []ReadSegment
		want string
	}{
		{"empty", nil, ""},
		{"single_template", []ReadSegment{{1, 151, false}}, "151T"},
		{"dual_index_paired", []ReadSegment{
			{1, 151, false}, {2, 8, true}, {3, 8, true}, {4, 151, false},
		}, "151T8B8B151T"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SegmentString(tc.segs); got != tc.want {
				t.Errorf("SegmentString = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTotalCycles(t *testing.T) {
	segs := []ReadSegment{{1, 151, false}, {2, 8, true}, {3, 151, false}}
	if got := TotalCycles(segs); got != 310 {
		t.Errorf("TotalCycles = %d, want 310", got)
	}
	if got := TotalCycles(nil); got != 0 {
		t.Errorf("TotalCycles(nil) = %d, want 0", got)
	}
}

func TestSegmentsEqual(t *testing.T) {
	a := []ReadSegment{{1, 151, false}, {2, 8, true}}
	b := []ReadSegment{{1, 151, false}, {2, 8, true}}
	if !SegmentsEqual(a, b) {
		t.Error("identical structures reported unequal")
	}
	if SegmentsEqual(a, a[:1]) {
		t.Error("different lengths reported equal")
	}
	c := []ReadSegment{{1, 151, false}, {2, 7, true}}
	if SegmentsEqual(a, c) {
		t.Error("different cycle counts reported equal")
	}
}

func TestIndexSegments(t *testing.T) {
	d := &Descriptor{PlannedReads: []ReadSegment{
		{1, 151, false}, {2, 8, true}, {3, 8, true}, {4, 151, false},
	}}
	if got := d.IndexSegments(); got != 2 {
		t.Errorf("IndexSegments = %d, want 2", got)
	}

	// Falls back to the current structure when no plan was recorded.
	d = &Descriptor{CurrentReads: []ReadSegment{{1, 100, false}, {2, 6, true}}}
	if got := d.IndexSegments(); got != 1 {
		t.Errorf("IndexSegments fallback = %d, want 1", got)
	}

	if got := (&Descriptor{}).IndexSegments(); got != 0 {
		t.Errorf("IndexSegments empty = %d, want 0", got)
	}
}

func TestClipSegments(t *testing.T) {
	plan := []ReadSegment{{1, 4, false}, {2, 2, true}, {3, 3, false}}
	tests := []struct {
		name   string
		cycles int
		want   string
	}{
		{"nothing_yet", 0, ""},
		{"mid_first_read", 2, "2T"},
		{"exact_first_read", 4, "4T"},
		{"into_index", 5, "4T1B"},
		{"all_produced", 9, "4T2B3T"},
		{"beyond_plan", 12, "4T2B3T"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SegmentString(clipSegments(plan, tc.cycles)); got != tc.want {
				t.Errorf("clip(%d) = %q, want %q", tc.cycles, got, tc.want)
			}
		})
	}
}
