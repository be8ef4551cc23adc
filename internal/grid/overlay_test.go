package grid_test

import (
	"testing"

	"glowgrid/internal/grid"
)

// TestOverlayAddAssignsIDs verifies insertion order and ID assignment
func TestOverlayAddAssignsIDs(t *testing.T) {
	set := grid.NewOverlaySet(10)

	id1 := set.Add(&grid.OverlayEffect{Kind: grid.OverlaySpark})
	id2 := set.Add(&grid.OverlayEffect{Kind: grid.OverlaySmoke})

	if id1 == id2 {
		t.Error("IDs must be unique")
	}
	if set.Len() != 2 {
		t.Errorf("len: got %d, want 2", set.Len())
	}
}

// TestOverlayExpireIdempotent verifies expiring twice, or expiring an
// unknown ID, is a harmless no-op
func TestOverlayExpireIdempotent(t *testing.T) {
	set := grid.NewOverlaySet(10)
	id := set.Add(&grid.OverlayEffect{Kind: grid.OverlayGlow})

	set.Expire(id)
	set.Expire(id)    // double expiry
	set.Expire(99999) // unknown ID
	set.Compact()

	if set.Len() != 0 {
		t.Errorf("len after expiry: got %d, want 0", set.Len())
	}
}

// TestOverlayCapEvictsOldestHalf verifies cap overflow force-expires the
// oldest half synchronously
func TestOverlayCapEvictsOldestHalf(t *testing.T) {
	set := grid.NewOverlaySet(10)

	var ids []uint64
	for i := 0; i < 10; i++ {
		ids = append(ids, set.Add(&grid.OverlayEffect{Kind: grid.OverlaySpark}))
	}

	// 11th insert: oldest 5 evicted first
	set.Add(&grid.OverlayEffect{Kind: grid.OverlayFinaleFragment})

	if set.Len() != 6 {
		t.Fatalf("len after eviction: got %d, want 6", set.Len())
	}
	for _, e := range set.Live() {
		for _, old := range ids[:5] {
			if e.ID == old {
				t.Errorf("evicted effect %d still live", old)
			}
		}
	}
}

// TestOverlayClear verifies the reset path removes everything at once
func TestOverlayClear(t *testing.T) {
	set := grid.NewOverlaySet(10)
	set.Add(&grid.OverlayEffect{})
	set.Add(&grid.OverlayEffect{})

	set.Clear()

	if set.Len() != 0 {
		t.Errorf("len after clear: got %d, want 0", set.Len())
	}
}

// TestOverlayPhase verifies animation progress clamping
func TestOverlayPhase(t *testing.T) {
	e := &grid.OverlayEffect{StartTick: 10, Duration: 20}

	if got := e.Phase(5); got != 0 {
		t.Errorf("phase before start: got %f, want 0", got)
	}
	if got := e.Phase(20); got != 0.5 {
		t.Errorf("phase at midpoint: got %f, want 0.5", got)
	}
	if got := e.Phase(1000); got != 1 {
		t.Errorf("phase past end: got %f, want 1", got)
	}
}
