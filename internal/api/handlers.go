package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Handler methods for routerHandlers. These serve both the standalone
// router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		writeError(w, "engine not started", http.StatusServiceUnavailable)
		return
	}

	cells := make([]map[string]interface{}, 0, len(snap.Cells))
	for i := range snap.Cells {
		c := &snap.Cells[i]
		cells = append(cells, map[string]interface{}{
			"row":     c.Row,
			"col":     c.Col,
			"state":   c.State.String(),
			"flipped": c.Flipped,
			"label":   c.Label,
		})
	}

	writeJSON(w, map[string]interface{}{
		"tick":             snap.Tick,
		"width":            snap.Width,
		"height":           snap.Height,
		"cells":            cells,
		"flippedCount":     snap.FlippedCount,
		"totalCells":       snap.TotalCells,
		"completionActive": snap.CompletionActive,
		"cursor":           map[string]int{"row": snap.CursorRow, "col": snap.CursorCol},
		"particleCount":    len(snap.Particles),
		"overlayCount":     len(snap.Overlays),
	})
}

func (h *routerHandlers) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	flipped, total := h.engine.Progress()
	writeJSON(w, map[string]interface{}{
		"flipped": flipped,
		"total":   total,
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	flipped, total := h.engine.Progress()
	writeJSON(w, map[string]interface{}{
		"flipped":     flipped,
		"total":       total,
		"rendering":   h.broadcaster.IsRunning(),
		"renderStats": h.broadcaster.Stats(),
	})
}

// handleGetHelp documents the interaction surface for viewers.
func (h *routerHandlers) handleGetHelp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"pointer": "Click or tap a cell to flip it. Flipped cells flip back.",
		"keys": map[string]string{
			"ArrowUp":    "Move cursor up",
			"ArrowDown":  "Move cursor down",
			"ArrowLeft":  "Move cursor left",
			"ArrowRight": "Move cursor right",
			"Home":       "Cursor to top-left cell",
			"End":        "Cursor to bottom-right cell",
			"Space":      "Flip the cursor cell",
			"Enter":      "Flip the cursor cell",
		},
	})
}

func (h *routerHandlers) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Row int `json:"row"`
		Col int `json:"col"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	started, err := h.engine.Activate(req.Row, req.Col)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// started == false means the cell was mid-animation; that is a
	// successful no-op, not an error
	writeJSON(w, map[string]interface{}{
		"started": started,
	})
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	flipped, total := h.engine.Progress()
	writeJSON(w, map[string]interface{}{
		"flipped": flipped,
		"total":   total,
	})
}

// handleMute toggles the mute flag. Audio output is not implemented; the
// flag exists so the viewer control round-trips.
func (h *routerHandlers) handleMute(w http.ResponseWriter, r *http.Request) {
	var muted bool
	for {
		old := atomic.LoadInt32(&h.muted)
		var next int32
		if old == 0 {
			next = 1
		}
		if atomic.CompareAndSwapInt32(&h.muted, old, next) {
			muted = next == 1
			break
		}
	}
	writeJSON(w, map[string]interface{}{
		"muted": muted,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
