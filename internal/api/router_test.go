package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"glowgrid/internal/api"
	"glowgrid/internal/grid"
)

// mockEngine implements api.EngineInterface without a tick loop.
type mockEngine struct {
	flipped   int
	total     int
	resets    int
	activated [][2]int
	snap      *grid.GridSnapshot
}

func (m *mockEngine) Activate(row, col int) (bool, error) {
	if row < 0 || col < 0 || row >= 9 || col >= 9 {
		return false, fmt.Errorf("cell (%d,%d) out of range", row, col)
	}
	m.activated = append(m.activated, [2]int{row, col})
	return true, nil
}

func (m *mockEngine) Reset() {
	m.resets++
	m.flipped = 0
}

func (m *mockEngine) Progress() (int, int) {
	return m.flipped, m.total
}

func (m *mockEngine) Snapshot() *grid.GridSnapshot {
	return m.snap
}

// mockBroadcaster implements api.BroadcasterInterface.
type mockBroadcaster struct {
	running bool
}

func (m *mockBroadcaster) IsRunning() bool { return m.running }
func (m *mockBroadcaster) Stats() map[string]interface{} {
	return map[string]interface{}{"frames_rendered": uint64(0)}
}

func newTestServer(engine *mockEngine) *httptest.Server {
	router := api.NewRouter(api.RouterConfig{
		Engine:      engine,
		Broadcaster: &mockBroadcaster{running: true},
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
		DisableLogging: true,
	})
	return httptest.NewServer(router)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

// TestGetProgress verifies the progress endpoint reports engine counts
func TestGetProgress(t *testing.T) {
	engine := &mockEngine{flipped: 7, total: 81}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/progress")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["flipped"].(float64) != 7 || body["total"].(float64) != 81 {
		t.Errorf("progress: got %v", body)
	}
}

// TestGetState verifies the state endpoint serializes the snapshot
func TestGetState(t *testing.T) {
	engine := &mockEngine{
		total: 81,
		snap: &grid.GridSnapshot{
			Tick:   42,
			Width:  960,
			Height: 960,
			Cells: []grid.CellSnapshot{
				{Row: 0, Col: 0, State: grid.CellFlipped, Flipped: true, Label: "Cell row 1 column 1, flipped"},
			},
			FlippedCount: 1,
			TotalCells:   81,
		},
	}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)

	if body["tick"].(float64) != 42 {
		t.Errorf("tick: got %v", body["tick"])
	}
	cells := body["cells"].([]interface{})
	cell := cells[0].(map[string]interface{})
	if cell["state"] != "flipped" {
		t.Errorf("cell state: got %v", cell["state"])
	}
}

// TestGetStateBeforeStart verifies a nil snapshot maps to 503
func TestGetStateBeforeStart(t *testing.T) {
	ts := newTestServer(&mockEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

// TestPostActivate verifies valid activations route to the engine
func TestPostActivate(t *testing.T) {
	engine := &mockEngine{total: 81}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/activate", "application/json",
		bytes.NewBufferString(`{"row": 3, "col": 5}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)

	if body["started"] != true {
		t.Errorf("started: got %v", body["started"])
	}
	if len(engine.activated) != 1 || engine.activated[0] != [2]int{3, 5} {
		t.Errorf("engine received: %v", engine.activated)
	}
}

// TestPostActivateOutOfRange verifies coordinate errors map to 400
func TestPostActivateOutOfRange(t *testing.T) {
	ts := newTestServer(&mockEngine{total: 81})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/activate", "application/json",
		bytes.NewBufferString(`{"row": 40, "col": 0}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

// TestPostActivateBadJSON verifies malformed bodies map to 400
func TestPostActivateBadJSON(t *testing.T) {
	ts := newTestServer(&mockEngine{total: 81})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/activate", "application/json",
		bytes.NewBufferString(`{not json`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

// TestPostReset verifies reset routes to the engine and returns progress
func TestPostReset(t *testing.T) {
	engine := &mockEngine{flipped: 12, total: 81}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)

	if engine.resets != 1 {
		t.Errorf("resets: got %d, want 1", engine.resets)
	}
	if body["flipped"].(float64) != 0 {
		t.Errorf("flipped after reset: got %v", body["flipped"])
	}
}

// TestPostMuteToggles verifies the mute flag round-trips
func TestPostMuteToggles(t *testing.T) {
	ts := newTestServer(&mockEngine{total: 81})
	defer ts.Close()

	for i, want := range []bool{true, false, true} {
		resp, err := http.Post(ts.URL+"/api/mute", "application/json", nil)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		body := decodeBody(t, resp)
		if body["muted"] != want {
			t.Errorf("toggle %d: got %v, want %v", i, body["muted"], want)
		}
	}
}

// TestGetStats verifies the stats endpoint merges engine and broadcaster
// state
func TestGetStats(t *testing.T) {
	ts := newTestServer(&mockEngine{flipped: 3, total: 81})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)

	if body["rendering"] != true {
		t.Errorf("rendering: got %v", body["rendering"])
	}
	if body["flipped"].(float64) != 3 {
		t.Errorf("flipped: got %v", body["flipped"])
	}
}

// TestGetHelp verifies the interaction docs endpoint
func TestGetHelp(t *testing.T) {
	ts := newTestServer(&mockEngine{total: 81})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/help")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)

	keys := body["keys"].(map[string]interface{})
	if _, ok := keys["ArrowUp"]; !ok {
		t.Error("help should document arrow keys")
	}
}
