package server

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"battleship-ai/internal/app"
	"battleship-ai/internal/config"
	"battleship-ai/internal/engine"
	"battleship-ai/internal/game"
	"battleship-ai/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ThinkDelayMs = 0
	cfg.Seed = 5
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := NewHub(zerolog.Nop())
	svc := app.NewService(cfg, app.WithPublisher(hub), app.WithHistory(db))
	ts := httptest.NewServer(New(svc, hub, zerolog.Nop(), false).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createGame(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	var created struct {
		ID    string           `json:"id"`
		State engine.GameState `json:"state"`
	}
	if code := do(t, http.MethodPost, ts.URL+"/v1/games", map[string]string{"difficulty": "hard"}, &created); code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	if created.ID == "" || created.State.Phase != engine.Setup {
		t.Fatalf("unexpected create response %+v", created)
	}
	ships, _, err := game.GenerateFleet(rand.New(rand.NewSource(11)), 10, game.StandardFleet)
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}
	var setup engine.SetupResult
	if code := do(t, http.MethodPost, ts.URL+"/v1/games/"+created.ID+"/ships", map[string]any{"ships": ships}, &setup); code != http.StatusOK || !setup.Success {
		t.Fatalf("ships: status %d %+v", code, setup)
	}
	return created.ID
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	id := createGame(t, ts)
	base := ts.URL + "/v1/games/" + id

	var rep app.TurnReport
	if code := do(t, http.MethodPost, base+"/attack", attackReq{Row: 1, Col: 1}, &rep); code != http.StatusOK {
		t.Fatalf("attack: status %d", code)
	}
	if rep.Human == nil || !rep.Human.Success || rep.State.Stats.HumanShots != 1 {
		t.Fatalf("unexpected attack report %+v", rep)
	}
	if rep.State.CurrentPlayer != engine.Human {
		t.Fatalf("expected the move back after auto ai turns, got %s", rep.State.CurrentPlayer)
	}

	var errBody errorBody
	if code := do(t, http.MethodPost, base+"/attack", attackReq{Row: 1, Col: 1}, &errBody); code != http.StatusConflict {
		t.Fatalf("repeat attack: status %d", code)
	}
	if code := do(t, http.MethodPost, base+"/attack", attackReq{Row: 0, Col: 11}, &errBody); code != http.StatusBadRequest {
		t.Fatalf("out of bounds attack: status %d", code)
	}

	var st engine.GameState
	if code := do(t, http.MethodGet, base, nil, &st); code != http.StatusOK || st.Phase != engine.Playing {
		t.Fatalf("state: status %d %+v", code, st)
	}
	for _, row := range st.Boards.AI {
		for _, cell := range row {
			if cell.HasShip && !cell.IsHit {
				t.Fatalf("unhit ai ship cell leaked in state")
			}
		}
	}

	if code := do(t, http.MethodPut, base+"/difficulty", map[string]string{"difficulty": "nope"}, &errBody); code != http.StatusBadRequest {
		t.Fatalf("bad difficulty: status %d", code)
	}
	var out engine.Outcome
	if code := do(t, http.MethodPut, base+"/difficulty", map[string]string{"difficulty": "easy"}, &out); code != http.StatusOK || !out.Success {
		t.Fatalf("difficulty: status %d %+v", code, out)
	}
	if code := do(t, http.MethodGet, base+"/reveal", nil, &errBody); code != http.StatusConflict {
		t.Fatalf("reveal mid-game: status %d", code)
	}
	if code := do(t, http.MethodDelete, base, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
	if code := do(t, http.MethodGet, base, nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("state after delete: status %d", code)
	}
}

func TestStatusHistoryAndVK(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts)

	var st statusResp
	if code := do(t, http.MethodGet, ts.URL+"/v1/status", nil, &st); code != http.StatusOK || st.Active != 1 || st.Proofs {
		t.Fatalf("status: %d %+v", code, st)
	}
	var matches []store.Match
	if code := do(t, http.MethodGet, ts.URL+"/v1/history?limit=5", nil, &matches); code != http.StatusOK || len(matches) != 0 {
		t.Fatalf("history: %d %+v", code, matches)
	}
	var errBody errorBody
	if code := do(t, http.MethodGet, ts.URL+"/v1/history/unknown-match", nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("unknown match: status %d", code)
	}
	var sum []store.Summary
	if code := do(t, http.MethodGet, ts.URL+"/v1/history/summary", nil, &sum); code != http.StatusOK {
		t.Fatalf("summary: status %d", code)
	}
	if code := do(t, http.MethodGet, ts.URL+"/v1/history?limit=x", nil, &errBody); code != http.StatusBadRequest {
		t.Fatalf("bad limit: status %d", code)
	}
	if code := do(t, http.MethodGet, ts.URL+"/v1/zk/vk", nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("vk without proofs: status %d", code)
	}
}

func TestWebsocketReceivesGameEvents(t *testing.T) {
	ts := newTestServer(t)
	id := createGame(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() wsMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read ws: %v", err)
		}
		return msg
	}
	if msg := read(); msg.Type != "state" {
		t.Fatalf("expected initial state, got %s", msg.Type)
	}

	var rep app.TurnReport
	if code := do(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/attack", attackReq{Row: 2, Col: 2}, &rep); code != http.StatusOK {
		t.Fatalf("attack: status %d", code)
	}
	msg := read()
	if msg.Type != "attack" {
		t.Fatalf("expected attack event, got %s", msg.Type)
	}
	var ev app.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ev.GameID != id || ev.Attack == nil || ev.Attack.Shooter != engine.Human {
		t.Fatalf("unexpected event %+v", ev)
	}

	if err := conn.WriteJSON(wsMessage{Type: "request_state"}); err != nil {
		t.Fatalf("write ws: %v", err)
	}
	for {
		if m := read(); m.Type == "state" {
			break
		}
	}
}

func TestUnknownGameWebsocketRejected(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=missing"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}
