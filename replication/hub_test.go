package replication

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("Expected binary frame, got type %d", msgType)
	}
	msg, err := DecodeServerMessage(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubWelcomeAndBroadcast(t *testing.T) {
	queue := NewInputQueue(0)
	hub := NewHub(HubConfig{MaxClients: 1}, queue)
	go hub.Run()
	t.Cleanup(func() { hub.Stop() })

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn := dialWS(t, url)
	welcome := readServerMessage(t, conn)
	if welcome.Kind != MsgWelcome || welcome.ClientID == 0 {
		t.Fatalf("Expected welcome with client id, got %+v", welcome)
	}
	waitFor(t, "registration", func() bool { return hub.ClientCount() == 1 })

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 over the client limit, got %d", resp.StatusCode)
	}

	data, _ := EncodeSnapshot(TickSnapshot{Tick: 3, Entities: []EntitySnapshot{{NetworkID: 1, Rotation: vmath.QuatIdent()}}})
	hub.Broadcast(data)
	msg := readServerMessage(t, conn)
	if msg.Kind != MsgSnapshot || msg.Snapshot == nil || msg.Snapshot.Tick != 3 {
		t.Fatalf("Expected snapshot for tick 3, got %+v", msg)
	}

	in, _ := EncodeInput(PlayerInput{NetworkID: 1, Tick: 3, Direction: vmath.Vec2{1, 0}})
	if err := conn.WriteMessage(websocket.BinaryMessage, in); err != nil {
		t.Fatal(err)
	}
	conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
	waitFor(t, "queued input", func() bool { return queue.Pending() == 1 })
	cmds := queue.DrainInputs()
	if cmds[0].ClientID != welcome.ClientID || cmds[0].Input.Tick != 3 {
		t.Errorf("Expected input tagged with client %d, got %+v", welcome.ClientID, cmds[0])
	}

	conn.Close()
	waitFor(t, "unregistration", func() bool { return hub.ClientCount() == 0 })
	conns := queue.DrainConnections()
	if len(conns) != 2 || conns[0].Kind != Connected || conns[1].Kind != Disconnected {
		t.Errorf("Expected connect then disconnect, got %v", conns)
	}
}

func TestHubServesEngineSnapshots(t *testing.T) {
	s := newTestSim(t, Plugin{Listen: "127.0.0.1:0"})
	w := s.e.World
	hub := engine.MustGetService[*Hub](s.e.Services(), HubServiceName)
	if hub.Addr() == nil {
		t.Fatal("Expected hub bound after startup")
	}
	conn := dialWS(t, "ws://"+hub.Addr().String()+"/ws")
	welcome := readServerMessage(t, conn)
	waitFor(t, "registration", func() bool { return hub.ClientCount() == 1 })

	player, id := spawnPlayer(t, s, welcome.ClientID)
	s.step(t)

	msg := readServerMessage(t, conn)
	if msg.Kind != MsgSnapshot || msg.Snapshot.Tick != s.e.Tick().Get() {
		t.Fatalf("Expected snapshot of tick %d, got %+v", s.e.Tick().Get(), msg)
	}
	mine, ok := msg.Snapshot.Find(id)
	if !ok || mine.Owner != welcome.ClientID {
		t.Fatalf("Expected own entity %d owned by %d, got %+v", id, welcome.ClientID, mine)
	}

	// a frame with no new tick sends nothing
	s.e.Time().Pause()
	if err := s.e.Update(); err != nil {
		t.Fatal(err)
	}
	s.e.Time().Resume()
	if n := s.e.Status().Counter("replication.frames_sent").Load(); n != 1 {
		t.Errorf("Expected one frame sent, got %d", n)
	}

	in, _ := EncodeInput(PlayerInput{NetworkID: id, Tick: 2, Direction: vmath.Vec2{0, -1}, Jump: true})
	if err := conn.WriteMessage(websocket.BinaryMessage, in); err != nil {
		t.Fatal(err)
	}
	q := engine.MustGetResource[*InputQueue](w.Resources)
	waitFor(t, "queued input", func() bool { return q.Pending() == 1 })
	s.step(t)

	m, _ := engine.Get[physics.CharacterMovement](w, player)
	if m.Direction != vmath.V3(0, 0, -1) {
		t.Errorf("Expected direction -Z from network input, got %v", m.Direction)
	}
	tr, _ := engine.Get[transform.Transform](w, player)
	if tr.Position.Z() >= 0 {
		t.Errorf("Expected player moved toward -Z, got %v", tr.Position)
	}
}
