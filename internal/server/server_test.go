package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hivechat/config"
	"hivechat/internal/domain"
	"hivechat/internal/handler"
	"hivechat/internal/services"
	"hivechat/internal/storage"
	"hivechat/internal/store"
	"hivechat/internal/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	hub := ws.NewHub(nil)
	t.Cleanup(hub.Shutdown)

	roomService := services.NewRoomService(st)
	messageService := services.NewMessageService(st, hub, nil)
	attachmentService := services.NewAttachmentService(st, blobs, 1<<20)

	cfg := &config.Config{AppPort: "0", AppMode: TestMode}
	s := New(cfg, nil)
	s.SetupRoutes(&Handlers{
		Rooms:       handler.NewRoomHandler(roomService),
		Messages:    handler.NewMessageHandler(messageService),
		Attachments: handler.NewAttachmentHandler(attachmentService),
		Presence:    handler.NewPresenceHandler(roomService, nil),
		Health:      handler.NewHealthHandler(st),
		WS:          ws.NewHandler(hub, roomService, messageService, nil, nil, nil),
	}, nil, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

// waitForSubscriber blocks until the hub sees a live connection for the
// room. The upgrade response reaches the dialer a beat before the server
// goroutine registers the client.
func waitForSubscriber(t *testing.T, hub *ws.Hub, roomID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(roomID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered for room %s", roomID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRoomAndMessageScenario(t *testing.T) {
	ts, hub := newTestServer(t)

	// Create room "general".
	resp := postJSON(t, ts.URL+"/api/rooms", map[string]string{"name": "general"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status %d", resp.StatusCode)
	}
	var room domain.Room
	decodeInto(t, resp, &room)
	if room.ID == "" || room.Name != "general" {
		t.Fatalf("unexpected room: %+v", room)
	}

	// Empty name is rejected.
	resp = postJSON(t, ts.URL+"/api/rooms", map[string]string{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty name status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Three messages in order.
	for _, content := range []string{"one", "two", "three"} {
		resp = postJSON(t, ts.URL+"/api/rooms/"+room.ID+"/messages", map[string]string{
			"sender": "tester", "content": content,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("send %q status %d", content, resp.StatusCode)
		}
		resp.Body.Close()
	}

	histResp, err := http.Get(ts.URL + "/api/rooms/" + room.ID + "/messages")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	var history []domain.Message
	decodeInto(t, histResp, &history)
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, want := range []string{"one", "two", "three"} {
		if history[i].Content != want || history[i].Seq != int64(i+1) {
			t.Fatalf("unexpected history[%d]: %+v", i, history[i])
		}
	}

	// Live subscriber sees a message POSTed afterwards.
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?roomId=" + room.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()
	waitForSubscriber(t, hub, room.ID)

	resp = postJSON(t, ts.URL+"/api/rooms/"+room.ID+"/messages", map[string]string{
		"sender": "carol", "content": "ws test",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send ws test status %d", resp.StatusCode)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pushed domain.Message
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("ws read: %v", err)
	}
	if pushed.Content != "ws test" || pushed.Sender != "carol" || pushed.RoomID != room.ID {
		t.Fatalf("unexpected ws frame: %+v", pushed)
	}
	if pushed.Seq != 4 {
		t.Fatalf("expected seq 4 on live frame, got %d", pushed.Seq)
	}

	// Unknown room id is a 404, no seq consumed.
	badResp, err := http.Get(ts.URL + "/api/rooms/no-such-room/messages")
	if err != nil {
		t.Fatalf("GET unknown room: %v", err)
	}
	if badResp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown room status %d", badResp.StatusCode)
	}
	badResp.Body.Close()

	// Empty content is a 400.
	resp = postJSON(t, ts.URL+"/api/rooms/"+room.ID+"/messages", map[string]string{
		"sender": "carol", "content": "",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty content status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWebSocketSendPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/rooms", map[string]string{"name": "general"})
	var room domain.Room
	decodeInto(t, resp, &room)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/api/rooms/" + room.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	// A frame sent inbound comes back to the sender through the fan-out.
	if err := conn.WriteJSON(map[string]string{"sender": "dave", "content": "hi from ws"}); err != nil {
		t.Fatalf("ws write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pushed domain.Message
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("ws read: %v", err)
	}
	if pushed.Sender != "dave" || pushed.Content != "hi from ws" || pushed.Seq != 1 {
		t.Fatalf("unexpected echo frame: %+v", pushed)
	}

	// Messages sent over the socket and over HTTP read back identically.
	histResp, err := http.Get(ts.URL + "/api/rooms/" + room.ID + "/messages")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	var history []domain.Message
	decodeInto(t, histResp, &history)
	if len(history) != 1 || history[0].ID != pushed.ID || history[0].Seq != pushed.Seq {
		t.Fatalf("ws message diverges from history: %+v vs %+v", history, pushed)
	}

	// A malformed frame earns an error frame on this connection only and
	// leaves it open.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("ws write malformed: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var errFrame struct {
		Error string `json:"error"`
	}
	if err := conn.ReadJSON(&errFrame); err != nil {
		t.Fatalf("ws read error frame: %v", err)
	}
	if errFrame.Error == "" {
		t.Fatalf("expected error frame, got %+v", errFrame)
	}

	// Still usable after the protocol error.
	if err := conn.WriteJSON(map[string]string{"sender": "dave", "content": "still here"}); err != nil {
		t.Fatalf("ws write after error: %v", err)
	}
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("ws read after error: %v", err)
	}
	if pushed.Content != "still here" || pushed.Seq != 2 {
		t.Fatalf("unexpected frame after error: %+v", pushed)
	}
}

func TestWebSocketUpgradeRefusedForUnknownRoom(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?roomId=ghost"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected upgrade refusal")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 refusal, got %+v", resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(strings.Replace(ts.URL, "http", "ws", 1)+"/ws", nil)
	if err == nil {
		t.Fatalf("expected upgrade refusal without roomId")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 refusal, got %+v", resp)
	}
}

func TestCatchUpAfterReconnect(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/rooms", map[string]string{"name": "general"})
	var room domain.Room
	decodeInto(t, resp, &room)

	for _, content := range []string{"a", "b", "c", "d"} {
		r := postJSON(t, ts.URL+"/api/rooms/"+room.ID+"/messages", map[string]string{
			"sender": "tester", "content": content,
		})
		r.Body.Close()
	}

	// A client that saw through seq 2 asks for the gap.
	histResp, err := http.Get(ts.URL + "/api/rooms/" + room.ID + "/messages?since_seq=2")
	if err != nil {
		t.Fatalf("GET catch-up: %v", err)
	}
	var backlog []domain.Message
	decodeInto(t, histResp, &backlog)
	if len(backlog) != 2 || backlog[0].Seq != 3 || backlog[1].Seq != 4 {
		t.Fatalf("unexpected backlog: %+v", backlog)
	}

	// since_seq beyond the head returns an empty, non-error backlog.
	histResp, err = http.Get(ts.URL + "/api/rooms/" + room.ID + "/messages?since_seq=99")
	if err != nil {
		t.Fatalf("GET empty catch-up: %v", err)
	}
	decodeInto(t, histResp, &backlog)
	if len(backlog) != 0 {
		t.Fatalf("expected empty backlog, got %+v", backlog)
	}
}

// A listen failure must surface as an error from Start, not leave the
// process blocked waiting for a shutdown signal.
func TestStartReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	s := New(&config.Config{AppPort: port, AppMode: TestMode}, nil)

	result := make(chan error, 1)
	go func() { result <- s.Start() }()

	select {
	case err := <-result:
		if err == nil {
			t.Fatalf("expected listen error on occupied port %s", port)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Start did not return after listen failure")
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
}
