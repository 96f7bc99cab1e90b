package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessageAndHistory(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms/r1/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if got := r.URL.Query().Get("since_seq"); got != "2" {
				t.Fatalf("since_seq = %q, want 2", got)
			}
			json.NewEncoder(w).Encode([]Message{{ID: "m3", Seq: 3}})
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["sender"] != "alice" || body["content"] != "hello" {
			t.Fatalf("unexpected request body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Message{ID: "m1", RoomID: "r1", Sender: "alice", Content: "hello", Seq: 1})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(ts.URL, "secret-key")

	msg, err := c.SendMessage(context.Background(), "r1", "alice", "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Seq != 1 || msg.ID != "m1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}

	msgs, err := c.Messages(context.Background(), "r1", &MessageFilter{SinceSeq: 2})
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Seq != 3 {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestErrorBodySurfacesAsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "room not found"})
	}))
	defer ts.Close()

	c := New(ts.URL, "")
	_, err := c.GetRoom(context.Background(), "ghost")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "room not found" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestCreateRoom(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Room{ID: "r1", Name: "general"})
	}))
	defer ts.Close()

	room, err := New(ts.URL, "").CreateRoom(context.Background(), "general")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.ID != "r1" || room.Name != "general" {
		t.Fatalf("unexpected room: %+v", room)
	}
}
