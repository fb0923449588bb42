package web

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweetpotatoswee/aical/internal/assistant"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	var payload json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		payload = b
	}
	env, err := json.Marshal(WSMessage{Type: msgType, Data: payload})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, env); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil reads messages until one of the given type satisfies pred,
// discarding everything else. Intermediate state pushes arrive at the
// server's discretion so tests cannot rely on exact message counts.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, pred func(WSMessage) bool) WSMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %q: %v", msgType, err)
		}
		msg, err := ParseMessage(data)
		if err != nil {
			t.Fatalf("parse waiting for %q: %v", msgType, err)
		}
		if msg.Type == msgType && (pred == nil || pred(msg)) {
			return msg
		}
	}
	t.Fatalf("timed out waiting for %q", msgType)
	return WSMessage{}
}

func decodeState(t *testing.T, msg WSMessage) RenderedSnapshot {
	t.Helper()
	var snap RenderedSnapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return snap
}

func TestAssistantWSConnect(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)

	msg := readUntil(t, conn, WSMsgTypeConnected, nil)
	var connected struct {
		ClientID     string `json:"client_id"`
		TranscriptID string `json:"transcript_id"`
	}
	if err := json.Unmarshal(msg.Data, &connected); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	if connected.ClientID == "" {
		t.Error("connected message missing client_id")
	}
	if connected.TranscriptID == "" {
		t.Error("connected message missing transcript_id")
	}

	snap := decodeState(t, readUntil(t, conn, WSMsgTypeState, nil))
	if snap.Mode != assistant.ModeAdd {
		t.Errorf("initial mode = %q, want add", snap.Mode)
	}
}

func TestAssistantWSPreviewAndApply(t *testing.T) {
	doc := `{"content":"Scheduling lunch for 2025-01-02","items":[{"title":"Lunch","start":"2025-01-02T13:00","end":"2025-01-02T14:00"}]}`
	nlp := &fakeNLP{
		previewAddFn: func(req assistant.PreviewAddRequest, onEvent assistant.StreamHandler) error {
			for len(doc) > 0 {
				n := 9
				if n > len(doc) {
					n = len(doc)
				}
				onEvent(assistant.StreamEvent{Type: assistant.StreamEventChunk, Delta: doc[:n]})
				doc = doc[n:]
			}
			return nil
		},
	}
	s := newTestServer(t, nlp)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readUntil(t, conn, WSMsgTypeConnected, nil)

	sendWS(t, conn, WSMsgTypeSetDraft, map[string]string{"text": "lunch tomorrow at 1pm"})
	sendWS(t, conn, WSMsgTypePreview, nil)

	msg := readUntil(t, conn, WSMsgTypeState, func(m WSMessage) bool {
		snap := decodeState(t, m)
		return snap.AddPreview != nil && len(snap.AddPreview.Items) == 1 && !snap.Add.Loading
	})
	snap := decodeState(t, msg)
	if snap.AddPreview.Items[0].Title != "Lunch" {
		t.Errorf("preview item = %+v", snap.AddPreview.Items[0])
	}
	if snap.SelectedAddCount != 1 {
		t.Errorf("selected_add_count = %d, want 1", snap.SelectedAddCount)
	}

	var narration *RenderedMessage
	for i := range snap.Add.Messages {
		if snap.Add.Messages[i].Role == assistant.RoleAssistant {
			narration = &snap.Add.Messages[i]
		}
	}
	if narration == nil {
		t.Fatal("no assistant message in snapshot")
	}
	if !strings.Contains(narration.HTML, "Scheduling lunch") {
		t.Errorf("narration html = %q", narration.HTML)
	}
	if !strings.Contains(narration.HTML, `href="#/day/2025-01-02"`) {
		t.Errorf("narration html missing date link: %q", narration.HTML)
	}

	sendWS(t, conn, WSMsgTypeApply, nil)
	applied := readUntil(t, conn, WSMsgTypeApplied, nil)
	var result struct {
		Created []assistant.CreatedEvent `json:"created"`
	}
	if err := json.Unmarshal(applied.Data, &result); err != nil {
		t.Fatalf("decode applied: %v", err)
	}
	if len(result.Created) != 1 || result.Created[0].Title != "Lunch" {
		t.Errorf("applied = %+v", result)
	}
}

func TestAssistantWSKeepalive(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readUntil(t, conn, WSMsgTypeConnected, nil)

	sendWS(t, conn, WSMsgTypeKeepalive, map[string]int64{"client_time": 12345})
	ack := readUntil(t, conn, WSMsgTypeKeepaliveAck, nil)
	var data struct {
		ClientTime int64 `json:"client_time"`
		ServerTime int64 `json:"server_time"`
	}
	if err := json.Unmarshal(ack.Data, &data); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if data.ClientTime != 12345 {
		t.Errorf("client_time = %d, want 12345", data.ClientTime)
	}
	if data.ServerTime == 0 {
		t.Error("server_time not set")
	}
}

func TestAssistantWSInvalidMessage(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readUntil(t, conn, WSMsgTypeConnected, nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, WSMsgTypeError, nil)
}
